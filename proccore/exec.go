package proccore

import (
	"github.com/Ziheng-Qi/Operating-System-Kernel/fdcore"
	"github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"
	"github.com/Ziheng-Qi/Operating-System-Kernel/vmcore"
)

// Segment is one PT_LOAD-equivalent span an ElfLoader hands back: a
// page-aligned virtual address range with contents and the permissions it
// should be mapped with.
type Segment struct {
	Va    uintptr
	Bytes []byte
	Flags vmcore.Pte_t
}

// ElfLoader is the out-of-scope ELF-loading collaborator's interface (spec
// 4.4's process_exec: "load an ELF from an I/O object into a fresh address
// space"), narrowed to exactly what the core needs from it rather than an
// ELF parser living inside proccore -- ELF loading is explicitly out of
// scope per spec.md 1. hostharness supplies a concrete implementation good
// enough for a real ELF64 RISC-V static binary.
type ElfLoader interface {
	LoadSegments(io fdcore.Io_i) (entry uintptr, segs []Segment, err error)
}

// Exec implements process_exec: load segments from io via loader into a
// fresh address space, install them, inherit the caller's open descriptors
// (ref-counted), and return the new process plus its entry point so the
// dispatcher can jump to user mode via thread_finish_jump. callerPid may be
// -1 for the very first process (boot entry), in which case there is
// nothing to inherit. Binding the returned process to a thread (via
// thrcore.Table.ThreadSetProcess) is the dispatcher's job, not Exec's --
// the common case execs over the calling thread's existing binding, while
// boot binds a freshly spawned one.
func (pt *Table) Exec(callerPid vkdefs.Pid_t, io fdcore.Io_i, loader ElfLoader) (*Process_t, uintptr, vkdefs.Err_t) {
	entry, segs, err := loader.LoadSegments(io)
	if err != nil {
		return nil, 0, vkdefs.EINVAL
	}

	as, errno := pt.phys.CreateSpace()
	if errno != 0 {
		return nil, 0, errno
	}

	for _, seg := range segs {
		if errno := as.AllocAndMapRange(seg.Va, len(seg.Bytes), seg.Flags); errno != 0 {
			pt.phys.Destroy(as)
			return nil, 0, errno
		}
		as.WriteUser(seg.Va, seg.Bytes)
	}

	pt.mu.Lock()
	pid := pt.freeSlot()
	if pid < 0 {
		pt.mu.Unlock()
		pt.phys.Destroy(as)
		return nil, 0, vkdefs.EAGAIN
	}
	proc := &Process_t{Pid: pid, as: as}
	pt.slots[pid] = proc
	pt.mu.Unlock()

	if caller := pt.Lookup(callerPid); caller != nil {
		caller.mu.Lock()
		for i, obj := range caller.fds {
			if obj == nil {
				continue
			}
			dupForChild(obj)
			proc.fds[i] = obj
		}
		caller.mu.Unlock()
	}

	return proc, entry, 0
}
