// Package vkabi implements the syscall ABI and dispatcher: the twelve
// syscalls named in spec.md section 6, read from and written back into a
// vkdefs.TrapFrame, validating every user pointer through vmcore before
// dereferencing it. Grounded on biscuit's syscall/sys_*.go dispatch style
// (a big switch over syscall number, one method per call) and on
// proc.go's trap_proc error-to-errno translation, adapted to this core's
// four-subsystem split (thrcore/proccore/vmcore/pipecore/fdcore) rather
// than biscuit's single Proc_t doing everything.
package vkabi

import (
	"github.com/Ziheng-Qi/Operating-System-Kernel/fdcore"
	"github.com/Ziheng-Qi/Operating-System-Kernel/pipecore"
	"github.com/Ziheng-Qi/Operating-System-Kernel/proccore"
	"github.com/Ziheng-Qi/Operating-System-Kernel/thrcore"
	"github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"
	"github.com/Ziheng-Qi/Operating-System-Kernel/vmcore"
)

// Namespace resolves the names devopen/fsopen pass in, the out-of-scope
// device/filesystem collaborators spec.md section 1 places outside the
// core. hostharness supplies the concrete implementation (a file-backed
// block image, a console device); the dispatcher only needs to open by
// name and hand back an fdcore.Io_i.
type Namespace interface {
	DevOpen(name string, instno int) (fdcore.Io_i, vkdefs.Err_t)
	FsOpen(name string) (fdcore.Io_i, vkdefs.Err_t)
}

// Dispatcher is the trap-handling entry point: it owns references to every
// core subsystem a syscall might touch, but no state of its own beyond
// that -- all durable state lives in the tables it's handed.
type Dispatcher struct {
	Threads *thrcore.Table
	Procs   *proccore.Table
	Phys    *vmcore.Physmem_t
	NS      Namespace
	Loader  proccore.ElfLoader

	// Console backs msgout -- a direct-to-operator channel that bypasses
	// the descriptor table entirely, matching the source's msgout writing
	// straight to the UART rather than through a fd.
	Console fdcore.Io_i

	// OnFork, if set, is invoked from inside the newly spawned child
	// thread with its own copy of the parent's trap frame (a0 already
	// zeroed per step 7's divergence). This is the hook a host harness
	// wires to its trap-return loop to actually resume the child's user
	// program; the dispatcher itself has no notion of a trap-return loop.
	OnFork func(childPid vkdefs.Pid_t, childFrame *vkdefs.TrapFrame)
}

// Dispatch implements the trap-exit contract: decode the syscall number and
// arguments from tf, perform the operation against pid's process, and
// write the result back into tf's a0 slot -- exactly the shape spec.md
// section 6 describes ("the result replaces the first argument register").
// Never panics out to the caller except for kernel-bug conditions the
// layers below already treat as fatal (spec 7: "assertions and kernel bugs
// halt the machine").
func (d *Dispatcher) Dispatch(pid vkdefs.Pid_t, tf *vkdefs.TrapFrame) {
	proc := d.Procs.Lookup(pid)
	if proc == nil {
		panic("vkabi: dispatch against unknown pid")
	}

	switch tf.GPR[vkdefs.TF_A7] {
	case vkdefs.SYS_MSGOUT:
		d.sysMsgout(proc, tf)
	case vkdefs.SYS_EXIT:
		d.sysExit(pid)
	case vkdefs.SYS_DEVOPEN:
		d.sysDevopen(proc, tf)
	case vkdefs.SYS_FSOPEN:
		d.sysFsopen(proc, tf)
	case vkdefs.SYS_CLOSE:
		d.sysClose(proc, tf)
	case vkdefs.SYS_READ:
		d.sysRead(proc, tf)
	case vkdefs.SYS_WRITE:
		d.sysWrite(proc, tf)
	case vkdefs.SYS_IOCTL:
		d.sysIoctl(proc, tf)
	case vkdefs.SYS_EXEC:
		d.sysExec(pid, proc, tf)
	case vkdefs.SYS_FORK:
		d.sysFork(pid, tf)
	case vkdefs.SYS_WAIT:
		d.sysWait(tf)
	case vkdefs.SYS_PIPE:
		d.sysPipe(proc, tf)
	default:
		setErr(tf, vkdefs.EINVAL)
	}
}

func setOk(tf *vkdefs.TrapFrame, v int64) {
	tf.GPR[vkdefs.TF_A0] = uint64(v)
}

func setErr(tf *vkdefs.TrapFrame, errno vkdefs.Err_t) {
	tf.GPR[vkdefs.TF_A0] = uint64(-int64(errno))
}

func (d *Dispatcher) sysMsgout(proc *proccore.Process_t, tf *vkdefs.TrapFrame) {
	ptr := uintptr(tf.GPR[vkdefs.TF_A0])
	n, errno := proc.AddressSpace().ValidateStr(ptr, vmcore.PteR)
	if errno != 0 {
		setErr(tf, errno)
		return
	}
	msg := proc.AddressSpace().ReadUser(ptr, n)
	if d.Console != nil {
		fdcore.Iowrite(d.Console, msg)
	}
	setOk(tf, 0)
}

func (d *Dispatcher) sysExit(pid vkdefs.Pid_t) {
	d.Procs.Exit(pid)
	d.Threads.Exit()
}

func (d *Dispatcher) sysDevopen(proc *proccore.Process_t, tf *vkdefs.TrapFrame) {
	fd := int(tf.GPR[vkdefs.TF_A0])
	ptr := uintptr(tf.GPR[vkdefs.TF_A1])
	instno := int(tf.GPR[vkdefs.TF_A2])

	n, errno := proc.AddressSpace().ValidateStr(ptr, vmcore.PteR)
	if errno != 0 {
		setErr(tf, vkdefs.EFAULT)
		return
	}
	name := string(proc.AddressSpace().ReadUser(ptr, n))

	obj, errno := d.NS.DevOpen(name, instno)
	if errno != 0 {
		setErr(tf, errno)
		return
	}
	if errno := proc.InstallAt(fd, obj); errno != 0 {
		obj.Close()
		setErr(tf, errno)
		return
	}
	setOk(tf, 0)
}

func (d *Dispatcher) sysFsopen(proc *proccore.Process_t, tf *vkdefs.TrapFrame) {
	fd := int(tf.GPR[vkdefs.TF_A0])
	ptr := uintptr(tf.GPR[vkdefs.TF_A1])

	n, errno := proc.AddressSpace().ValidateStr(ptr, vmcore.PteR)
	if errno != 0 {
		setErr(tf, vkdefs.EFAULT)
		return
	}
	name := string(proc.AddressSpace().ReadUser(ptr, n))

	obj, errno := d.NS.FsOpen(name)
	if errno != 0 {
		setErr(tf, errno)
		return
	}
	if errno := proc.InstallAt(fd, obj); errno != 0 {
		obj.Close()
		setErr(tf, errno)
		return
	}
	setOk(tf, 0)
}

func (d *Dispatcher) sysClose(proc *proccore.Process_t, tf *vkdefs.TrapFrame) {
	fd := int(tf.GPR[vkdefs.TF_A0])
	if errno := proc.CloseFd(fd); errno != 0 {
		setErr(tf, errno)
		return
	}
	setOk(tf, 0)
}

func (d *Dispatcher) sysRead(proc *proccore.Process_t, tf *vkdefs.TrapFrame) {
	fd := int(tf.GPR[vkdefs.TF_A0])
	ptr := uintptr(tf.GPR[vkdefs.TF_A1])
	n := int(tf.GPR[vkdefs.TF_A2])

	obj, errno := proc.Fd(fd)
	if errno != 0 {
		setErr(tf, errno)
		return
	}
	if errno := proc.AddressSpace().ValidatePtrLen(ptr, n, vmcore.PteW); errno != 0 {
		setErr(tf, errno)
		return
	}

	buf := make([]byte, n)
	got, errno := fdcore.IoreadFull(obj, buf)
	if errno != 0 {
		setErr(tf, errno)
		return
	}
	proc.AddressSpace().WriteUser(ptr, buf[:got])
	setOk(tf, int64(got))
}

func (d *Dispatcher) sysWrite(proc *proccore.Process_t, tf *vkdefs.TrapFrame) {
	fd := int(tf.GPR[vkdefs.TF_A0])
	ptr := uintptr(tf.GPR[vkdefs.TF_A1])
	n := int(tf.GPR[vkdefs.TF_A2])

	obj, errno := proc.Fd(fd)
	if errno != 0 {
		setErr(tf, errno)
		return
	}
	if errno := proc.AddressSpace().ValidatePtrLen(ptr, n, vmcore.PteR); errno != 0 {
		setErr(tf, errno)
		return
	}

	buf := proc.AddressSpace().ReadUser(ptr, n)
	got, errno := fdcore.Iowrite(obj, buf)
	if errno != 0 {
		setErr(tf, errno)
		return
	}
	setOk(tf, int64(got))
}

func (d *Dispatcher) sysIoctl(proc *proccore.Process_t, tf *vkdefs.TrapFrame) {
	fd := int(tf.GPR[vkdefs.TF_A0])
	cmd := int(tf.GPR[vkdefs.TF_A1])
	arg := int(tf.GPR[vkdefs.TF_A2])

	obj, errno := proc.Fd(fd)
	if errno != 0 {
		setErr(tf, errno)
		return
	}
	n, errno := obj.Ctl(cmd, arg)
	if errno != 0 {
		setErr(tf, errno)
		return
	}
	setOk(tf, int64(n))
}

func (d *Dispatcher) sysExec(pid vkdefs.Pid_t, proc *proccore.Process_t, tf *vkdefs.TrapFrame) {
	fd := int(tf.GPR[vkdefs.TF_A0])
	obj, errno := proc.Fd(fd)
	if errno != 0 {
		setErr(tf, errno)
		return
	}

	newProc, entry, errno := d.Procs.Exec(pid, obj, d.Loader)
	if errno != 0 {
		setErr(tf, errno)
		return
	}

	// Rebind the calling thread onto the freshly built process -- Exec
	// itself only builds newProc, per its own doc comment this binding is
	// the dispatcher's job. Then tear down the old process: release its
	// descriptors (dropping the references newProc just duplicated) and
	// its address space, and free its process-table slot, or repeated
	// execs would each leave an orphaned, unreachable process pinning a
	// slot until NPROC is exhausted.
	tid := d.Threads.CurrentTid()
	d.Threads.ThreadSetProcess(tid, newProc)
	d.Procs.Exit(pid)

	// On success the old user program is not resumed; the entry point is
	// written into a0 and the dispatcher's caller is responsible for
	// jumping to it via thread_finish_jump-equivalent machinery (spec 4.2),
	// not this function, which only performs the memory-image replacement.
	setOk(tf, int64(entry))
}

func (d *Dispatcher) sysFork(pid vkdefs.Pid_t, tf *vkdefs.TrapFrame) {
	parentFrame := *tf
	childPid, errno := d.Procs.Fork(pid, func(child *proccore.Process_t) {
		childFrame := parentFrame
		childFrame.GPR[vkdefs.TF_A0] = 0
		if d.OnFork != nil {
			d.OnFork(child.Pid, &childFrame)
		}
	})
	if errno != 0 {
		setErr(tf, errno)
		return
	}
	setOk(tf, int64(childPid))
}

func (d *Dispatcher) sysWait(tf *vkdefs.TrapFrame) {
	tid := vkdefs.Tid_t(int64(tf.GPR[vkdefs.TF_A0]))
	got, errno := d.Procs.Wait(tid)
	if errno != 0 {
		setErr(tf, errno)
		return
	}
	setOk(tf, int64(got))
}

func (d *Dispatcher) sysPipe(proc *proccore.Process_t, tf *vkdefs.TrapFrame) {
	fd := int(tf.GPR[vkdefs.TF_A0])
	p := pipecore.New(d.Threads)
	endpoint := pipecore.NewPipeEndpoint(p)
	if errno := proc.InstallAt(fd, endpoint); errno != 0 {
		setErr(tf, errno)
		return
	}
	setOk(tf, 0)
}
