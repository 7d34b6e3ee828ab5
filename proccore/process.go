// Package proccore implements the process model and fork/exec/exit/wait
// lifecycle: a fixed-size process table, per-process descriptor tables, and
// the seven-step fork algorithm, layered on thrcore (threads/scheduling) and
// vmcore (address spaces). Grounded on biscuit's proc.Proc_t/ptable_t, with
// the mmap/rusage/OOM machinery proc.Proc_t carries dropped -- this core has
// no mmap, resource accounting, or OOM killer (non-goals).
package proccore

import (
	"sync"

	"github.com/Ziheng-Qi/Operating-System-Kernel/fdcore"
	"github.com/Ziheng-Qi/Operating-System-Kernel/thrcore"
	"github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"
	"github.com/Ziheng-Qi/Operating-System-Kernel/vmcore"
)

// Process_t is a user-mode address space plus an open-object table (spec 3:
// "a user-mode address space plus an open-object table"). It implements
// thrcore.ProcessHandle so its owning thread can Switch() into it on every
// scheduling decision.
type Process_t struct {
	Pid vkdefs.Pid_t

	mu   sync.Mutex
	as   *vmcore.AddressSpace_t
	fds  [vkdefs.NFD]fdcore.Io_i
	tid0 vkdefs.Tid_t // first/only thread of this process
}

// Switch installs this process's address space as the active translation,
// satisfying thrcore.ProcessHandle (spec 4.1's suspend_self: "if next has an
// associated process, switch the active page table to that process's mtag").
func (p *Process_t) Switch() {
	p.as.Switch()
}

// AddressSpace exposes the underlying address space for memory_validate_*
// and page-fault handling call sites (the syscall dispatcher, exec).
func (p *Process_t) AddressSpace() *vmcore.AddressSpace_t {
	return p.as
}

// Table is the process table: a small fixed array (spec 4.4: "Process table
// is a small fixed array"), grounded on biscuit's ptable_t minus the
// hashtable (NPROC is small enough that a linear scan over a fixed array is
// both simpler and exactly what the spec describes).
type Table struct {
	mu    sync.Mutex
	phys  *vmcore.Physmem_t
	tb    *thrcore.Table
	slots [vkdefs.NPROC]*Process_t
}

func NewTable(phys *vmcore.Physmem_t, tb *thrcore.Table) *Table {
	return &Table{phys: phys, tb: tb}
}

// Bootstrap installs a process around an already-built address space
// without going through Exec/ElfLoader, for callers that construct the
// very first address space themselves (tests, and a host harness driving
// the core one step at a time rather than through a real boot ELF).
func (pt *Table) Bootstrap(as *vmcore.AddressSpace_t) *Process_t {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pid := pt.freeSlot()
	if pid < 0 {
		panic("proccore: bootstrap with no free process slot")
	}
	p := &Process_t{Pid: pid, as: as}
	pt.slots[pid] = p
	return p
}

// freeSlot returns the index of an unused process-table slot, or -1.
func (pt *Table) freeSlot() vkdefs.Pid_t {
	for i, s := range pt.slots {
		if s == nil {
			return vkdefs.Pid_t(i)
		}
	}
	return -1
}

func (pt *Table) lookup(pid vkdefs.Pid_t) *Process_t {
	if pid < 0 || int(pid) >= len(pt.slots) {
		return nil
	}
	return pt.slots[pid]
}

// Lookup returns the process at pid, or nil if the slot is unoccupied.
func (pt *Table) Lookup(pid vkdefs.Pid_t) *Process_t {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.lookup(pid)
}

// fdAlloc finds the lowest free descriptor in p's table, or -1.
func (p *Process_t) fdAlloc() int {
	for i, obj := range p.fds {
		if obj == nil {
			return i
		}
	}
	return -1
}

// Install places obj at the lowest free descriptor, returning EBADFD if the
// table is full (spec 3: "fixed-size table mapping small integer
// descriptors (0..15)").
func (p *Process_t) Install(obj fdcore.Io_i) (int, vkdefs.Err_t) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fd := p.fdAlloc()
	if fd < 0 {
		return 0, vkdefs.EBADFD
	}
	p.fds[fd] = obj
	return fd, 0
}

// InstallAt places obj at a specific descriptor (used by devopen/fsopen's
// caller-chosen fd), EBUSY if already occupied.
func (p *Process_t) InstallAt(fd int, obj fdcore.Io_i) vkdefs.Err_t {
	if fd < 0 || fd >= vkdefs.NFD {
		return vkdefs.EBADFD
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fds[fd] != nil {
		return vkdefs.EBUSY
	}
	p.fds[fd] = obj
	return 0
}

// Fd returns the I/O object at descriptor fd, or EBADFD.
func (p *Process_t) Fd(fd int) (fdcore.Io_i, vkdefs.Err_t) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fd < 0 || fd >= vkdefs.NFD || p.fds[fd] == nil {
		return nil, vkdefs.EBADFD
	}
	return p.fds[fd], 0
}

// CloseFd closes and clears descriptor fd (spec 4.6's close capability),
// EBADFD if unoccupied.
func (p *Process_t) CloseFd(fd int) vkdefs.Err_t {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fd < 0 || fd >= vkdefs.NFD || p.fds[fd] == nil {
		return vkdefs.EBADFD
	}
	p.fds[fd].Close()
	p.fds[fd] = nil
	return 0
}

// refupper is implemented by the reference-counted I/O object variants
// (fdcore's refcounted embed gives Literal_t/CharDevice_t/BlockFile_t one,
// pipecore.Endpoint_t forwards to its shared Pipe_t's own). An object
// without one, such as fdcore.LineDiscipline_t, is still shared across
// fork -- the child's slot gets the same pointer -- but no count is
// incremented for it.
type refupper interface {
	Refup()
}

// dupForChild increments obj's reference count, if it tracks one, before
// the same object pointer is installed into the child's descriptor table
// (process_fork step 2: "increment the I/O object's reference count").
func dupForChild(obj fdcore.Io_i) {
	if r, ok := obj.(refupper); ok {
		r.Refup()
	}
}
