package thrcore

import "github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"

// kstackToken marks whether a Thread_t currently holds a kernel stack
// reservation. It exists so recycle_thread's bookkeeping is symmetric with
// its allocation, matching spec 4.1 ("allocate one kernel-stack page") and
// giving tests something concrete to assert has returned to zero.
type kstackToken struct {
	held bool
}

// kstackPool tracks how many of the NTHR kernel-stack-sized reservations are
// currently outstanding. All methods assume the caller holds Table.mu, the
// same lock that serializes thread-table slot allocation (spec 5: "Thread
// table and process table -- mutated only with interrupts disabled").
type kstackPool struct {
	free int
}

func (p *kstackPool) init() {
	p.free = vkdefs.NTHR
}

func (p *kstackPool) tryAlloc() bool {
	if p.free == 0 {
		return false
	}
	p.free--
	return true
}

func (p *kstackPool) release() {
	p.free++
	if p.free > vkdefs.NTHR {
		panic("kstackPool: released more stacks than allocated")
	}
}

// InUse reports the number of kernel-stack reservations currently held,
// for tests asserting the pool drains back to zero once threads exit.
func (tb *Table) InUse() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return vkdefs.NTHR - tb.kstacks.free
}
