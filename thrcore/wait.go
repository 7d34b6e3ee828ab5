package thrcore

import "github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"

// hasChildLocked reports whether any occupied slot's parent is t. Callers
// must hold tb.mu. The thread table is small and fixed-size (vkdefs.NTHR),
// so a linear scan is the natural way to answer "does this thread have any
// children", exactly as thread_join_any scans thrtab.
func (tb *Table) hasChildLocked(t *Thread_t) bool {
	for _, s := range tb.slots {
		if s != nil && s.parent == t {
			return true
		}
	}
	return false
}

// exitedChildLocked returns an EXITED child of t, if any, scanning in
// table-slot order so repeated calls behave deterministically.
func (tb *Table) exitedChildLocked(t *Thread_t) *Thread_t {
	for _, s := range tb.slots {
		if s != nil && s.parent == t && s.state == EXITED {
			return s
		}
	}
	return nil
}

// recycleThread reparents tid's own children to tid's parent -- so a
// grandchild never becomes unreachable just because its immediate parent
// already exited and was joined -- then frees tid's table slot. Grounded on
// thread.c's recycle_thread.
func (tb *Table) recycleThread(tid vkdefs.Tid_t) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	dead := tb.slots[tid]
	for _, s := range tb.slots {
		if s != nil && s.parent == dead {
			s.parent = dead.parent
		}
	}
	tb.slots[tid] = nil
}

// JoinAny blocks until any child of the calling thread has exited, then
// recycles it and returns its tid. Panics if the caller has no children at
// all, matching thread_join_any's precondition (spec 4.1: "join_any():
// precondition -- calling thread has at least one child").
func (tb *Table) JoinAny() vkdefs.Tid_t {
	self := tb.CurrentThread()

	for {
		tb.mu.Lock()
		if !tb.hasChildLocked(self) {
			tb.mu.Unlock()
			panic("join_any: calling thread has no children")
		}
		child := tb.exitedChildLocked(self)
		tb.mu.Unlock()

		if child != nil {
			tid := child.id
			tb.recycleThread(tid)
			return tid
		}

		self.childExit.Wait(tb)
	}
}

// Join blocks until the specific thread tid, which must be a child of the
// caller, has exited, then recycles it. Returns vkdefs.ECHILD if tid is not
// a child of the calling thread.
func (tb *Table) Join(tid vkdefs.Tid_t) (vkdefs.Tid_t, vkdefs.Err_t) {
	self := tb.CurrentThread()

	for {
		tb.mu.Lock()
		target := tb.lookup(tid)
		if target == nil || target.parent != self {
			tb.mu.Unlock()
			return 0, vkdefs.ECHILD
		}
		exited := target.state == EXITED
		tb.mu.Unlock()

		if exited {
			tb.recycleThread(tid)
			return tid, 0
		}

		self.childExit.Wait(tb)
	}
}
