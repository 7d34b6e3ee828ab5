package proccore

import "github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"

// Wait implements the wait syscall: wraps thread_join(tid) when tid >= 0,
// thread_join_any() when tid < 0 (spec 4.4: "Wait: wraps thread_join(tid)
// or thread_join_any()"). Every Process_t in this core is single-threaded,
// so a joined tid and the pid the caller cares about coincide.
func (pt *Table) Wait(tid vkdefs.Tid_t) (vkdefs.Tid_t, vkdefs.Err_t) {
	if tid < 0 {
		return pt.tb.JoinAny(), 0
	}
	return pt.tb.Join(tid)
}
