package fdcore

import "sync"

// refcounted is an embeddable reference count shared by every I/O object
// variant (spec 3: "I/O object ... a reference count"; spec.md 8's
// refcount(O) invariant tracks descriptor-table sharing for every object,
// not just pipes). A fresh object starts at 1, the descriptor that created
// it; Refup runs once per descriptor slot duplicated across fork
// (process_fork step 2), Decref once per descriptor closed.
type refcounted struct {
	mu  sync.Mutex
	cnt int
}

func newRefcounted() refcounted {
	return refcounted{cnt: 1}
}

// Refup increments the count. Satisfies the refupper interface
// proccore.dupForChild looks for.
func (r *refcounted) Refup() {
	r.mu.Lock()
	r.cnt++
	r.mu.Unlock()
}

// Decref decrements the count and reports whether it reached zero, the
// signal that the caller should release the underlying resource.
func (r *refcounted) Decref() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cnt--
	return r.cnt <= 0
}

// Refcnt reports the current count, for GETREFCNT and tests.
func (r *refcounted) Refcnt() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cnt
}
