package thrcore

import (
	"fmt"

	"github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"
)

// readyInsertLocked inserts t onto the tail of the ready list and wakes
// anyone parked in the idle thread's wfi-equivalent wait. Callers must hold
// tb.mu.
func (tb *Table) readyInsertLocked(t *Thread_t) {
	tb.ready.insert(t)
	tb.wake.Broadcast()
}

// CurrentThread returns the thread occupying the single RUNNING slot. It is
// the O(1) "dedicated register" access spec 3 requires: valid without a
// separate lookup because at most one goroutine is ever executing kernel
// code at a time (see the package doc comment).
func (tb *Table) CurrentThread() *Thread_t {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.current
}

func (tb *Table) CurrentTid() vkdefs.Tid_t {
	return tb.CurrentThread().id
}

// suspendSelf implements spec 4.1's suspend_self algorithm: dequeue the
// ready list head, mark it RUNNING, demote the caller back to READY (unless
// it has already transitioned to WAITING or EXITED), switch address spaces
// if needed, and hand off the CPU. If the caller is EXITED it never parks
// again: thread.c's deferred free-the-displaced-thread's-stack step
// collapses into an immediate release, made by the exiting thread itself
// under the scheduler lock just before the handoff.
func (tb *Table) suspendSelf(t *Thread_t) {
	tb.mu.Lock()
	if tb.ready.empty() {
		tb.mu.Unlock()
		panic("suspend_self: ready list is empty")
	}
	next := tb.ready.remove()
	if next.state != READY {
		tb.mu.Unlock()
		panic(fmt.Sprintf("suspend_self: head of ready list %q is %s, not READY", next.name, next.state))
	}
	next.state = RUNNING
	if t.state == RUNNING {
		t.state = READY
		tb.ready.insert(t)
	}
	exited := t.state == EXITED
	if exited {
		tb.kstacks.release()
	}
	tb.current = next
	tb.mu.Unlock()

	if next.proc != nil {
		next.proc.Switch()
	}

	next.resume <- struct{}{}

	if exited {
		t.kstack.held = false
		return
	}

	<-t.resume
}

// Yield voluntarily gives up the CPU while remaining runnable (spec 4.1:
// "yield(): precondition state RUNNING; equivalent to suspend_self").
func (tb *Table) Yield() {
	t := tb.CurrentThread()
	if t.State() != RUNNING {
		panic("yield: calling thread is not RUNNING")
	}
	tb.suspendSelf(t)
}

// Exit marks the calling thread EXITED, wakes its parent's child_exit
// condition, and hands the CPU to the next ready thread. The thread is never
// scheduled again, but Exit does return to its goroutine once the handoff is
// made, so callers (entry bodies, the exit syscall) make it their last
// action. Exiting an already EXITED thread is a no-op; see exit.
func (tb *Table) Exit() {
	tb.exit(tb.CurrentThread())
}

func (tb *Table) exitCurrentFrom(t *Thread_t) {
	tb.exit(t)
}

// exit is idempotent: entry bodies commonly call tb.Exit() themselves as
// their last statement (matching thread_exit's "must not return" contract),
// and the Spawn/SpawnForked wrapper goroutine then calls exitCurrentFrom
// unconditionally once entry/body falls off the end. Without this guard that
// is a double exit on the same thread -- a second broadcast and a second
// kstack release for a slot already freed by the first call.
func (tb *Table) exit(t *Thread_t) {
	tb.mu.Lock()
	if t.state == EXITED {
		tb.mu.Unlock()
		return
	}
	t.state = EXITED
	parent := t.parent
	tb.mu.Unlock()

	if parent == nil {
		panic("exit: thread has no parent")
	}
	parent.childExit.Broadcast(tb)

	tb.suspendSelf(t)
}

// SpawnForked implements the thread-table half of process_fork (spec 4.4
// steps 4-6): a brand-new thread is inserted directly as RUNNING and given
// the CPU immediately, while the calling (parent) thread is demoted to
// READY and enqueued -- mirroring thread_fork_to_user's inline sequence
// rather than going through the normal spawn-then-wait-your-turn path
// suspend_self and Spawn use for every other thread. body runs in the new
// child thread; when it returns, the child thread exits exactly as a
// normally spawned thread would.
func (tb *Table) SpawnForked(name string, childProc ProcessHandle, body func()) (vkdefs.Tid_t, vkdefs.Err_t) {
	tb.mu.Lock()
	tid := tb.freeSlot()
	if tid < 0 {
		tb.mu.Unlock()
		return 0, vkdefs.EAGAIN
	}
	if !tb.kstacks.tryAlloc() {
		tb.mu.Unlock()
		return 0, vkdefs.ENOMEM
	}

	parent := tb.current
	child := &Thread_t{
		id:     tid,
		name:   name,
		parent: parent,
		proc:   childProc,
		state:  RUNNING,
		resume: make(chan struct{}),
		kstack: kstackToken{held: true},
	}
	child.childExit.name = name + ".child_exit"
	tb.slots[tid] = child

	parent.state = READY
	tb.readyInsertLocked(parent)
	tb.current = child
	tb.mu.Unlock()

	if childProc != nil {
		childProc.Switch()
	}

	go func() {
		<-child.resume
		body()
		tb.exitCurrentFrom(child)
	}()
	child.resume <- struct{}{}

	<-parent.resume
	return tid, 0
}

// idleLoop is idle_thread_func's wfi loop: sleep on tb.wake while no other
// thread is ready, then yield so the scheduler can pick one of them up.
// Yield reinserts idle itself at the ready-list tail, so it is always the
// thing that runs when truly nothing else can.
func (tb *Table) idleLoop(idle *Thread_t) {
	for {
		tb.mu.Lock()
		for tb.ready.empty() {
			tb.wake.Wait()
		}
		tb.mu.Unlock()
		tb.Yield()
	}
}

func (tb *Table) ThreadProcess(tid vkdefs.Tid_t) ProcessHandle {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	t := tb.lookup(tid)
	if t == nil {
		return nil
	}
	return t.proc
}

func (tb *Table) ThreadSetProcess(tid vkdefs.Tid_t, p ProcessHandle) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	t := tb.lookup(tid)
	if t == nil {
		panic("thread_set_process: no such thread")
	}
	t.proc = p
}

func (tb *Table) ThreadName(tid vkdefs.Tid_t) string {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	t := tb.lookup(tid)
	if t == nil {
		panic("thread_name: no such thread")
	}
	return t.name
}
