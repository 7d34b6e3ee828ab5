// Package thrcore implements the thread manager and cooperative scheduler
// described by the core specification: a fixed-slot thread table, a FIFO
// ready list, condition variables with broadcast-and-recheck semantics, and
// an idle thread. It is grounded on original_source/src/kern/thread.c and on
// the teacher repo's proc/wait.go, adapted to Go's concurrency primitives as
// described in SPEC_FULL.md section 4.1: each Thread_t is backed by one
// goroutine parked on a private resume channel, and a single scheduler lock
// plays the role of "interrupts disabled" around ready-list and
// condition-list mutation. Only one thread's resume channel is ever open at
// a time, so the model stays strictly cooperative and single-runnable even
// though every thread has a real goroutine stack underneath it.
package thrcore

import (
	"sync"

	"github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"
)

// State is a thread's position in the scheduler state machine (spec 4.1).
type State int

const (
	UNINIT State = iota
	STOPPED
	WAITING
	RUNNING
	READY
	EXITED
)

func (s State) String() string {
	switch s {
	case UNINIT:
		return "UNINIT"
	case STOPPED:
		return "STOPPED"
	case WAITING:
		return "WAITING"
	case RUNNING:
		return "RUNNING"
	case READY:
		return "READY"
	case EXITED:
		return "EXITED"
	default:
		return "UNDEFINED"
	}
}

// ProcessHandle is the minimal view thrcore needs of a process: enough to
// install its address space as the active one on a context switch (spec
// 4.1's suspend_self: "if next has an associated process, switch the active
// page table to that process's mtag"). proccore.Process_t implements this;
// thrcore never imports proccore, to keep the dependency order in SPEC_FULL
// section 2 (thread table before process table).
type ProcessHandle interface {
	Switch()
}

// Thread_t is one kernel thread. The fields mirror struct thread in
// thread.c field-for-field except where Go's goroutine-per-thread model
// removes the need for one (context/stack_base/stack_size become the
// resume channel and a simulated kernel-stack reservation).
type Thread_t struct {
	id   vkdefs.Tid_t
	name string

	mu     sync.Mutex // protects the fields below except where noted
	state  State
	proc   ProcessHandle
	parent *Thread_t

	// childExit is broadcast by exit() and waited on by join/join_any;
	// every thread has one, per spec 3 ("a child_exit condition
	// broadcast when any of its children exit").
	childExit Condition_t

	// listNext links this thread into exactly one of: the ready list, or
	// a single condition's wait list. A thread is never on both, which is
	// the invariant spec 8 tests ("every WAITING thread appears in
	// exactly one condition wait-list").
	listNext *Thread_t

	resume  chan struct{} // signalled to hand this thread the CPU
	kstack  kstackToken
}

func (t *Thread_t) Id() vkdefs.Tid_t { return t.id }
func (t *Thread_t) Name() string    { return t.name }

func (t *Thread_t) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// threadList is the singly-linked FIFO used for both the ready list and
// each condition's wait list, grounded on thread.c's struct thread_list /
// tlinsert / tlremove / tlappend.
type threadList struct {
	head, tail *Thread_t
}

func (l *threadList) empty() bool { return l.head == nil }

func (l *threadList) insert(t *Thread_t) {
	t.listNext = nil
	if l.tail != nil {
		l.tail.listNext = t
	} else {
		l.head = t
	}
	l.tail = t
}

func (l *threadList) remove() *Thread_t {
	t := l.head
	if t == nil {
		return nil
	}
	l.head = t.listNext
	if l.head == nil {
		l.tail = nil
	}
	t.listNext = nil
	return t
}

// Table is the fixed-slot thread table plus the scheduler state that acts
// on it. There is exactly one Table per running kernel; spec 3 requires a
// single RUNNING thread reachable in O(1), which Table.current satisfies.
type Table struct {
	mu    sync.Mutex // the scheduler lock; stands in for "interrupts disabled"
	wake  *sync.Cond // used by the idle thread's wfi-equivalent wait

	slots   [vkdefs.NTHR]*Thread_t
	ready   threadList
	current *Thread_t

	kstacks kstackPool
}

// NewTable builds a fresh thread table with the main thread bound to the
// calling goroutine (state RUNNING, as main_thread starts in thread.c) and
// the idle thread spawned and READY.
func NewTable() *Table {
	tb := &Table{}
	tb.wake = sync.NewCond(&tb.mu)
	tb.kstacks.init()

	main := &Thread_t{
		id:     vkdefs.MainTid,
		name:   "main",
		state:  RUNNING,
		resume: make(chan struct{}),
	}
	main.childExit.name = "main.child_exit"
	tb.slots[vkdefs.MainTid] = main
	tb.current = main

	idle := &Thread_t{
		id:     vkdefs.IdleTid,
		name:   "idle",
		state:  READY,
		resume: make(chan struct{}),
	}
	idle.childExit.name = "idle.child_exit"
	tb.slots[vkdefs.IdleTid] = idle
	tb.ready.insert(idle)
	go func() {
		<-idle.resume
		tb.idleLoop(idle)
	}()

	return tb
}

func (tb *Table) freeSlot() vkdefs.Tid_t {
	for tid := vkdefs.Tid_t(1); tid < vkdefs.IdleTid; tid++ {
		if tb.slots[tid] == nil {
			return tid
		}
	}
	return -1
}

// Spawn allocates a fresh thread-table slot, reserves a kernel stack,
// and enqueues a new READY thread that will run entry(arg) the first time
// it is scheduled (spec 4.1's spawn operation).
func (tb *Table) Spawn(name string, entry func(arg any), arg any) (vkdefs.Tid_t, vkdefs.Err_t) {
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
	child := &Thread_t{
		id:     tid,
		name:   name,
		parent: tb.current,
		proc:   tb.current.proc,
		state:  READY,
		resume: make(chan struct{}),
		kstack: kstackToken{held: true},
	}
	child.childExit.name = name + ".child_exit"
	tb.slots[tid] = child
	tb.readyInsertLocked(child)
	tb.mu.Unlock()

	go func() {
		<-child.resume
		entry(arg)
		tb.exitCurrentFrom(child)
	}()

	return tid, 0
}

func (tb *Table) lookup(tid vkdefs.Tid_t) *Thread_t {
	if tid < 0 || int(tid) >= vkdefs.NTHR {
		return nil
	}
	return tb.slots[tid]
}
