package proccore

import "github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"

// Fork implements process_fork (spec 4.4's seven-step algorithm), called by
// the syscall dispatcher on behalf of the thread currently running inside
// parentPid. body is the child's continuation: the dispatcher supplies a
// closure that re-enters trap-return with the child's copy of the trap
// frame, its a0 slot already overwritten with 0 (step 7 -- the divergence
// is realized here, by the dispatcher, not inside Fork itself, since only
// the dispatcher knows the trap-frame shape of the calling convention it's
// driving).
//
// Supplemented from original_source/src/kern/thread.c's
// thread_fork_to_user: step 3's kernel-stack mirroring is realized instead
// by thrcore.SpawnForked handing the child a fresh goroutine stack and the
// dispatcher replaying the parent's already-decoded trap frame into it --
// there is no raw kernel stack to memcpy in a library with one real Go
// stack per thread, so the "mirrored offset copy" is the trap frame value
// itself, passed by the caller.
// childBody is the dispatcher-supplied continuation that runs inside the
// child thread once SpawnForked has handed it control: typically "rewrite
// trap frame a0 to 0 and resume the trap-return loop." Fork itself has no
// notion of trap frames; it only arranges for this closure to run with the
// child's Process_t already installed as its thrcore.ProcessHandle.
func (pt *Table) Fork(parentPid vkdefs.Pid_t, childBody func(child *Process_t)) (vkdefs.Pid_t, vkdefs.Err_t) {
	pt.mu.Lock()
	parent := pt.lookup(parentPid)
	if parent == nil {
		pt.mu.Unlock()
		panic("proccore: fork from unknown pid")
	}
	childPid := pt.freeSlot()
	if childPid < 0 {
		pt.mu.Unlock()
		return 0, vkdefs.EAGAIN
	}
	pt.mu.Unlock()

	// Step 1: clone the address space.
	childAs, errno := pt.phys.Clone(parent.AddressSpace())
	if errno != 0 {
		return 0, errno
	}

	child := &Process_t{Pid: childPid, as: childAs}

	// Step 2: copy the descriptor table, ref-counting every shared object.
	parent.mu.Lock()
	for i, obj := range parent.fds {
		if obj == nil {
			continue
		}
		dupForChild(obj)
		child.fds[i] = obj
	}
	parent.mu.Unlock()

	pt.mu.Lock()
	pt.slots[childPid] = child
	pt.mu.Unlock()

	// Steps 3-6 (kernel-stack mirroring, child RUNNING / parent READY,
	// address-space switch) are thrcore.SpawnForked's job; see the note
	// above for why there is no literal stack-byte copy here.
	tid, errno := pt.tb.SpawnForked("proc.fork.child", child, func() {
		if childBody != nil {
			childBody(child)
		}
	})
	if errno != 0 {
		pt.mu.Lock()
		pt.slots[childPid] = nil
		pt.mu.Unlock()
		pt.phys.Destroy(childAs)
		return 0, errno
	}
	child.tid0 = tid

	return childPid, 0
}
