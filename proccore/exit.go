package proccore

import "github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"

// Exit implements the process side of exit (spec 4.4): release every
// descriptor (closing objects whose reference count reaches zero),
// reclaim the address space, then mark the calling thread EXITED and
// broadcast the parent's child_exit -- the latter two done by
// thrcore.Table.Exit, called by the dispatcher after this returns.
func (pt *Table) Exit(pid vkdefs.Pid_t) {
	pt.mu.Lock()
	p := pt.lookup(pid)
	pt.mu.Unlock()
	if p == nil {
		panic("proccore: exit of unknown pid")
	}

	p.mu.Lock()
	for i, obj := range p.fds {
		if obj != nil {
			obj.Close()
			p.fds[i] = nil
		}
	}
	p.mu.Unlock()

	pt.phys.Destroy(p.as)

	pt.mu.Lock()
	pt.slots[pid] = nil
	pt.mu.Unlock()
}
