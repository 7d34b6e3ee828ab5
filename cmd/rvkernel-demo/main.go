// Command rvkernel-demo drives the kernel core against the host harness
// for the six end-to-end scenarios named in spec.md section 8: ref-count
// across fork, pipe role-switch, fork return divergence, bounded pipe
// back-pressure, pointer validation, and join-any. Grounded on
// kernel/main.go's boot-then-run style, minus the real hardware probing
// this hosted build has no use for.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Ziheng-Qi/Operating-System-Kernel/fdcore"
	"github.com/Ziheng-Qi/Operating-System-Kernel/hostharness"
	"github.com/Ziheng-Qi/Operating-System-Kernel/proccore"
	"github.com/Ziheng-Qi/Operating-System-Kernel/thrcore"
	"github.com/Ziheng-Qi/Operating-System-Kernel/vkabi"
	"github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"
	"github.com/Ziheng-Qi/Operating-System-Kernel/vklog"
	"github.com/Ziheng-Qi/Operating-System-Kernel/vmcore"
)

// machine bundles one freshly booted core plus the single scratch page
// every scenario stages its syscall arguments through.
type machine struct {
	tb   *thrcore.Table
	pt   *proccore.Table
	d    *vkabi.Dispatcher
	pid  vkdefs.Pid_t
	proc *proccore.Process_t
	va   uintptr
}

func newMachine() *machine {
	phys := vmcore.NewPhysmem(4096)
	tb := thrcore.NewTable()
	pt := proccore.NewTable(phys, tb)

	as, errno := phys.CreateSpace()
	if errno != 0 {
		vklog.Fatal("create address space: %v", errno)
	}
	proc := pt.Bootstrap(as)
	tb.ThreadSetProcess(vkdefs.MainTid, proc)

	const scratch = vmcore.USER_LO
	if errno := as.AllocAndMapRange(scratch, vmcore.PageSize, vmcore.PteR|vmcore.PteW); errno != 0 {
		vklog.Fatal("map scratch page: %v", errno)
	}

	console := fdcore.NewLiteral(make([]byte, 4096))
	ns := hostharness.NewNamespace(console, ".", false)

	d := &vkabi.Dispatcher{
		Threads: tb, Procs: pt, Phys: phys,
		NS: ns, Console: console, Loader: hostharness.ElfLoader{},
	}
	return &machine{tb: tb, pt: pt, d: d, pid: proc.Pid, proc: proc, va: scratch}
}

func (m *machine) syscall(sysno uint64, a0, a1, a2 uint64) int64 {
	tf := &vkdefs.TrapFrame{}
	tf.GPR[vkdefs.TF_A7] = sysno
	tf.GPR[vkdefs.TF_A0] = a0
	tf.GPR[vkdefs.TF_A1] = a1
	tf.GPR[vkdefs.TF_A2] = a2
	m.d.Dispatch(m.pid, tf)
	return int64(tf.GPR[vkdefs.TF_A0])
}

func scenarioRefcountAcrossFork() {
	fmt.Println("-- ref-count across fork --")
	m := newMachine()

	if r := m.syscall(vkdefs.SYS_PIPE, 0, 0, 0); r != 0 {
		vklog.Fatal("pipe: %d", r)
	}
	obj, _ := m.proc.Fd(0)
	n, _ := obj.Ctl(vkdefs.IOCTL_GETREFCNT, 0)
	fmt.Printf("refcount before fork: %d\n", n)

	childPid := m.syscall(vkdefs.SYS_FORK, 0, 0, 0)
	if childPid <= 0 {
		vklog.Fatal("fork: %d", childPid)
	}
	child := m.pt.Lookup(vkdefs.Pid_t(childPid))
	cobj, _ := child.Fd(0)
	n, _ = cobj.Ctl(vkdefs.IOCTL_GETREFCNT, 0)
	fmt.Printf("refcount in child: %d\n", n)

	m.pt.Exit(child.Pid)
	m.tb.JoinAny()

	n, _ = obj.Ctl(vkdefs.IOCTL_GETREFCNT, 0)
	fmt.Printf("refcount after child exit: %d\n", n)
}

func scenarioPipeRoleSwitch() {
	fmt.Println("-- pipe role-switch --")
	m := newMachine()

	if r := m.syscall(vkdefs.SYS_PIPE, 0, 0, 0); r != 0 {
		vklog.Fatal("pipe: %d", r)
	}

	m.proc.AddressSpace().WriteUser(m.va, []byte("abc"))
	n := m.syscall(vkdefs.SYS_WRITE, 0, uint64(m.va), 3)
	fmt.Printf("child-role write: %d bytes\n", n)

	n = m.syscall(vkdefs.SYS_READ, 0, uint64(m.va), 3)
	got := m.proc.AddressSpace().ReadUser(m.va, int(n))
	fmt.Printf("parent-role read: %q\n", got)

	m.proc.AddressSpace().WriteUser(m.va, []byte("XY"))
	n = m.syscall(vkdefs.SYS_WRITE, 0, uint64(m.va), 2)
	fmt.Printf("parent-role write: %d bytes\n", n)

	n = m.syscall(vkdefs.SYS_READ, 0, uint64(m.va), 2)
	got = m.proc.AddressSpace().ReadUser(m.va, int(n))
	fmt.Printf("child-role read: %q\n", got)
}

func scenarioForkReturnDivergence() {
	fmt.Println("-- fork return divergence --")
	m := newMachine()

	m.d.OnFork = func(childPid vkdefs.Pid_t, childFrame *vkdefs.TrapFrame) {
		fmt.Printf("child observes fork() == %d\n", int64(childFrame.GPR[vkdefs.TF_A0]))
		m.pt.Exit(childPid)
	}

	r := m.syscall(vkdefs.SYS_FORK, 0, 0, 0)
	fmt.Printf("parent observes fork() == %d\n", r)
	m.tb.JoinAny()
}

func scenarioBoundedPipeBackpressure() {
	fmt.Println("-- bounded pipe back-pressure --")
	m := newMachine()

	if r := m.syscall(vkdefs.SYS_PIPE, 0, 0, 0); r != 0 {
		vklog.Fatal("pipe: %d", r)
	}
	obj, _ := m.proc.Fd(0)

	payload := make([]byte, 1024)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}

	var written int
	m.tb.Spawn("writer", func(arg any) {
		n, errno := fdcore.Iowrite(obj, payload)
		if errno != 0 {
			vklog.Fatal("writer: %v", errno)
		}
		written = n
	}, nil)

	total := make([]byte, 0, 1024)
	for len(total) < 1024 {
		buf := make([]byte, 512)
		n, errno := fdcore.IoreadFull(obj, buf)
		if errno != 0 {
			vklog.Fatal("reader: %v", errno)
		}
		total = append(total, buf[:n]...)
		fmt.Printf("reader drained %d bytes (total %d)\n", n, len(total))
	}

	m.tb.JoinAny()
	fmt.Printf("writer finished %d bytes, reader collected %d bytes, match=%v\n",
		written, len(total), string(total) == string(payload))
}

func scenarioValidation() {
	fmt.Println("-- pointer validation --")
	m := newMachine()

	straddle := m.va + vmcore.PageSize - 8
	r := m.syscall(vkdefs.SYS_WRITE, 0, uint64(straddle), 16)
	fmt.Printf("write() across unmapped boundary returned %d (want -EFAULT=%d)\n", r, -int64(vkdefs.EFAULT))
}

func scenarioJoinAny() {
	fmt.Println("-- join-any --")
	m := newMachine()

	spawned := map[vkdefs.Tid_t]bool{}
	for i := 0; i < 3; i++ {
		id := i
		tid, errno := m.tb.Spawn(fmt.Sprintf("worker-%d", id), func(arg any) {
			fmt.Printf("worker %d ran\n", id)
		}, nil)
		if errno != 0 {
			vklog.Fatal("spawn: %v", errno)
		}
		spawned[tid] = true
	}

	reaped := map[vkdefs.Tid_t]bool{}
	for i := 0; i < 3; i++ {
		reaped[m.tb.JoinAny()] = true
	}

	match := len(reaped) == len(spawned)
	for tid := range spawned {
		match = match && reaped[tid]
	}
	fmt.Printf("reaped tid set matches spawned tid set: %v\n", match)
}

var scenarios = map[string]func(){
	"refcount":     scenarioRefcountAcrossFork,
	"pipe":         scenarioPipeRoleSwitch,
	"fork":         scenarioForkReturnDivergence,
	"backpressure": scenarioBoundedPipeBackpressure,
	"validation":   scenarioValidation,
	"joinany":      scenarioJoinAny,
}

func main() {
	name := flag.String("scenario", "all", "one of: refcount, pipe, fork, backpressure, validation, joinany, all")
	flag.Parse()

	if *name == "all" {
		for _, key := range []string{"refcount", "pipe", "fork", "backpressure", "validation", "joinany"} {
			scenarios[key]()
		}
		return
	}

	run, ok := scenarios[*name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown scenario %q\n", *name)
		os.Exit(1)
	}
	run()
}
