package thrcore

import (
	"sync"
	"testing"

	"github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"
)

func TestSpawnYieldExit(t *testing.T) {
	tb := NewTable()

	var mu sync.Mutex
	ran := false

	tid, err := tb.Spawn("worker", func(arg any) {
		tb.Yield()
		mu.Lock()
		ran = true
		mu.Unlock()
		tb.Exit()
	}, nil)
	if err != 0 {
		t.Fatalf("spawn: %v", err)
	}

	tb.JoinAny()

	mu.Lock()
	defer mu.Unlock()
	if !ran {
		t.Fatalf("worker %v never ran", tid)
	}
}

func TestJoinSpecificTid(t *testing.T) {
	tb := NewTable()

	tidA, _ := tb.Spawn("a", func(arg any) { tb.Exit() }, nil)
	tidB, _ := tb.Spawn("b", func(arg any) { tb.Exit() }, nil)

	got, err := tb.Join(tidB)
	if err != 0 {
		t.Fatalf("join tidB: %v", err)
	}
	if got != tidB {
		t.Fatalf("join returned %v, want %v", got, tidB)
	}

	got, err = tb.Join(tidA)
	if err != 0 {
		t.Fatalf("join tidA: %v", err)
	}
	if got != tidA {
		t.Fatalf("join returned %v, want %v", got, tidA)
	}
}

func TestJoinNotAChild(t *testing.T) {
	tb := NewTable()

	var grandchild vkdefs.Tid_t
	done := make(chan struct{})
	tb.Spawn("parent", func(arg any) {
		tid, _ := tb.Spawn("child", func(arg any) {
			tb.Exit()
		}, nil)
		grandchild = tid
		close(done)
		tb.JoinAny()
		tb.Exit()
	}, nil)

	tb.Yield()
	<-done

	_, err := tb.Join(grandchild)
	if err != vkdefs.ECHILD {
		t.Fatalf("join of non-child returned %v, want ECHILD", err)
	}
}

func TestJoinAnyWithoutChildrenPanics(t *testing.T) {
	tb := NewTable()

	defer func() {
		if recover() == nil {
			t.Fatalf("join_any with no children did not panic")
		}
	}()
	tb.JoinAny()
}

func TestSpawnExhaustsTable(t *testing.T) {
	tb := NewTable()

	block := make(chan struct{})
	for i := 0; i < vkdefs.NTHR-2; i++ {
		if _, err := tb.Spawn("filler", func(arg any) {
			<-block
			tb.Exit()
		}, nil); err != 0 {
			t.Fatalf("spawn %d: %v", i, err)
		}
	}

	if _, err := tb.Spawn("overflow", func(arg any) {}, nil); err != vkdefs.EAGAIN {
		t.Fatalf("spawn past capacity returned %v, want EAGAIN", err)
	}

	close(block)
	for i := 0; i < vkdefs.NTHR-2; i++ {
		tb.JoinAny()
	}
}

func TestJoinAnyReturnsEverySpawnedTid(t *testing.T) {
	tb := NewTable()

	const n = 6
	want := map[vkdefs.Tid_t]bool{}
	for i := 0; i < n; i++ {
		tid, err := tb.Spawn("worker", func(arg any) { tb.Exit() }, nil)
		if err != 0 {
			t.Fatalf("spawn %d: %v", i, err)
		}
		want[tid] = true
	}

	got := map[vkdefs.Tid_t]bool{}
	for i := 0; i < n; i++ {
		got[tb.JoinAny()] = true
	}

	if len(got) != len(want) {
		t.Fatalf("join_any returned %d distinct tids, want %d", len(got), len(want))
	}
	for tid := range want {
		if !got[tid] {
			t.Fatalf("join_any never returned spawned tid %v", tid)
		}
	}
}

func TestKstackPoolDrains(t *testing.T) {
	tb := NewTable()

	const n = 4
	for i := 0; i < n; i++ {
		tb.Spawn("worker", func(arg any) { tb.Exit() }, nil)
	}
	if tb.InUse() != n {
		t.Fatalf("InUse = %d while threads still running, want %d", tb.InUse(), n)
	}

	for i := 0; i < n; i++ {
		tb.JoinAny()
	}
	if tb.InUse() != 0 {
		t.Fatalf("InUse = %d after all threads joined, want 0", tb.InUse())
	}
}

func TestConditionBroadcastPreservesFIFOOrder(t *testing.T) {
	tb := NewTable()
	cond := NewCondition("test")

	const n = 5
	order := make(chan vkdefs.Tid_t, n)
	var mu sync.Mutex
	predicate := false

	var spawned []vkdefs.Tid_t
	for i := 0; i < n; i++ {
		tid, _ := tb.Spawn("waiter", func(arg any) {
			me := tb.CurrentTid()
			mu.Lock()
			for !predicate {
				mu.Unlock()
				cond.Wait(tb)
				mu.Lock()
			}
			mu.Unlock()
			order <- me
			tb.Exit()
		}, nil)
		spawned = append(spawned, tid)
	}

	// Let every spawned thread reach cond.Wait before broadcasting.
	for i := 0; i < n; i++ {
		tb.Yield()
	}

	mu.Lock()
	predicate = true
	mu.Unlock()
	cond.Broadcast(tb)

	for i := 0; i < n; i++ {
		tb.JoinAny()
	}
	close(order)

	count := 0
	for tid := range order {
		if count < n && tid != spawned[count] {
			t.Fatalf("wakeup %d was tid %v, want %v (wait order)", count, tid, spawned[count])
		}
		count++
	}
	if count != n {
		t.Fatalf("got %d wakeups, want %d", count, n)
	}
}

type fakeProcess struct {
	switched int
}

func (p *fakeProcess) Switch() { p.switched++ }

func TestSpawnForkedSwitchesAddressSpace(t *testing.T) {
	tb := NewTable()
	parentProc := &fakeProcess{}
	tb.ThreadSetProcess(vkdefs.MainTid, parentProc)

	childProc := &fakeProcess{}
	ran := false
	tid, err := tb.SpawnForked("child", childProc, func() {
		ran = true
	})
	if err != 0 {
		t.Fatalf("spawn_forked: %v", err)
	}
	if childProc.switched == 0 {
		t.Fatalf("child process was never switched to")
	}
	if !ran {
		t.Fatalf("forked body never ran")
	}

	got, err := tb.Join(tid)
	if err != 0 || got != tid {
		t.Fatalf("join forked child: tid=%v err=%v", got, err)
	}
}
