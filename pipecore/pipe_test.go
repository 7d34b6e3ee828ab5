package pipecore

import (
	"testing"

	"github.com/Ziheng-Qi/Operating-System-Kernel/thrcore"
)

func TestRoundTripWithinCapacity(t *testing.T) {
	tb := thrcore.NewTable()
	p := New(tb)

	tb.Spawn("writer", func(arg any) {
		p.Write([]byte("hello, pipe"))
		tb.Exit()
	}, nil)

	buf := make([]byte, 32)
	var n int
	tb.Spawn("reader", func(arg any) {
		n, _ = p.Read(buf)
		tb.Exit()
	}, nil)

	tb.JoinAny()
	tb.JoinAny()

	if string(buf[:n]) != "hello, pipe" {
		t.Fatalf("read %q, want %q", buf[:n], "hello, pipe")
	}
}

func TestBackpressureAcrossCapacity(t *testing.T) {
	tb := thrcore.NewTable()
	p := New(tb)

	payload := make([]byte, 1024)
	for i := range payload {
		payload[i] = byte(i)
	}

	tb.Spawn("writer", func(arg any) {
		p.Write(payload)
		tb.Exit()
	}, nil)

	got := make([]byte, 0, 1024)
	tb.Spawn("reader", func(arg any) {
		buf := make([]byte, 512)
		for len(got) < len(payload) {
			n, _ := p.Read(buf)
			got = append(got, buf[:n]...)
		}
		tb.Exit()
	}, nil)

	tb.JoinAny()
	tb.JoinAny()

	if len(got) != len(payload) {
		t.Fatalf("read %d bytes, want %d", len(got), len(payload))
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], payload[i])
		}
	}
}

func TestRefcountAcrossCloseLifecycle(t *testing.T) {
	p := New(thrcore.NewTable())
	if p.Refcnt() != 1 {
		t.Fatalf("new pipe refcnt = %d, want 1", p.Refcnt())
	}

	p.Refup()
	if p.Refcnt() != 2 {
		t.Fatalf("after refup = %d, want 2", p.Refcnt())
	}

	p.Close()
	if p.Refcnt() != 1 {
		t.Fatalf("after one close = %d, want 1", p.Refcnt())
	}
	p.Close()
	if p.Refcnt() != 0 {
		t.Fatalf("after second close = %d, want 0", p.Refcnt())
	}
}

func TestFillNeverExceedsCapacity(t *testing.T) {
	tb := thrcore.NewTable()
	p := New(tb)

	big := make([]byte, 5*Capacity)
	done := make(chan struct{})

	tb.Spawn("writer", func(arg any) {
		p.Write(big)
		tb.Exit()
	}, nil)

	tb.Spawn("reader", func(arg any) {
		buf := make([]byte, 64)
		total := 0
		for total < len(big) {
			n, _ := p.Read(buf)

			p.mu.Lock()
			if p.fill < 0 || p.fill > Capacity {
				t.Errorf("fill = %d, out of [0, %d]", p.fill, Capacity)
			}
			if p.head < 0 || p.head >= Capacity || p.tail < 0 || p.tail >= Capacity {
				t.Errorf("head/tail out of range: head=%d tail=%d", p.head, p.tail)
			}
			p.mu.Unlock()

			total += n
		}
		close(done)
		tb.Exit()
	}, nil)

	tb.JoinAny()
	tb.JoinAny()
	<-done
}
