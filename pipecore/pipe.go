// Package pipecore implements the inter-process pipe: a 512-byte circular
// buffer shared across fork, with multi-reader/multi-writer blocking
// semantics. Grounded on original_source/src/kern/thread.c's condition
// primitives (reused here via thrcore.Condition_t) and on the generic shape
// of biscuit's fd/pipe handling, adapted to the core's own condition type
// rather than biscuit's own pipe implementation (biscuit's pipes are
// mediated by Go channels internally; this one is the hand-rolled
// circular-buffer bus spec.md 4.5 describes).
package pipecore

import (
	"sync"

	"github.com/Ziheng-Qi/Operating-System-Kernel/thrcore"
	"github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"
)

// Capacity is the pipe's fixed buffer size (spec 3: "a shared bounded FIFO
// (512 bytes)").
const Capacity = 512

// Pipe_t is the shared bounded buffer plus its synchronization state. One
// Pipe_t backs every descriptor-table slot created by the pipe syscall and
// every copy of that slot made across fork.
type Pipe_t struct {
	tb *thrcore.Table

	mu   sync.Mutex
	buf  [Capacity]byte
	head int
	tail int
	fill int

	refcnt int

	notFull  *thrcore.Condition_t
	notEmpty *thrcore.Condition_t
}

// New creates a pipe with reference count 1, as installed by the pipe
// syscall into the caller's descriptor table.
func New(tb *thrcore.Table) *Pipe_t {
	return &Pipe_t{
		tb:       tb,
		refcnt:   1,
		notFull:  thrcore.NewCondition("pipe.not_full"),
		notEmpty: thrcore.NewCondition("pipe.not_empty"),
	}
}

// Refup increments the pipe's reference count, called once per copied
// descriptor slot at fork time (spec 3: "inherited (ref-count incremented)
// by every child across fork").
func (p *Pipe_t) Refup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refcnt++
}

// Write implements pipe_write: while fill == capacity, wait on not_full;
// copy up to min(n, capacity-fill) bytes at the tail, advance, broadcast
// not_empty. A write larger than the buffer proceeds in repeated fill-drain
// cycles (spec 4.5).
func (p *Pipe_t) Write(data []byte) (int, vkdefs.Err_t) {
	written := 0
	for written < len(data) {
		p.mu.Lock()
		for p.fill == Capacity {
			p.mu.Unlock()
			p.notFull.Wait(p.tb)
			p.mu.Lock()
		}

		n := Capacity - p.fill
		if room := len(data) - written; room < n {
			n = room
		}
		for i := 0; i < n; i++ {
			p.buf[p.tail] = data[written+i]
			p.tail = (p.tail + 1) % Capacity
		}
		p.fill += n
		written += n
		p.mu.Unlock()

		p.notEmpty.Broadcast(p.tb)
	}
	return written, 0
}

// Read implements pipe_read: while fill == 0, wait on not_empty; copy up to
// min(n, fill) bytes from head, advance, broadcast not_full.
func (p *Pipe_t) Read(buf []byte) (int, vkdefs.Err_t) {
	p.mu.Lock()
	for p.fill == 0 {
		p.mu.Unlock()
		p.notEmpty.Wait(p.tb)
		p.mu.Lock()
	}

	n := p.fill
	if len(buf) < n {
		n = len(buf)
	}
	for i := 0; i < n; i++ {
		buf[i] = p.buf[p.head]
		p.head = (p.head + 1) % Capacity
	}
	p.fill -= n
	p.mu.Unlock()

	p.notFull.Broadcast(p.tb)
	return n, 0
}

// Close implements pipe_close: decrement the reference count; the buffer
// and conditions are released (garbage collected) once nothing references
// this Pipe_t anymore, there being no explicit free in Go.
func (p *Pipe_t) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refcnt--
	if p.refcnt < 0 {
		panic("pipecore: pipe refcount went negative")
	}
}

// Refcnt reports the current reference count, for GETREFCNT and tests.
func (p *Pipe_t) Refcnt() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refcnt
}

// Ioctl implements pipe_ioctl: report capacity/fill on request, ENOTSUP for
// everything else.
func (p *Pipe_t) Ioctl(cmd int, arg int) (int, vkdefs.Err_t) {
	switch cmd {
	case vkdefs.IOCTL_GETLEN:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.fill, 0
	case vkdefs.IOCTL_GETBLKSZ:
		p.mu.Lock()
		defer p.mu.Unlock()
		return Capacity - p.fill, 0
	case vkdefs.IOCTL_GETREFCNT:
		return p.Refcnt(), 0
	default:
		return 0, vkdefs.ENOTSUP
	}
}
