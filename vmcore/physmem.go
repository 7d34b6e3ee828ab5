// Package vmcore implements the Sv39 virtual memory subsystem: a
// reference-counted physical frame allocator, three-level page tables, and
// per-process address-space create/switch/clone/reclaim. It is grounded on
// biscuit's mem.Physmem_t/vm.Pmap_t (x86-64, four levels, real DRAM via
// unsafe.Pointer over a direct map) adapted to Sv39's three levels and to a
// simulated physical memory backed by plain []byte frames, since this
// module runs as a library rather than booted on hardware.
package vmcore

import "sync"

const (
	// PageSize is the Sv39 leaf page size.
	PageSize = 4096
	// NPTE is the number of entries per page-table level.
	NPTE = 512
)

// frame_t is a simulated physical page: PageSize bytes of storage plus a
// reference count, mirroring biscuit's Physpg_t/Pg_t pairing but without a
// direct-mapped address -- the frame itself IS the storage.
type frame_t struct {
	bytes  [PageSize]byte
	refcnt int32
	nexti  int32 // free-list link; -1 terminates
}

// Physmem_t is the frame allocator: a flat slice of frames plus a singly
// linked free list threaded through frame_t.nexti, exactly biscuit's
// Physmem_t.Pgs/freei/freelen scheme minus the per-CPU free lists (no SMP,
// per spec.md non-goals).
type Physmem_t struct {
	mu     sync.Mutex
	frames []*frame_t
	freei  int32 // -1 when empty
	nfree  int

	kernelTable Pn_t // shared kernel-window subtree, lazily allocated
	active      *AddressSpace_t
}

// NewPhysmem allocates a frame pool of the given capacity, every frame
// initially free.
func NewPhysmem(capacity int) *Physmem_t {
	p := &Physmem_t{frames: make([]*frame_t, capacity), freei: -1, kernelTable: -1}
	for i := capacity - 1; i >= 0; i-- {
		f := &frame_t{nexti: p.freei}
		p.frames[i] = f
		p.freei = int32(i)
		p.nfree++
	}
	return p
}

// Pn_t identifies a frame by index into the pool -- the simulated
// equivalent of a physical page number.
type Pn_t int32

const noFrame Pn_t = -1

// allocFrame removes one frame from the free list, zeroed, refcount 1.
// Returns noFrame, false if the pool is exhausted (spec 4.3: "allocation
// failures surface as -ENOMEM").
func (p *Physmem_t) allocFrame() (Pn_t, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.freei < 0 {
		return noFrame, false
	}
	idx := p.freei
	f := p.frames[idx]
	p.freei = f.nexti
	p.nfree--

	for i := range f.bytes {
		f.bytes[i] = 0
	}
	f.refcnt = 1
	return Pn_t(idx), true
}

// refUp increments pn's reference count, mirroring Physmem_t.Refup.
func (p *Physmem_t) refUp(pn Pn_t) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames[pn].refcnt++
}

// refDown decrements pn's reference count and returns the frame to the free
// list once it reaches zero, mirroring Physmem_t.Refdown.
func (p *Physmem_t) refDown(pn Pn_t) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f := p.frames[pn]
	f.refcnt--
	if f.refcnt < 0 {
		panic("vmcore: frame refcount went negative")
	}
	if f.refcnt == 0 {
		f.nexti = p.freei
		p.freei = int32(pn)
		p.nfree++
	}
}

// bytesOf returns the frame's backing storage for direct byte access, the
// simulated stand-in for Physmem_t.Dmap's direct-mapped *Pg_t.
func (p *Physmem_t) bytesOf(pn Pn_t) *[PageSize]byte {
	return &p.frames[pn].bytes
}

// Free reports the number of unallocated frames, for tests asserting the
// pool returns to its starting size once an address space is destroyed.
func (p *Physmem_t) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nfree
}
