package vmcore

import "encoding/binary"

// Pte_t is one Sv39 page-table entry: a frame number plus permission bits,
// matching spec 3's "leaf entry encodes a 4 KiB physical frame with
// permission bits {R, W, X, U, G, A, D, V}". Table frames are modeled as
// ordinary Physmem_t frames whose bytes are interpreted as NPTE little-
// endian uint64s via encoding/binary, rather than through the unsafe.Pointer
// cast biscuit's Pg2bytes/pg2pmap use over a real direct map -- there is no
// real DRAM under this library to point unsafe.Pointer at.
type Pte_t uint64

const (
	PteV Pte_t = 1 << 0 // valid
	PteR Pte_t = 1 << 1 // readable
	PteW Pte_t = 1 << 2 // writable
	PteX Pte_t = 1 << 3 // executable
	PteU Pte_t = 1 << 4 // user-accessible
	PteG Pte_t = 1 << 5 // global
	PteA Pte_t = 1 << 6 // accessed
	PteD Pte_t = 1 << 7 // dirty

	pteFlagBits = 10 // Sv39 reserves the low 10 bits for flags
)

func (e Pte_t) valid() bool { return e&PteV != 0 }
func (e Pte_t) frame() Pn_t { return Pn_t(e >> pteFlagBits) }

func mkPte(pn Pn_t, flags Pte_t) Pte_t {
	return Pte_t(pn)<<pteFlagBits | flags | PteV
}

// readPte/writePte index NPTE little-endian uint64 slots within a table
// frame's byte storage.
func readPte(bytes *[PageSize]byte, i int) Pte_t {
	return Pte_t(binary.LittleEndian.Uint64(bytes[i*8 : i*8+8]))
}

func writePte(bytes *[PageSize]byte, i int, e Pte_t) {
	binary.LittleEndian.PutUint64(bytes[i*8:i*8+8], uint64(e))
}

// vpn splits a page-aligned virtual address into its three Sv39 level
// indices, each 9 bits wide, most significant level first.
func vpn(va uintptr) [3]int {
	page := va / PageSize
	return [3]int{
		int((page >> 18) & 0x1ff),
		int((page >> 9) & 0x1ff),
		int(page & 0x1ff),
	}
}

// walk descends the three levels of root starting at pn, allocating
// intermediate tables along the way when alloc is true. Returns the final
// table frame and the index of the leaf slot within it.
func (p *Physmem_t) walk(root Pn_t, va uintptr, alloc bool) (Pn_t, int, bool) {
	idx := vpn(va)
	cur := root
	for level := 0; level < 2; level++ {
		bytes := p.bytesOf(cur)
		e := readPte(bytes, idx[level])
		if !e.valid() {
			if !alloc {
				return noFrame, 0, false
			}
			child, ok := p.allocFrame()
			if !ok {
				return noFrame, 0, false
			}
			writePte(bytes, idx[level], mkPte(child, 0))
			cur = child
		} else {
			cur = e.frame()
		}
	}
	return cur, idx[2], true
}

// mapPage installs a leaf PTE for va in root with the given permission
// flags, allocating intermediate tables as needed. Returns false on
// allocator exhaustion (spec 4.3: memory_alloc_and_map_range).
func (p *Physmem_t) mapPage(root Pn_t, va uintptr, leaf Pn_t, flags Pte_t) bool {
	table, i, ok := p.walk(root, va, true)
	if !ok {
		return false
	}
	writePte(p.bytesOf(table), i, mkPte(leaf, flags))
	return true
}

// lookupPage returns the leaf PTE mapping va in root, if any.
func (p *Physmem_t) lookupPage(root Pn_t, va uintptr) (Pte_t, bool) {
	table, i, ok := p.walk(root, va, false)
	if !ok {
		return 0, false
	}
	e := readPte(p.bytesOf(table), i)
	if !e.valid() {
		return 0, false
	}
	return e, true
}

// freeTree walks every entry of a root rooted at pn down level levels,
// releasing leaf frames (level 0) and intermediate tables alike. Used by
// memory_space_reclaim/destroy.
func (p *Physmem_t) freeTree(pn Pn_t, level int) {
	if level > 0 {
		bytes := p.bytesOf(pn)
		for i := 0; i < NPTE; i++ {
			e := readPte(bytes, i)
			if e.valid() {
				p.freeTree(e.frame(), level-1)
			}
		}
	}
	p.refDown(pn)
}
