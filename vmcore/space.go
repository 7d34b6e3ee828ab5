package vmcore

import "github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"

// User-window bounds (spec 4.3: "User programs live in a fixed user window
// [USER_LO, USER_HI) with U=1"). Kernel window occupies the top-level slot
// below USER_LO and is shared by every address space.
const (
	USER_LO uintptr = 1 << 30 // 1 GiB
	USER_HI uintptr = 2 << 30 // 2 GiB
)

// Mtag_t is the opaque root-page-table handle named in the glossary:
// "sufficient to install that table as the current address space."
type Mtag_t Pn_t

// AddressSpace_t is one process's user address space: a root page table
// plus bookkeeping of which VA ranges have been mapped, grounded on
// biscuit's vm.Aspace_t minus the mmap/vma machinery this core doesn't need.
type AddressSpace_t struct {
	phys   *Physmem_t
	root   Pn_t
	demand []onDemandRange
}

// CreateSpace implements memory_space_create: a fresh root with the kernel
// window's top-level entry installed so kernel mappings are shared by every
// address space (spec 9: "the global kernel range must be installed into
// every new mtag... share intermediate page-table pages").
func (p *Physmem_t) CreateSpace() (*AddressSpace_t, vkdefs.Err_t) {
	root, ok := p.allocFrame()
	if !ok {
		return nil, vkdefs.ENOMEM
	}

	p.mu.Lock()
	kernelTable := p.kernelTable
	p.mu.Unlock()
	if kernelTable < 0 {
		child, ok := p.allocFrame()
		if !ok {
			return nil, vkdefs.ENOMEM
		}
		p.mu.Lock()
		p.kernelTable = child
		p.mu.Unlock()
		kernelTable = child
	}

	p.refUp(kernelTable)
	writePte(p.bytesOf(root), vpn(0)[0], mkPte(kernelTable, PteV))

	return &AddressSpace_t{phys: p, root: root}, 0
}

// Mtag returns the opaque handle for this address space's root table.
func (as *AddressSpace_t) Mtag() Mtag_t { return Mtag_t(as.root) }

// Switch installs this address space as the active translation (spec:
// memory_space_switch "write SATP, fence"). There being no real SATP
// register in this library, "active" means "the address space
// memory_validate_* and page-fault handling operate against", tracked on
// the allocator itself.
func (as *AddressSpace_t) Switch() {
	as.phys.mu.Lock()
	as.phys.active = as
	as.phys.mu.Unlock()
}

// Active returns the address space most recently installed via Switch, or
// nil if none has been yet.
func (p *Physmem_t) Active() *AddressSpace_t {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// AllocAndMapRange implements memory_alloc_and_map_range: allocate and map
// a fresh frame for every 4 KiB span in [va, va+len).
func (as *AddressSpace_t) AllocAndMapRange(va uintptr, length int, flags Pte_t) vkdefs.Err_t {
	start := va - (va % PageSize)
	end := va + uintptr(length)
	for a := start; a < end; a += PageSize {
		frame, ok := as.phys.allocFrame()
		if !ok {
			return vkdefs.ENOMEM
		}
		if !as.phys.mapPage(as.root, a, frame, flags|PteU) {
			return vkdefs.ENOMEM
		}
	}
	return 0
}

// onDemandRange is a single pre-declared demand-paged span, consulted by
// HandlePageFault.
type onDemandRange struct {
	lo, hi uintptr
	flags  Pte_t
}

// DeclareOnDemand registers [lo, hi) as demand-paged with the given
// permissions, consulted by HandlePageFault (spec 4.3: "if va lies in a
// pre-declared on-demand range with known permissions, allocate and map").
func (as *AddressSpace_t) DeclareOnDemand(lo, hi uintptr, flags Pte_t) {
	as.demand = append(as.demand, onDemandRange{lo, hi, flags})
}

// HandlePageFault implements memory_handle_page_fault. ok is false when va
// falls outside every on-demand range, meaning the fault propagates to the
// owning process as fatal.
func (as *AddressSpace_t) HandlePageFault(va uintptr) (ok bool, errno vkdefs.Err_t) {
	for _, r := range as.demand {
		if va >= r.lo && va < r.hi {
			return true, as.AllocAndMapRange(va, 1, r.flags)
		}
	}
	return false, vkdefs.EFAULT
}

// Clone implements memory_space_clone: physically duplicate every
// user-visible mapping into a fresh root. Full copy, not copy-on-write, per
// spec 4.3/4.4 ("physically duplicated").
func (p *Physmem_t) Clone(parent *AddressSpace_t) (*AddressSpace_t, vkdefs.Err_t) {
	child, errno := p.CreateSpace()
	if errno != 0 {
		return nil, errno
	}
	child.demand = append(child.demand, parent.demand...)

	for va := USER_LO; va < USER_HI; va += PageSize {
		e, ok := p.lookupPage(parent.root, va)
		if !ok {
			continue
		}
		frame, ok := p.allocFrame()
		if !ok {
			p.Destroy(child)
			return nil, vkdefs.ENOMEM
		}
		*p.bytesOf(frame) = *p.bytesOf(e.frame())
		flags := e & (PteR | PteW | PteX | PteU | PteG)
		if !p.mapPage(child.root, va, frame, flags) {
			p.Destroy(child)
			return nil, vkdefs.ENOMEM
		}
	}
	return child, 0
}

// Destroy frees every user leaf frame and intermediate table below the
// root, then the root itself (memory_space_reclaim/destroy). The globally
// shared kernel subtree is only ref-counted down, never walked.
func (p *Physmem_t) Destroy(as *AddressSpace_t) {
	p.mu.Lock()
	kernelTable := p.kernelTable
	p.mu.Unlock()

	bytes := p.bytesOf(as.root)
	for i := 0; i < NPTE; i++ {
		e := readPte(bytes, i)
		if !e.valid() {
			continue
		}
		if i == vpn(0)[0] && e.frame() == kernelTable {
			p.refDown(e.frame())
			continue
		}
		p.freeTree(e.frame(), 2)
	}
	p.refDown(as.root)
}
