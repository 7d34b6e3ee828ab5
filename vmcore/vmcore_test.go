package vmcore

import (
	"testing"

	"github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"
)

func TestAllocAndMapRangeThenValidate(t *testing.T) {
	p := NewPhysmem(64)
	as, errno := p.CreateSpace()
	if errno != 0 {
		t.Fatalf("create_space: %v", errno)
	}

	if errno := as.AllocAndMapRange(USER_LO, 16, PteR|PteW); errno != 0 {
		t.Fatalf("alloc_and_map_range: %v", errno)
	}

	if errno := as.ValidatePtrLen(USER_LO, 16, PteR|PteW); errno != 0 {
		t.Fatalf("validate mapped range: %v", errno)
	}
	if errno := as.ValidatePtrLen(USER_LO+PageSize, 16, PteR); errno != vkdefs.EFAULT {
		t.Fatalf("validate unmapped range = %v, want EFAULT", errno)
	}
}

func TestValidatePtrLenStraddlingUnmappedPage(t *testing.T) {
	p := NewPhysmem(64)
	as, _ := p.CreateSpace()

	// map only the first page of a two-page span
	if errno := as.AllocAndMapRange(USER_LO, PageSize, PteR|PteW); errno != 0 {
		t.Fatalf("alloc_and_map_range: %v", errno)
	}

	ptr := USER_LO + PageSize - 8
	if errno := as.ValidatePtrLen(ptr, 16, PteR); errno != vkdefs.EFAULT {
		t.Fatalf("straddling span validated as %v, want EFAULT", errno)
	}
}

func TestValidateStrStopsAtNUL(t *testing.T) {
	p := NewPhysmem(64)
	as, _ := p.CreateSpace()
	as.AllocAndMapRange(USER_LO, PageSize, PteR|PteW)

	msg := []byte("hello\x00garbage")
	as.WriteUser(USER_LO, msg)

	n, errno := as.ValidateStr(USER_LO, PteR)
	if errno != 0 {
		t.Fatalf("validate_str: %v", errno)
	}
	if n != 5 {
		t.Fatalf("validate_str length = %d, want 5", n)
	}
}

func TestCloneDuplicatesContentsDisjointly(t *testing.T) {
	p := NewPhysmem(64)
	parent, _ := p.CreateSpace()
	parent.AllocAndMapRange(USER_LO, PageSize, PteR|PteW)
	parent.WriteUser(USER_LO, []byte("parent data"))

	child, errno := p.Clone(parent)
	if errno != 0 {
		t.Fatalf("clone: %v", errno)
	}

	got := child.ReadUser(USER_LO, len("parent data"))
	if string(got) != "parent data" {
		t.Fatalf("child content = %q, want %q", got, "parent data")
	}

	child.WriteUser(USER_LO, []byte("child write!"))
	parentAfter := parent.ReadUser(USER_LO, len("parent data"))
	if string(parentAfter) != "parent data" {
		t.Fatalf("write through child mutated parent: %q", parentAfter)
	}
}

func TestDestroyReturnsFramesToPool(t *testing.T) {
	p := NewPhysmem(64)
	// The shared kernel subtree is allocated by the first CreateSpace and
	// stays allocated for the pool's lifetime; bring it into existence
	// before taking the baseline.
	p.CreateSpace()
	before := p.Free()

	as, _ := p.CreateSpace()
	as.AllocAndMapRange(USER_LO, 4*PageSize, PteR|PteW)

	p.Destroy(as)
	if p.Free() != before {
		t.Fatalf("Free() = %d after destroy, want %d", p.Free(), before)
	}
}

func TestAllocFrameExhaustion(t *testing.T) {
	p := NewPhysmem(2)
	if _, ok := p.allocFrame(); !ok {
		t.Fatalf("first alloc should succeed")
	}
	if _, ok := p.allocFrame(); !ok {
		t.Fatalf("second alloc should succeed")
	}
	if _, ok := p.allocFrame(); ok {
		t.Fatalf("third alloc should fail: pool exhausted")
	}
}

func TestHandlePageFaultOnDemandRange(t *testing.T) {
	p := NewPhysmem(64)
	as, _ := p.CreateSpace()
	as.DeclareOnDemand(USER_LO, USER_LO+PageSize, PteR|PteW)

	ok, errno := as.HandlePageFault(USER_LO)
	if !ok || errno != 0 {
		t.Fatalf("handle_page_fault on-demand: ok=%v errno=%v", ok, errno)
	}
	if errno := as.ValidatePtrLen(USER_LO, 8, PteR); errno != 0 {
		t.Fatalf("range not mapped after fault: %v", errno)
	}

	ok, errno = as.HandlePageFault(USER_LO + 10*PageSize)
	if ok || errno != vkdefs.EFAULT {
		t.Fatalf("handle_page_fault outside range: ok=%v errno=%v, want false/EFAULT", ok, errno)
	}
}

func TestKernelWindowSharedAcrossSpaces(t *testing.T) {
	p := NewPhysmem(64)
	a, _ := p.CreateSpace()
	b, _ := p.CreateSpace()

	top := vpn(0)[0]
	eA := readPte(p.bytesOf(a.root), top)
	eB := readPte(p.bytesOf(b.root), top)
	if !eA.valid() || !eB.valid() {
		t.Fatalf("kernel window not installed in every address space")
	}
	if eA.frame() != eB.frame() {
		t.Fatalf("kernel subtree frame differs across address spaces: %v vs %v", eA.frame(), eB.frame())
	}
}
