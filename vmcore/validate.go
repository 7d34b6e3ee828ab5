package vmcore

import "github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"

// maxStringScan bounds memory_validate_vstr's NUL scan, per spec 4.3 ("bounded
// by a NUL scan up to an implementation limit").
const maxStringScan = 4096

// ValidatePtrLen implements memory_validate_vptr_len: every byte in
// [ptr, ptr+len) must lie in the user window and be mapped with at least
// required. Read is implicit; pass PteW too for a range the syscall intends
// to write into.
func (as *AddressSpace_t) ValidatePtrLen(ptr uintptr, length int, required Pte_t) vkdefs.Err_t {
	if length == 0 {
		return 0
	}
	lo, hi := ptr, ptr+uintptr(length)
	if lo < USER_LO || hi > USER_HI || hi < lo {
		return vkdefs.EFAULT
	}

	start := lo - (lo % PageSize)
	for va := start; va < hi; va += PageSize {
		e, ok := as.phys.lookupPage(as.root, va)
		if !ok || e&required != required {
			return vkdefs.EFAULT
		}
	}
	return 0
}

// ValidateStr implements memory_validate_vstr: like ValidatePtrLen but
// bounded by a NUL scan, fault-safe page by page so a string that happens to
// end exactly at an unmapped page boundary doesn't spuriously fault.
func (as *AddressSpace_t) ValidateStr(ptr uintptr, required Pte_t) (int, vkdefs.Err_t) {
	if ptr < USER_LO || ptr >= USER_HI {
		return 0, vkdefs.EFAULT
	}

	n := 0
	va := ptr
	for n < maxStringScan {
		page := va - (va % PageSize)
		e, ok := as.phys.lookupPage(as.root, page)
		if !ok || e&required != required {
			return 0, vkdefs.EFAULT
		}
		bytes := as.phys.bytesOf(e.frame())
		off := int(va % PageSize)
		for off < PageSize && n < maxStringScan {
			if bytes[off] == 0 {
				return n, 0
			}
			off++
			n++
			va++
		}
	}
	return 0, vkdefs.EFAULT
}

// ReadUser copies length bytes starting at ptr out of the address space,
// for the syscall dispatcher's use after validation has already succeeded.
func (as *AddressSpace_t) ReadUser(ptr uintptr, length int) []byte {
	out := make([]byte, length)
	as.copyUser(ptr, out, false)
	return out
}

// WriteUser copies src into the address space starting at ptr, for the
// syscall dispatcher's use after validation has already succeeded.
func (as *AddressSpace_t) WriteUser(ptr uintptr, src []byte) {
	as.copyUser(ptr, src, true)
}

func (as *AddressSpace_t) copyUser(ptr uintptr, buf []byte, toUser bool) {
	remaining := buf
	va := ptr
	for len(remaining) > 0 {
		page := va - (va % PageSize)
		off := int(va % PageSize)
		e, ok := as.phys.lookupPage(as.root, page)
		if !ok {
			panic("vmcore: copyUser on unvalidated range")
		}
		bytes := as.phys.bytesOf(e.frame())
		n := PageSize - off
		if n > len(remaining) {
			n = len(remaining)
		}
		if toUser {
			copy(bytes[off:off+n], remaining[:n])
		} else {
			copy(remaining[:n], bytes[off:off+n])
		}
		remaining = remaining[n:]
		va += uintptr(n)
	}
}
