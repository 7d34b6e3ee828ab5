package vkdefs

// Syscall numbers, exactly the table in spec "6. EXTERNAL INTERFACES".
const (
	SYS_MSGOUT  = 0
	SYS_EXIT    = 1
	SYS_DEVOPEN = 2
	SYS_FSOPEN  = 3
	SYS_CLOSE   = 4
	SYS_READ    = 5
	SYS_WRITE   = 6
	SYS_IOCTL   = 7
	SYS_EXEC    = 8
	SYS_FORK    = 9
	SYS_WAIT    = 10
	SYS_PIPE    = 11
)

// ioctl commands supported by the generic I/O interface (spec 4.6), plus
// device-specific extensions defined by individual fdcore object kinds.
const (
	IOCTL_GETLEN = iota
	IOCTL_SETPOS
	IOCTL_GETPOS
	IOCTL_GETBLKSZ
	IOCTL_GETREFCNT
)

// TFREGS is the number of general-purpose registers saved in a trap frame
// (x1..x31, i.e. all GPRs except x0 which is hardwired zero).
const TFREGS = 31

// Trap frame register indices into TrapFrame.GPR, named for the subset the
// syscall dispatcher and fork/exec care about. RISC-V integer calling
// convention: a0-a7 are x10-x17.
const (
	TF_RA  = 0  // x1
	TF_SP  = 1  // x2
	TF_A0  = 9  // x10
	TF_A1  = 10 // x11
	TF_A2  = 11 // x12
	TF_A7  = 16 // x17, syscall number
)

// TrapFrame is laid out the way spec "6. EXTERNAL INTERFACES" specifies: the
// 31 GPRs (x1..x31), the user sstatus, sepc, and a reserved slot, contiguous.
// It is a plain fixed-size struct rather than a slice so the layout stays
// fixed; this core has no simulated kernel stack to place it on, and hands
// it to the dispatcher by pointer instead.
type TrapFrame struct {
	GPR      [TFREGS]uint64
	Sstatus  uint64
	Sepc     uint64
	Reserved uint64
}
