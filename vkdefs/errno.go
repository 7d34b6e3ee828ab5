// Package vkdefs holds the types and constants shared by every layer of the
// kernel core: error codes, thread/process id types, the syscall table, and
// the trap frame layout. It intentionally imports nothing but the standard
// library -- a freestanding core cannot depend on packages that themselves
// assume a hosted OS.
package vkdefs

// Err_t is a positive error code; the syscall ABI returns it negated,
// mirroring the C source's convention of returning -errno from a kernel
// function. Zero means success.
type Err_t int

// Error taxonomy from the syscall ABI (spec "7. ERROR HANDLING DESIGN").
const (
	EINVAL  Err_t = 1
	EBADFD  Err_t = 2
	EBUSY   Err_t = 3
	ENOTSUP Err_t = 4
	ENOMEM  Err_t = 5
	EFAULT  Err_t = 6
	ECHILD  Err_t = 7
	// EAGAIN is returned by fork when the thread or process table has no
	// free slot (spec: "boundary behaviors: open NTHR threads -> next
	// spawn returns error").
	EAGAIN Err_t = 8
)

func (e Err_t) Error() string {
	switch e {
	case 0:
		return "success"
	case EINVAL:
		return "invalid argument"
	case EBADFD:
		return "bad descriptor"
	case EBUSY:
		return "device busy"
	case ENOTSUP:
		return "operation not supported"
	case ENOMEM:
		return "out of memory"
	case EFAULT:
		return "bad address"
	case ECHILD:
		return "not a child"
	case EAGAIN:
		return "resource temporarily unavailable"
	default:
		return "unknown error"
	}
}
