package pipecore

import "github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"

// Endpoint_t is the descriptor-table-facing handle around a shared Pipe_t,
// satisfying fdcore.Io_i (spec 3's fifth I/O object variant, "pipe
// endpoint"). Every descriptor installed by the pipe syscall, and every
// descriptor slot copied across fork, holds its own Endpoint_t wrapping the
// same underlying Pipe_t -- Close/Refup operate on the shared pipe's
// reference count, not on the endpoint itself, which carries no state of
// its own.
type Endpoint_t struct {
	pipe *Pipe_t
}

// NewPipeEndpoint wraps p, the construction path used by the pipe syscall
// and by fork's descriptor-table copy.
func NewPipeEndpoint(p *Pipe_t) *Endpoint_t {
	return &Endpoint_t{pipe: p}
}

// Refup duplicates this endpoint onto the shared pipe's reference count,
// called once per copied descriptor slot at fork time.
func (e *Endpoint_t) Refup() {
	e.pipe.Refup()
}

func (e *Endpoint_t) Close() {
	e.pipe.Close()
}

func (e *Endpoint_t) Read(buf []byte) (int, vkdefs.Err_t) {
	return e.pipe.Read(buf)
}

func (e *Endpoint_t) Write(buf []byte) (int, vkdefs.Err_t) {
	return e.pipe.Write(buf)
}

func (e *Endpoint_t) Ctl(cmd int, arg int) (int, vkdefs.Err_t) {
	return e.pipe.Ioctl(cmd, arg)
}
