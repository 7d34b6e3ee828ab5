package fdcore

import "github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"

// CharDevice_t is the UART stand-in named in spec 3 ("character device
// (UART)"): any io.ReadWriter (the host harness's terminal or a pipe-backed
// test fake) wrapped to satisfy Io_i. The real UART driver is out of scope
// (spec.md 1); this is only the shape the core and LineDiscipline_t need
// from it.
type CharDevice_t struct {
	refcounted
	rw rawReadWriter
}

// rawReadWriter is the minimal interface CharDevice_t needs; satisfied by
// io.ReadWriter without importing it here, so hostharness's concrete
// implementations (golang.org/x/term-backed console, file-backed UART
// stand-in) can be handed in directly.
type rawReadWriter interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

func NewCharDevice(rw rawReadWriter) *CharDevice_t {
	return &CharDevice_t{refcounted: newRefcounted(), rw: rw}
}

func (d *CharDevice_t) Close() { d.Decref() }

func (d *CharDevice_t) Read(buf []byte) (int, vkdefs.Err_t) {
	n, err := d.rw.Read(buf)
	if err != nil && n == 0 {
		return 0, vkdefs.EFAULT
	}
	return n, 0
}

func (d *CharDevice_t) Write(buf []byte) (int, vkdefs.Err_t) {
	n, err := d.rw.Write(buf)
	if err != nil && n == 0 {
		return 0, vkdefs.EFAULT
	}
	return n, 0
}

func (d *CharDevice_t) Ctl(cmd int, arg int) (int, vkdefs.Err_t) {
	if cmd == vkdefs.IOCTL_GETREFCNT {
		return d.Refcnt(), 0
	}
	return 0, vkdefs.ENOTSUP
}

// BlockFile_t is the block-device-backed file named in spec 3: a descriptor
// with a position over a ReaderAt/WriterAt-shaped backing store, standing
// in for the out-of-scope virtio-block driver plus read-only filesystem
// (spec.md 1). Good enough to back fsopen/devopen against a flat image.
type BlockFile_t struct {
	refcounted
	backing  blockBacking
	pos      int64
	size     int64
	writable bool
}

// blockBacking is the minimal interface BlockFile_t needs; hostharness's
// golang.org/x/sys/unix-backed BlockImage satisfies it via Pread/Pwrite.
type blockBacking interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
}

func NewBlockFile(backing blockBacking, size int64, writable bool) *BlockFile_t {
	return &BlockFile_t{refcounted: newRefcounted(), backing: backing, size: size, writable: writable}
}

func (f *BlockFile_t) Close() { f.Decref() }

func (f *BlockFile_t) Read(buf []byte) (int, vkdefs.Err_t) {
	if f.pos >= f.size {
		return 0, 0
	}
	if remaining := f.size - f.pos; int64(len(buf)) > remaining {
		buf = buf[:remaining]
	}
	n, err := f.backing.ReadAt(buf, f.pos)
	f.pos += int64(n)
	if err != nil && n == 0 {
		return 0, vkdefs.EFAULT
	}
	return n, 0
}

func (f *BlockFile_t) Write(buf []byte) (int, vkdefs.Err_t) {
	if !f.writable {
		return 0, vkdefs.ENOTSUP
	}
	n, err := f.backing.WriteAt(buf, f.pos)
	f.pos += int64(n)
	if err != nil && n == 0 {
		return 0, vkdefs.EFAULT
	}
	return n, 0
}

func (f *BlockFile_t) Ctl(cmd int, arg int) (int, vkdefs.Err_t) {
	switch cmd {
	case vkdefs.IOCTL_GETLEN:
		return int(f.size), 0
	case vkdefs.IOCTL_SETPOS:
		if int64(arg) < 0 || int64(arg) > f.size {
			return 0, vkdefs.EINVAL
		}
		f.pos = int64(arg)
		return 0, 0
	case vkdefs.IOCTL_GETPOS:
		return int(f.pos), 0
	case vkdefs.IOCTL_GETBLKSZ:
		return vmBlockSize, 0
	case vkdefs.IOCTL_GETREFCNT:
		return f.Refcnt(), 0
	default:
		return 0, vkdefs.ENOTSUP
	}
}
