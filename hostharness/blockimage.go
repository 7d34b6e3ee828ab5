package hostharness

import (
	"os"

	"golang.org/x/sys/unix"
)

// BlockImage is the virtio-block stand-in: a flat file whose bytes back
// fdcore.BlockFile_t, read and written through golang.org/x/sys/unix's
// Pread/Pwrite rather than os.File.ReadAt/WriteAt so the raw-syscall
// layer the rest of this host-side shim exercises is the same one
// CongLeSolutionX-go_community's own golang.org/x/sys-dependent code
// reaches for, not a second abstraction over it.
type BlockImage struct {
	f    *os.File
	size int64
}

// OpenBlockImage opens path (the init ELF, or a read-only filesystem
// image) and reports its size via Fstat so BlockFile_t can bound reads
// without a separate seek-to-end.
func OpenBlockImage(path string, writable bool) (*BlockImage, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &BlockImage{f: f, size: fi.Size()}, nil
}

func (b *BlockImage) Size() int64 { return b.size }

func (b *BlockImage) Close() error { return b.f.Close() }

func (b *BlockImage) ReadAt(p []byte, off int64) (int, error) {
	return unix.Pread(int(b.f.Fd()), p, off)
}

func (b *BlockImage) WriteAt(p []byte, off int64) (int, error) {
	return unix.Pwrite(int(b.f.Fd()), p, off)
}
