package hostharness

import (
	"path/filepath"
	"strings"

	"github.com/Ziheng-Qi/Operating-System-Kernel/fdcore"
	"github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"
)

// Namespace implements vkabi.Namespace against real host resources: one
// console device and a directory of flat files standing in for the
// out-of-scope read-only filesystem (spec.md section 1). Grounded on
// kernel/main.go's boot sequence, which likewise resolves a small fixed
// set of device names (disk, console) before handing control to init.
type Namespace struct {
	console  fdcore.Io_i
	fsRoot   string
	writable bool
}

// NewNamespace builds a Namespace serving consoleDev for devopen("ttyS0",
// ...) and files under fsRoot for fsopen. writable controls whether
// fsopen'd files are opened read-write or read-only.
func NewNamespace(consoleDev fdcore.Io_i, fsRoot string, writable bool) *Namespace {
	return &Namespace{console: consoleDev, fsRoot: fsRoot, writable: writable}
}

func (n *Namespace) DevOpen(name string, instno int) (fdcore.Io_i, vkdefs.Err_t) {
	switch name {
	case "ttyS0", "console":
		return n.console, 0
	default:
		return nil, vkdefs.EBADFD
	}
}

func (n *Namespace) FsOpen(name string) (fdcore.Io_i, vkdefs.Err_t) {
	if strings.Contains(name, "..") {
		return nil, vkdefs.EINVAL
	}
	path := filepath.Join(n.fsRoot, name)

	img, err := OpenBlockImage(path, n.writable)
	if err != nil {
		return nil, vkdefs.EBADFD
	}
	return &closingBlockFile{
		BlockFile_t: fdcore.NewBlockFile(img, img.Size(), n.writable),
		img:         img,
	}, 0
}

// closingBlockFile threads the open *os.File's Close through
// fdcore.BlockFile_t's reference count: the backing image is only
// actually released once the last descriptor sharing it (the original,
// or one duplicated across fork) drops its reference.
type closingBlockFile struct {
	*fdcore.BlockFile_t
	img *BlockImage
}

func (c *closingBlockFile) Close() {
	if c.BlockFile_t.Decref() {
		c.img.Close()
	}
}
