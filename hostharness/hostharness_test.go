package hostharness

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/Ziheng-Qi/Operating-System-Kernel/fdcore"
	"github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"
	"github.com/Ziheng-Qi/Operating-System-Kernel/vmcore"
)

func TestBlockImageReadWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")
	if err := os.WriteFile(path, []byte("0123456789"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	img, err := OpenBlockImage(path, true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer img.Close()

	if img.Size() != 10 {
		t.Fatalf("size = %d, want 10", img.Size())
	}

	got := make([]byte, 4)
	n, err := img.ReadAt(got, 3)
	if err != nil || n != 4 || string(got) != "3456" {
		t.Fatalf("ReadAt = (%q, %d, %v)", got, n, err)
	}

	if _, err := img.WriteAt([]byte("XY"), 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	n, err = img.ReadAt(got, 0)
	if err != nil || string(got[:n]) != "XY23" {
		t.Fatalf("ReadAt after write = %q, %v", got[:n], err)
	}
}

func TestNamespaceFsOpenServesFileAndRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.txt"), []byte("payload"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	ns := NewNamespace(fdcore.NewLiteral(nil), dir, false)

	obj, errno := ns.FsOpen("data.txt")
	if errno != 0 {
		t.Fatalf("fsopen: %v", errno)
	}
	buf := make([]byte, 7)
	n, errno := fdcore.IoreadFull(obj, buf)
	if errno != 0 || string(buf[:n]) != "payload" {
		t.Fatalf("read back %q, err %v", buf[:n], errno)
	}
	obj.Close()

	if _, errno := ns.FsOpen("../escape"); errno != vkdefs.EINVAL {
		t.Fatalf("traversal attempt = %v, want EINVAL", errno)
	}
	if _, errno := ns.FsOpen("missing.txt"); errno != vkdefs.EBADFD {
		t.Fatalf("missing file = %v, want EBADFD", errno)
	}
}

func TestNamespaceDevOpenServesConsole(t *testing.T) {
	console := fdcore.NewLiteral(make([]byte, 16))
	ns := NewNamespace(console, ".", false)

	obj, errno := ns.DevOpen("ttyS0", 0)
	if errno != 0 || obj != console {
		t.Fatalf("devopen ttyS0 = (%v, %v)", obj, errno)
	}
	if _, errno := ns.DevOpen("nic0", 0); errno != vkdefs.EBADFD {
		t.Fatalf("devopen unknown = %v, want EBADFD", errno)
	}
}

// buildMinimalElf assembles a one-segment ELF64 RISC-V executable byte
// image: an Elf64 header, one PT_LOAD program header, then payload bytes
// at the offset the header names -- the exact shape ElfLoader.LoadSegments
// parses back out.
func buildMinimalElf(entry, vaddr uint64, payload []byte) []byte {
	const ehdrSize = 64
	const phdrSize = 56
	dataOff := uint64(ehdrSize + phdrSize)

	var ident [elf.EI_NIDENT]byte
	ident[0] = '\x7f'
	ident[1] = 'E'
	ident[2] = 'L'
	ident[3] = 'F'
	ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	ident[elf.EI_OSABI] = byte(elf.ELFOSABI_NONE)

	hdr := elf.Header64{
		Ident:     ident,
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_RISCV),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     entry,
		Phoff:     ehdrSize,
		Shoff:     0,
		Flags:     0,
		Ehsize:    ehdrSize,
		Phentsize: phdrSize,
		Phnum:     1,
		Shentsize: 0,
		Shnum:     0,
		Shstrndx:  0,
	}
	phdr := elf.Prog64{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_W | elf.PF_X),
		Off:    dataOff,
		Vaddr:  vaddr,
		Paddr:  vaddr,
		Filesz: uint64(len(payload)),
		Memsz:  uint64(len(payload)),
		Align:  0x1000,
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		panic(err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, phdr); err != nil {
		panic(err)
	}
	buf.Write(payload)
	return buf.Bytes()
}

func TestElfLoaderParsesEntryAndSegments(t *testing.T) {
	const vaddr = vmcore.USER_LO
	const entry = vmcore.USER_LO + 4
	payload := []byte("\x13\x00\x00\x00asmcode!")

	image := buildMinimalElf(uint64(entry), uint64(vaddr), payload)
	io := fdcore.NewLiteral(image)

	gotEntry, segs, err := (ElfLoader{}).LoadSegments(io)
	if err != nil {
		t.Fatalf("LoadSegments: %v", err)
	}
	if gotEntry != entry {
		t.Fatalf("entry = %#x, want %#x", gotEntry, entry)
	}
	if len(segs) != 1 {
		t.Fatalf("segs = %d, want 1", len(segs))
	}
	seg := segs[0]
	if seg.Va != vaddr {
		t.Fatalf("seg.Va = %#x, want %#x", seg.Va, vaddr)
	}
	if string(seg.Bytes) != string(payload) {
		t.Fatalf("seg.Bytes = %q, want %q", seg.Bytes, payload)
	}
	want := vmcore.PteR | vmcore.PteW | vmcore.PteX
	if seg.Flags != want {
		t.Fatalf("seg.Flags = %v, want %v", seg.Flags, want)
	}
}
