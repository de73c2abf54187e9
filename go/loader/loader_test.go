package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"

	"github.com/lunixbochs/difftest/go/difftest"
)

// buildElf assembles a minimal executable with one PT_LOAD segment.
func buildElf(machine elf.Machine, class elf.Class, code []byte, memsz uint32) []byte {
	var buf bytes.Buffer
	hdr := elf.Header32{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     0x80000000,
		Phoff:     52,
		Ehsize:    52,
		Phentsize: 32,
		Phnum:     1,
		Shentsize: 40,
	}
	copy(hdr.Ident[:], elfMagic)
	hdr.Ident[elf.EI_CLASS] = byte(class)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	prog := elf.Prog32{
		Type:   uint32(elf.PT_LOAD),
		Off:    84,
		Vaddr:  0x80000000,
		Paddr:  0x80000000,
		Filesz: uint32(len(code)),
		Memsz:  memsz,
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Align:  0x1000,
	}
	binary.Write(&buf, binary.LittleEndian, &hdr)
	binary.Write(&buf, binary.LittleEndian, &prog)
	buf.Write(code)
	return buf.Bytes()
}

var code = []byte{0x13, 0, 0, 0, 0x73, 0, 0, 0}

func TestLoadElf(t *testing.T) {
	img, err := Load(buildElf(elf.EM_RISCV, elf.ELFCLASS32, code, 0x20), 0)
	if err != nil {
		t.Fatal(err)
	}
	if img.Entry != 0x80000000 {
		t.Fatalf("entry = %#x", img.Entry)
	}
	if len(img.Segments) != 1 {
		t.Fatalf("segments = %d", len(img.Segments))
	}
	seg := img.Segments[0]
	if seg.Addr != 0x80000000 || len(seg.Data) != 0x20 || !bytes.Equal(seg.Data[:8], code) {
		t.Fatalf("bad segment %#x % x", seg.Addr, seg.Data)
	}
	if !bytes.Equal(seg.Data[8:], make([]byte, 0x18)) {
		t.Fatal("bss not zeroed")
	}
	layout := img.Layout()
	if len(layout) != 1 || layout[0] != (difftest.Region{Base: 0x80000000, Size: 0x1000}) {
		t.Fatalf("layout = %s", layout)
	}
}

func TestLoadElfRejects(t *testing.T) {
	if _, err := Load(buildElf(elf.EM_X86_64, elf.ELFCLASS32, code, 8), 0); err == nil {
		t.Error("loaded an x86 elf")
	}
	if _, err := Load(buildElf(elf.EM_RISCV, elf.ELFCLASS32, code, 4), 0); err == nil {
		t.Error("loaded a segment with filesz > memsz")
	}
}

func TestLoadRaw(t *testing.T) {
	img, err := Load(code, 0x80001000)
	if err != nil {
		t.Fatal(err)
	}
	if img.Entry != 0x80001000 || img.Segments[0].Addr != 0x80001000 {
		t.Fatalf("bad raw image: %+v", img)
	}
	if _, err := Load(nil, 0); err == nil {
		t.Error("loaded an empty image")
	}
	if _, err := Load(code, 0xfffffffc); err == nil {
		t.Error("loaded an image past the end of memory")
	}
}

func TestLoadInto(t *testing.T) {
	img, _ := LoadRaw(code, 0x80000000)
	ref, err := difftest.New(img.Layout(), uint32(img.Entry), nil, "rv32i")
	if err != nil {
		t.Fatal(err)
	}
	defer ref.Close()
	if err := img.LoadInto(ref); err != nil {
		t.Fatal(err)
	}
	if out := ref.Step(); out != difftest.Continue {
		t.Fatalf("nop: %s", out)
	}
	// a7 is 0, so the ecall is not an exit
	if out := ref.Step(); out != difftest.Fault {
		t.Fatalf("ecall: %s", out)
	}
	small, _ := difftest.New(difftest.Layout{{Base: 0x1000, Size: 0x1000}}, 0x1000, nil, "rv32i")
	defer small.Close()
	if err := img.LoadInto(small); err == nil {
		t.Fatal("loaded outside the layout")
	}
}

func TestSymbolicate(t *testing.T) {
	img := &Image{Symbols: []Symbol{
		{"_start", 0x100, 0x10},
		{"main", 0x110, 0x20},
		{"label", 0x200, 0},
	}}
	table := map[uint64]string{
		0x100: "_start",
		0x104: "_start+0x4",
		0x12f: "main+0x1f",
		0x130: "",
		0x200: "label",
		0x50:  "",
	}
	for addr, want := range table {
		if got := img.Symbolicate(addr); got != want {
			t.Errorf("Symbolicate(%#x) = %q, want %q", addr, got, want)
		}
	}
}
