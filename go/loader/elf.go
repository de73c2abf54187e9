package loader

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
)

var elfMagic = []byte{0x7f, 0x45, 0x4c, 0x46}

func MatchElf(r io.ReaderAt) bool {
	return bytes.Equal(getMagic(r), elfMagic)
}

func hex(n uint64) string {
	return fmt.Sprintf("%#x", n)
}

// LoadElf loads the PT_LOAD segments and symbols of a 32-bit little-endian RISC-V executable.
func LoadElf(r io.ReaderAt) (*Image, error) {
	file, err := elf.NewFile(r)
	if err != nil {
		return nil, errors.Wrap(err, "parsing elf")
	}
	if file.Class != elf.ELFCLASS32 {
		return nil, errors.Errorf("unsupported elf class: %s", file.Class)
	}
	if file.Machine != elf.EM_RISCV {
		return nil, errors.Errorf("unsupported machine: %s", file.Machine)
	}
	if file.Data != elf.ELFDATA2LSB {
		return nil, errors.New("big-endian elf is not supported")
	}
	img := &Image{Entry: file.Entry}
	for _, prog := range file.Progs {
		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}
		if prog.Filesz > prog.Memsz {
			return nil, errors.Errorf("segment at %#x: file size exceeds memory size", prog.Paddr)
		}
		data := make([]byte, prog.Memsz)
		if _, err := io.ReadFull(prog.Open(), data[:prog.Filesz]); err != nil {
			return nil, errors.Wrapf(err, "reading segment at %#x", prog.Paddr)
		}
		// bare-metal images are linked at physical addresses
		img.Segments = append(img.Segments, Segment{Addr: prog.Paddr, Data: data})
	}
	if len(img.Segments) == 0 {
		return nil, errors.New("elf has no loadable segments")
	}
	if syms, err := file.Symbols(); err == nil {
		for _, s := range syms {
			typ := elf.ST_TYPE(s.Info)
			if s.Name != "" && (typ == elf.STT_FUNC || typ == elf.STT_NOTYPE) {
				img.Symbols = append(img.Symbols, Symbol{Name: s.Name, Start: s.Value, Size: s.Size})
			}
		}
		sort.Slice(img.Symbols, func(i, j int) bool { return img.Symbols[i].Start < img.Symbols[j].Start })
	}
	return img, nil
}
