package difftest

import (
	"encoding/binary"
	"testing"
)

const (
	ramBase   = 0x80000000
	insNop    = 0x00000013
	insEcall  = 0x00000073
	insEbreak = 0x00100073
	// all-zero words are reserved as illegal
	insIllegal = 0x00000000
)

func addi(rd, rs1 uint32, imm int32) uint32 {
	return uint32(imm)<<20 | rs1<<15 | rd<<7 | 0x13
}

func li(rd uint32, imm int32) uint32 {
	return addi(rd, 0, imm)
}

func sw(rs2, rs1 uint32, imm int32) uint32 {
	u := uint32(imm)
	return (u>>5&0x7f)<<25 | rs2<<20 | rs1<<15 | 2<<12 | (u&0x1f)<<7 | 0x23
}

func lui(rd, imm uint32) uint32 {
	return imm<<12 | rd<<7 | 0x37
}

func csrrw(rd uint32, csr uint16, rs1 uint32) uint32 {
	return uint32(csr)<<20 | rs1<<15 | 1<<12 | rd<<7 | 0x73
}

func prog(words ...uint32) []byte {
	p := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(p[i*4:], w)
	}
	return p
}

var oneRegion = Layout{{Base: ramBase, Size: 0x1000}}

func newRef(t *testing.T, isa string, words ...uint32) *Ref {
	t.Helper()
	ref, err := New(oneRegion, ramBase, nil, isa)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ref.Close() })
	if len(words) > 0 {
		if err := ref.LoadImage(ramBase, prog(words...)); err != nil {
			t.Fatal(err)
		}
	}
	return ref
}
