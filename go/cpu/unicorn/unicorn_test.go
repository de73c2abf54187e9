//go:build unicorn

package unicorn

import (
	"testing"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
)

func newUnicorn(t *testing.T, isa string) (*UnicornCpu, error) {
	parsed, err := rv.ParseIsa(isa)
	if err != nil {
		t.Fatal(err)
	}
	c, err := (&Builder{Isa: parsed}).New()
	if err != nil {
		return nil, err
	}
	t.Cleanup(func() { c.Close() })
	return c.(*UnicornCpu), nil
}

func TestUnsupportedIsa(t *testing.T) {
	for _, isa := range []string{"rv32e", "rv32iv", "rv32i_zve32x", "rv32i_zvl128b_zve32x", "rv32iq", "rv32ih", "rv32i_zba"} {
		if _, err := newUnicorn(t, isa); err == nil {
			t.Errorf("%s: expected an error", isa)
		}
	}
	if _, err := newUnicorn(t, "rv32imafdc_zicsr_zifencei"); err != nil {
		t.Fatal(err)
	}
}

func TestFloatRegisters(t *testing.T) {
	c, err := newUnicorn(t, "rv32im")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.RegRead(rv.F0); err == nil {
		t.Error("f0 readable without F")
	}
	if err := c.RegWrite(rv.F1, 1); err == nil {
		t.Error("f1 writable without F")
	}
	if _, err := c.RegRead(rv.CSR(rv.CSR_FCSR)); err == nil {
		t.Error("fcsr readable without F")
	}
	if _, err := c.RegRead(rv.X1); err != nil {
		t.Fatal(err)
	}

	c, err = newUnicorn(t, "rv32imf")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.RegWrite(rv.F1, 0x3f800000); err != nil {
		t.Fatal(err)
	}
	if val, err := c.RegRead(rv.F1); err != nil || val != 0x3f800000 {
		t.Fatalf("f1 = %#x, %v", val, err)
	}
}
