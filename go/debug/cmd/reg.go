package cmd

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
)

var strEqNumRe = regexp.MustCompile(`^([a-z0-9]+)=((-|0x|0b)?[0-9a-fA-F]+)$`)

// setReg writes one register of the reference through the Ref API, so live views are invalidated.
func setReg(c *Context, enum int, val uint32) error {
	ref := c.Ref()
	if addr, ok := rv.CSRAddr(enum); ok {
		if !ref.WriteCSR(addr, val) {
			return errors.Errorf("csr %#x is not implemented", addr)
		}
		return nil
	}
	if enum >= rv.F0 && enum <= rv.F31 {
		if !ref.WriteFPRBits(enum-rv.F0, val) {
			return errors.New("no floating point unit")
		}
		return nil
	}
	regs := ref.Regs()
	if enum == rv.PC {
		regs.PC = val
	} else {
		regs.GPR[enum-rv.X0] = val
	}
	ref.SyncRegs(regs)
	return nil
}

var RegCmd = cmd(&Command{
	Name: "reg",
	Desc: "Read/write reference regs: reg a0 pc, reg a0=5",
	Run: func(c *Context, args ...string) error {
		engine := c.Ref().Engine()
		for _, v := range args {
			reg, assign := v, ""
			if match := strEqNumRe.FindStringSubmatch(v); len(match) > 0 {
				reg, assign = match[1], match[2]
			} else if strings.Contains(v, "=") {
				c.Printf("invalid assignment: %s\n", v)
				continue
			}
			enum, ok := rv.Arch.Lookup(reg)
			if !ok {
				c.Printf("reg %s not found\n", reg)
				continue
			}
			if assign == "" {
				val, err := engine.RegRead(enum)
				if err != nil {
					c.Printf("%s: %v\n", reg, err)
				} else {
					c.Printf("%s 0x%08x\n", reg, val)
				}
				continue
			}
			var value uint32
			if assign[0] == '-' {
				n, err := strconv.ParseInt(assign, 0, 32)
				if err != nil {
					c.Printf("error parsing %s value: %v\n", reg, err)
					continue
				}
				value = uint32(n)
			} else {
				n, err := strconv.ParseUint(assign, 0, 32)
				if err != nil {
					c.Printf("error parsing %s value: %v\n", reg, err)
					continue
				}
				value = uint32(n)
			}
			if err := setReg(c, enum, value); err != nil {
				c.Printf("%s: %v\n", v, err)
			}
		}
		return nil
	},
})

var RegsCmd = cmd(&Command{
	Name: "regs",
	Desc: "Show reference pc and general regs, marking changes since the last call.",
	Run: func(c *Context) error {
		changes := c.status.Changes(c.Ref().Engine(), false)
		c.Printf("%s", changes.String(c.Color))
		return nil
	},
})

var FprCmd = cmd(&Command{
	Name: "fpr",
	Desc: "Show f registers of both models.",
	Run: func(c *Context) error {
		if !c.Ref().Isa().Has('f') {
			return errors.New("no floating point unit")
		}
		for i := 0; i < 32; i++ {
			r, _ := c.Ref().ReadFPR(i)
			rb, _ := c.Ref().ReadFPRBits(i)
			db, _ := c.M.Dut.ReadFPRBits(i)
			mark := " "
			if rb != db {
				mark = "*"
			}
			c.Printf("%s%-5s 0x%08x %-14g dut 0x%08x\n", mark, rv.FprNames[i], rb, r, db)
		}
		return nil
	},
})
