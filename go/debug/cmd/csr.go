package cmd

import (
	"sort"

	"github.com/lunixbochs/fvbommel-util/sortorder"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
)

var CsrCmd = cmd(&Command{
	Name: "csr",
	Desc: "Show CSRs of both models: csr [name...]",
	Run: func(c *Context, args ...string) error {
		names := args
		if len(names) == 0 {
			for _, name := range rv.CSRNames {
				names = append(names, name)
			}
			sort.Sort(sortorder.Natural(names))
		}
		for _, name := range names {
			enum, ok := rv.Arch.Lookup(name)
			addr, isCSR := rv.CSRAddr(enum)
			if !ok || !isCSR {
				c.Printf("csr %s not found\n", name)
				continue
			}
			ref, dut := c.Ref().ReadCSR(addr), c.M.Dut.ReadCSR(addr)
			mark := " "
			if ref != dut {
				mark = "*"
			}
			c.Printf("%s%-10s 0x%08x dut 0x%08x\n", mark, name, ref, dut)
		}
		return nil
	},
})
