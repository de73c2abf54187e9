package cmd

import (
	"strings"

	"github.com/lunixbochs/difftest/go/models"
)

var MemCmd = cmd(&Command{
	Name: "mem",
	Desc: "Hex dump reference memory: mem addr size",
	Run: func(c *Context, addr uint64, size int) error {
		mem, err := c.Ref().ReadMem(addr, size)
		if err != nil {
			return err
		}
		c.Printf("%s\n", strings.Join(models.HexDump(addr, mem, 32), "\n"))
		return nil
	},
})

var MapsCmd = cmd(&Command{
	Name: "maps",
	Desc: "List memory regions.",
	Run: func(c *Context) error {
		for _, r := range c.Ref().Layout() {
			c.Printf("%s (%#x bytes)\n", r, r.Size)
		}
		return nil
	},
})
