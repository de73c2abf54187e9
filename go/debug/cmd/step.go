package cmd

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/lunixbochs/difftest/go/difftest"
	"github.com/lunixbochs/difftest/go/models"
)

func count(args []string) (uint64, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.ParseUint(args[0], 0, 64)
	return n, errors.Wrap(err, "bad step count")
}

// step advances both models, printing each instruction when trace is set.
func step(c *Context, n uint64, trace bool) error {
	if c.Stopped {
		return errors.New("program is not running")
	}
	for i := uint64(0); i < n; i++ {
		pc := c.Ref().Regs().PC
		if trace {
			c.Printf("%s\n", c.disas(uint64(pc), 1))
		}
		out, mm := c.M.Step()
		if trace {
			if changes := c.status.Changes(c.Ref().Engine(), true); len(changes.Changes) > 0 {
				c.Printf("%s", changes.String(c.Color))
			}
		}
		c.Last = mm
		if mm != nil {
			c.Printf("%s\n", mm.Render(c.Color))
			c.Stopped = true
			return nil
		}
		switch out {
		case difftest.Exit:
			c.Printf("%s at pc 0x%08x\n", c.Ref().ExitStatus().String(), pc)
			c.Stopped = true
			return nil
		case difftest.Fault:
			c.Printf("fault: %v\n", c.Ref().LastTrap())
			return nil
		}
	}
	return nil
}

func (c *Context) disas(addr uint64, n int) string {
	mem, err := c.Ref().ReadMem(addr, n*4)
	if err != nil {
		return err.Error()
	}
	s, err := models.Disas(c.Dis, mem, addr)
	if err != nil {
		return err.Error()
	}
	return s
}

var StepCmd = cmd(&Command{
	Name: "s",
	Desc: "Step both models: s [count]",
	Run: func(c *Context, args ...string) error {
		n, err := count(args)
		if err != nil {
			return err
		}
		return step(c, n, false)
	},
})

var StepInsCmd = cmd(&Command{
	Name: "si",
	Desc: "Step both models, printing each instruction and changed regs: si [count]",
	Run: func(c *Context, args ...string) error {
		n, err := count(args)
		if err != nil {
			return err
		}
		return step(c, n, true)
	},
})

var DisCmd = cmd(&Command{
	Name: "dis",
	Desc: "Disassemble reference memory: dis addr count",
	Run: func(c *Context, addr uint64, n int) error {
		c.Printf("%s\n", c.disas(addr, n))
		return nil
	},
})
