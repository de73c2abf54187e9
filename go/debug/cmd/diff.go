package cmd

var WatchCmd = cmd(&Command{
	Name: "watch",
	Desc: "Compare a memory range after every step: watch [addr size]",
	Run: func(c *Context, args ...string) error {
		if len(args) == 0 {
			for _, w := range c.M.Watches() {
				c.Printf("%s stores=%d\n", w, w.Stores)
			}
			return nil
		}
		var addr uint64
		var size int
		if _, err := aj.Call(func(a uint64, s int) { addr, size = a, s }, stringVals(args)...); err != nil {
			return err
		}
		return c.M.Watch(addr, size)
	},
})

func stringVals(args []string) []interface{} {
	vals := make([]interface{}, len(args))
	for i, a := range args {
		vals[i] = a
	}
	return vals
}

var SkipCmd = cmd(&Command{
	Name: "skip",
	Desc: "Copy DUT state into the reference for the next n steps instead of comparing: skip n",
	Run: func(c *Context, n int) error {
		c.M.Skip(n)
		return nil
	},
})

var DiffCmd = cmd(&Command{
	Name: "diff",
	Desc: "Compare the models now.",
	Run: func(c *Context) error {
		mm := c.M.Compare()
		if len(mm.Items) == 0 {
			c.Printf("models agree\n")
			return nil
		}
		mm.Pc = c.Ref().Regs().PC
		c.Printf("%s\n", mm.Render(c.Color))
		return nil
	},
})
