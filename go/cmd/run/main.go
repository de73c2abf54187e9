package run

import (
	"github.com/lunixbochs/difftest/go/cmd"
)

func Main(args []string) {
	cmd.NewDifftestCmd().Run(args)
}

func init() { cmd.Register("run", "co-simulate an image against a reference engine", Main) }
