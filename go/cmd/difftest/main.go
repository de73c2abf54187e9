package main

import (
	"github.com/lunixbochs/difftest/go/cmd"

	_ "github.com/lunixbochs/difftest/go/cmd/run"
	_ "github.com/lunixbochs/difftest/go/cmd/trace"
)

func main() { cmd.Main() }
