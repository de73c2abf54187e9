package models

import (
	"io"
	"os"
)

type Config struct {
	Output  io.Writer `json:"-"`
	Color   bool      `json:"color"`
	Verbose bool      `json:"verbose"`

	// reference model selection
	Isa string `json:"isa"`
	Ref string `json:"ref"`

	// default memory layout when none is given on the command line, as "base:size"
	Mem []string `json:"mem"`

	MaxSteps  uint64 `json:"max_steps"`
	TraceFile string `json:"trace_file"`
}

func (c *Config) Init() *Config {
	if c == nil {
		c = &Config{}
	}
	if c.Output == nil {
		c.Output = os.Stderr
	}
	if c.Isa == "" {
		c.Isa = "rv32im"
	}
	if c.Ref == "" {
		c.Ref = "riscv"
	}
	return c
}
