package difftest

import (
	"io"

	"github.com/lunixbochs/difftest/go/models/cpu"
)

type options struct {
	engine  cpu.Builder
	out     io.Writer
	verbose bool
	policy  ExitPolicy
}

type Option func(*options)

// WithEngine replaces the default pure-Go interpreter.
func WithEngine(b cpu.Builder) Option {
	return func(o *options) { o.engine = b }
}

// WithOutput sets where this instance writes diagnostics. The default discards them.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

func WithVerbose(v bool) Option {
	return func(o *options) { o.verbose = v }
}

func WithExitPolicy(p ExitPolicy) Option {
	return func(o *options) { o.policy = p }
}
