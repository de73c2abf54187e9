package debug

import (
	"io"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"

	"github.com/lunixbochs/difftest/go/debug/cmd"
)

// HistoryFile returns the console history path in the user cache folder, creating the folder if needed.
// It returns "" when no cache folder is usable.
func HistoryFile() string {
	cache := configdir.New("difftest", "difftest").QueryCacheFolder()
	if err := cache.MkdirAll(); err != nil {
		return ""
	}
	return filepath.Join(cache.Path, "history")
}

type Console struct {
	Ctx     *cmd.Context
	Prompt  string
	History string
}

func NewConsole(ctx *cmd.Context) *Console {
	return &Console{Ctx: ctx, Prompt: "difftest> ", History: HistoryFile()}
}

// Run reads commands until EOF. stdin and stdout default to the terminal when nil.
func (c *Console) Run(stdin io.ReadCloser, stdout io.Writer) error {
	config := &readline.Config{
		Prompt:      c.Prompt,
		HistoryFile: c.History,
	}
	if stdin != nil {
		config.Stdin = stdin
		config.FuncIsTerminal = func() bool { return false }
	}
	if stdout != nil {
		config.Stdout = stdout
		config.Stderr = stdout
	}
	rl, err := readline.NewEx(config)
	if err != nil {
		return errors.Wrap(err, "error opening readline for console")
	}
	defer rl.Close()
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrap(err, "error in readline")
		}
		if line == "q" || line == "quit" {
			return nil
		}
		if err := cmd.Run(c.Ctx, line); err != nil {
			return errors.Wrap(err, "error in command")
		}
	}
}
