package trace

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
	"github.com/lunixbochs/difftest/go/cmd"
	"github.com/lunixbochs/difftest/go/difftest"
	"github.com/lunixbochs/difftest/go/difftest/trace"
	"github.com/lunixbochs/difftest/go/models"
)

// jsonRecord tags each record with its type so line-delimited output stays self-describing.
type jsonRecord struct {
	Type   string       `json:"type"`
	Record trace.Record `json:"record"`
}

func recordType(rec trace.Record) string {
	switch rec.(type) {
	case *trace.Step:
		return "step"
	case *trace.Mismatch:
		return "mismatch"
	case *trace.Exit:
		return "exit"
	}
	return "unknown"
}

func PrintJson(tf *trace.Reader, w io.Writer) error {
	out, err := json.Marshal(&tf.Header)
	if err != nil {
		return errors.Wrap(err, "error printing header")
	}
	fmt.Fprintf(w, "%s\n", out)
	for {
		rec, err := tf.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "error reading next trace record")
		}
		out, err := json.Marshal(&jsonRecord{recordType(rec), rec})
		if err != nil {
			return errors.Wrap(err, "error encoding record")
		}
		fmt.Fprintf(w, "%s\n", out)
	}
	return nil
}

func PrintPretty(tf *trace.Reader, w io.Writer) error {
	fmt.Fprintf(w, "isa %s entry %#08x\n", tf.Header.Isa, tf.Header.Entry)
	for {
		rec, err := tf.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "error reading next trace record")
		}
		switch r := rec.(type) {
		case *trace.Step:
			regs := make([]string, len(r.Regs))
			for i, d := range r.Regs {
				regs[i] = fmt.Sprintf("%s=%#x", rv.GprNames[d.Reg&31], d.Val)
			}
			fmt.Fprintf(w, "%8d %#08x %-8s %s\n", r.Index, r.Pc, difftest.Outcome(r.Outcome), strings.Join(regs, " "))
		case *trace.Mismatch:
			fmt.Fprintf(w, "%8d %#08x mismatch\n", r.Index, r.Pc)
			for _, it := range r.Items {
				item := difftest.Item{Kind: difftest.Kind(it.Kind), Id: uint64(it.Id), Ref: it.Ref, Dut: it.Dut}
				fmt.Fprintf(w, "         %-4s %-8s ref=%#x dut=%#x\n", item.Kind, item.Name(), item.Ref, item.Dut)
			}
		case *trace.Exit:
			fmt.Fprintf(w, "%8d %s\n", r.Index, models.ExitStatus(r.Code).String())
		}
	}
	return nil
}

func Main(args []string) {
	fs := flag.NewFlagSet("args", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output trace as line-delimited JSON objects")
	fs.Usage = func() {
		fmt.Printf("Usage: %s [options] <tracefile>\n", args[0])
		fs.PrintDefaults()
	}

	fs.Parse(args[1:])
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}
	args = fs.Args()

	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open: %s %v\n", args[0], err)
		os.Exit(1)
	}
	tf, err := trace.NewReader(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening trace file: %v\n", err)
		os.Exit(1)
	}
	defer tf.Close()
	if *jsonFlag {
		err = PrintJson(tf, os.Stdout)
	} else {
		err = PrintPretty(tf, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error printing trace: %v\n", err)
		os.Exit(1)
	}
}

func init() { cmd.Register("trace", "print a saved step trace", Main) }
