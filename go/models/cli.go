package models

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// PrintFlags prints flag usage in aligned columns, wrapping descriptions at 80 columns.
func PrintFlags(w io.Writer, flags []*flag.Flag) {
	wname, wdef := 0, 0
	for _, f := range flags {
		wname = max(wname, len(f.Name))
		wdef = max(wdef, len(f.DefValue))
	}
	wdesc := 80 - wname - wdef - 7

	namefmt := fmt.Sprintf("%%-%ds", wname)
	deffmt := fmt.Sprintf("%%-%ds ", wdef+2)
	lpad := strings.Repeat(" ", wname+wdef+7)
	for _, f := range flags {
		fmt.Fprintf(w, "  -"+namefmt, f.Name)
		if f.DefValue != "" && f.DefValue != "[]" {
			fmt.Fprintf(w, " "+deffmt, "("+f.DefValue+")")
		} else {
			fmt.Fprintf(w, " "+deffmt, "  ")
		}
		usage := f.Usage
		for first := true; usage != "" || first; first = false {
			if !first {
				fmt.Fprint(w, lpad)
			}
			line := usage
			rest := ""
			if len(usage) > wdesc {
				// split on newline or space if present
				if s := strings.LastIndexAny(usage[:wdesc], " \n"); s > 0 {
					line, rest = usage[:s], usage[s+1:]
				} else {
					line, rest = usage[:wdesc], usage[wdesc:]
				}
			}
			fmt.Fprintln(w, line)
			usage = rest
		}
	}
}
