package difftest

import (
	"golang.org/x/exp/slices"

	rv "github.com/lunixbochs/difftest/go/arch/riscv"
)

// csrAddrs lists every named CSR in address order.
func csrAddrs() []uint16 {
	addrs := make([]uint16, 0, len(rv.CSRNames))
	for addr := range rv.CSRNames {
		addrs = append(addrs, addr)
	}
	slices.Sort(addrs)
	return addrs
}

// DiffCSRs lists the CSRs compared after every step, skipping those masked out entirely.
func DiffCSRs() []uint16 {
	var out []uint16
	for _, addr := range csrAddrs() {
		if mask, ok := rv.CSRDiffMask[addr]; ok && mask == 0 {
			continue
		}
		out = append(out, addr)
	}
	return out
}

func csrMask(addr uint16) uint32 {
	if mask, ok := rv.CSRDiffMask[addr]; ok {
		return mask
	}
	return ^uint32(0)
}
