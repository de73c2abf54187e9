package models

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Disas renders every instruction decodable from mem, one per line.
func Disas(dis Dis, mem []byte, addr uint64) (string, error) {
	if len(mem) == 0 {
		return "", nil
	}
	code, err := dis.Dis(mem, addr)
	var out []string
	for _, ins := range code {
		out = append(out, fmt.Sprintf("0x%x: %s %s %s", ins.Addr(), hex.EncodeToString(ins.Bytes()), ins.Mnemonic(), ins.OpStr()))
	}
	return strings.Join(out, "\n"), err
}

func printable(p []byte) string {
	o := make([]byte, len(p))
	for i, c := range p {
		if c >= 0x20 && c <= 0x7e {
			o[i] = c
		} else {
			o[i] = '.'
		}
	}
	return string(o)
}

// HexDump formats mem as lines of word-sized hex blocks followed by their printable characters.
func HexDump(base uint64, mem []byte, bits int) []string {
	bsz := bits / 8
	hexFmt := fmt.Sprintf("0x%%0%dx:", bsz*2)

	width := 80
	addrSize := bsz*2 + 4
	blockCount := ((width - addrSize) * 3 / 4) / ((bsz + 1) * 2)
	lineSize := blockCount * bsz
	var out []string
	for i := 0; i < len(mem); i += lineSize {
		line := mem[i:min(i+lineSize, len(mem))]
		blocks := make([]string, blockCount)
		tail := make([]string, blockCount)
		for j := range blocks {
			start := min(j*bsz, len(line))
			block := line[start:min(start+bsz, len(line))]
			// short blocks are padded with spaces
			pad := bsz - len(block)
			blocks[j] = hex.EncodeToString(block) + strings.Repeat("  ", pad)
			tail[j] = printable(block) + strings.Repeat(" ", pad)
		}
		out = append(out, fmt.Sprintf(hexFmt+" %s [%s]", base+uint64(i), strings.Join(blocks, " "), strings.Join(tail, " ")))
	}
	return out
}
