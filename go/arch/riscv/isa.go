package riscv

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrIsa = errors.New("invalid isa string")

// Isa is a parsed RISC-V ISA string such as "rv32imf" or "rv32i_zve32x_zvl128b".
type Isa struct {
	Name string
	Xlen int
	// one bit per single-letter extension, laid out like misa
	Letters uint32
	// multi-letter extensions, lowercase, in the order given
	Multi []string
	// vector register width in bytes, 0 without vector support
	VLenB int
}

// single-letter extensions we accept while parsing; engines may still reject some
const knownLetters = "iemafdqcbvh"

func letterBit(c byte) uint32 {
	return 1 << uint(c-'a')
}

func ParseIsa(s string) (*Isa, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(name, "rv") {
		return nil, errors.Wrapf(ErrIsa, "%q: missing rv prefix", s)
	}
	rest := name[2:]
	n := 0
	for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
		n++
	}
	xlen, err := strconv.Atoi(rest[:n])
	if err != nil {
		return nil, errors.Wrapf(ErrIsa, "%q: missing xlen", s)
	}
	if xlen != 32 {
		return nil, errors.Wrapf(ErrIsa, "%q: unsupported xlen %d", s, xlen)
	}
	isa := &Isa{Name: name, Xlen: xlen}
	rest = rest[n:]
	if rest == "" {
		return nil, errors.Wrapf(ErrIsa, "%q: missing base isa", s)
	}
	switch rest[0] {
	case 'i', 'e':
		isa.Letters |= letterBit(rest[0])
	case 'g':
		for _, c := range []byte("imafd") {
			isa.Letters |= letterBit(c)
		}
		isa.Multi = append(isa.Multi, "zicsr", "zifencei")
	default:
		return nil, errors.Wrapf(ErrIsa, "%q: base isa must be i, e or g", s)
	}
	rest = skipVersion(rest[1:])

	// single-letter extensions run until the first underscore or multi-letter prefix
	for rest != "" && rest[0] != '_' && !isMultiPrefix(rest[0]) {
		c := rest[0]
		if !strings.ContainsRune(knownLetters, rune(c)) || c == 'i' || c == 'e' {
			return nil, errors.Wrapf(ErrIsa, "%q: unknown extension %q", s, c)
		}
		isa.Letters |= letterBit(c)
		rest = skipVersion(rest[1:])
	}
	rest = strings.TrimPrefix(rest, "_")
	if rest != "" {
		for _, ext := range strings.Split(rest, "_") {
			if ext == "" || !isMultiPrefix(ext[0]) || len(ext) < 2 {
				return nil, errors.Wrapf(ErrIsa, "%q: bad extension %q", s, ext)
			}
			isa.Multi = append(isa.Multi, ext)
		}
	}
	if err := isa.sizeVector(); err != nil {
		return nil, errors.Wrapf(err, "%q", s)
	}
	return isa, nil
}

func isMultiPrefix(c byte) bool {
	return c == 'z' || c == 's' || c == 'x'
}

// skips a version suffix like "2" or "2p1"
func skipVersion(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(s) && s[i] == 'p' && s[i+1] >= '0' && s[i+1] <= '9' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	return s[i:]
}

// VLEN is the largest of the minimum implied by the vector extensions and any zvl<N>b given.
func (i *Isa) sizeVector() error {
	vlen := 0
	if i.Has('v') {
		vlen = 128
	}
	zvl := 0
	for _, ext := range i.Multi {
		switch {
		case strings.HasPrefix(ext, "zve32") || strings.HasPrefix(ext, "zve64"):
			minimum := 32
			if strings.HasPrefix(ext, "zve64") {
				minimum = 64
			}
			vlen = max(vlen, minimum)
		case strings.HasPrefix(ext, "zvl") && strings.HasSuffix(ext, "b"):
			n, err := strconv.Atoi(ext[3 : len(ext)-1])
			if err != nil || n < 32 || n&(n-1) != 0 {
				return errors.Wrapf(ErrIsa, "bad vector length %q", ext)
			}
			zvl = max(zvl, n)
		}
	}
	if vlen > 0 {
		i.VLenB = max(vlen, zvl) / 8
	}
	return nil
}

// Has reports whether a single-letter extension is present.
func (i *Isa) Has(c byte) bool {
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	if c < 'a' || c > 'z' {
		return false
	}
	return i.Letters&letterBit(c) != 0
}

// HasExt reports whether a multi-letter extension is present.
func (i *Isa) HasExt(name string) bool {
	for _, ext := range i.Multi {
		if ext == name {
			return true
		}
	}
	return false
}

// Vector reports whether any vector extension is configured.
func (i *Isa) Vector() bool {
	return i.VLenB > 0
}

// Misa returns the machine ISA register value: MXL in the top bits, one bit per letter.
func (i *Isa) Misa() uint32 {
	return 1<<30 | i.Letters
}

// Extensions lists the multi-letter extensions in sorted order.
func (i *Isa) Extensions() []string {
	ret := append([]string(nil), i.Multi...)
	sort.Strings(ret)
	return ret
}

func (i *Isa) String() string {
	return i.Name
}
