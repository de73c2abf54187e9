package loader

import (
	"github.com/pkg/errors"
)

// LoadRaw places a flat binary at base and starts execution at its first byte.
func LoadRaw(p []byte, base uint64) (*Image, error) {
	if len(p) == 0 {
		return nil, errors.WithStack(UnknownMagic)
	}
	if base+uint64(len(p)) > 1<<32 {
		return nil, errors.Errorf("image of %#x bytes does not fit at %#x", len(p), base)
	}
	return &Image{
		Entry:    base,
		Segments: []Segment{{Addr: base, Data: p}},
	}, nil
}
