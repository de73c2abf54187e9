package wire

import (
	"bytes"

	"github.com/lunixbochs/difftest/go/models"
)

func pack(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	s := &models.StrucStream{Stream: &buf, Order: order}
	if err := s.Pack(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unpack(p []byte, v interface{}) error {
	s := &models.StrucStream{Stream: bytes.NewBuffer(p), Order: order}
	return s.Unpack(v)
}
