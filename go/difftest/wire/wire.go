// Package wire carries the thin binding (memcpy, regcpy, exec, raise_intr) over a byte stream.
//
// Every request is a big-endian Request header followed by Len payload bytes.
// Every reply is a Reply header followed by Len payload bytes.
package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/lunixbochs/difftest/go/difftest"
)

const (
	OP_MEMCPY     = 1
	OP_REGCPY     = 2
	OP_EXEC       = 3
	OP_RAISE_INTR = 4
	OP_CLOSE      = 5
)

// reply status codes; exec replies carry the Outcome instead
const (
	STATUS_OK           = 0
	STATUS_OUT_OF_RANGE = -1
	STATUS_BAD_REQUEST  = -2
)

// payloads larger than this are rejected without being read
const MaxPayload = 64 << 20

var order = binary.BigEndian

type Request struct {
	Op   uint8
	Dir  uint8
	Addr uint64
	Len  uint32
}

type Reply struct {
	Status int32
	Len    uint32
}

// ExecResult is the payload of an exec reply.
type ExecResult struct {
	ExitCode int32
	Cause    uint64
	Pc       uint64
}

var ErrRemote = errors.New("remote error")

func statusError(status int32) error {
	switch status {
	case STATUS_OK:
		return nil
	case STATUS_OUT_OF_RANGE:
		return errors.Wrap(difftest.ErrOutOfRange, "remote")
	}
	return errors.Wrapf(ErrRemote, "status %d", status)
}
