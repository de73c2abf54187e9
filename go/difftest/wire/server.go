package wire

import (
	"bufio"
	"fmt"
	"io"
	"net"

	"github.com/pkg/errors"

	"github.com/lunixbochs/difftest/go/difftest"
	"github.com/lunixbochs/difftest/go/models"
)

// Server gives each accepted connection its own reference instance.
type Server struct {
	// New builds the reference for one connection. It is closed when the connection ends.
	New func() (*difftest.Ref, error)
	Out io.Writer
}

func (s *Server) logf(format string, a ...interface{}) {
	if s.Out != nil {
		fmt.Fprintf(s.Out, format+"\n", a...)
	}
}

// Serve accepts connections until the listener fails.
func (s *Server) Serve(l net.Listener) error {
	for {
		c, err := l.Accept()
		if err != nil {
			return err
		}
		go func() {
			if err := s.ServeConn(c); err != nil {
				s.logf("wire: %s: %v", c.RemoteAddr(), err)
			}
		}()
	}
}

// ServeConn handles requests on c until it is closed or sends OP_CLOSE.
func (s *Server) ServeConn(c net.Conn) error {
	defer c.Close()
	ref, err := s.New()
	if err != nil {
		return err
	}
	defer ref.Close()
	s.logf("wire: connection from %s", c.RemoteAddr())

	rw := bufio.NewReadWriter(bufio.NewReader(c), bufio.NewWriter(c))
	stream := &models.StrucStream{Stream: rw, Order: order}
	h := &handler{thin: difftest.NewThin(ref), stream: stream}
	for {
		var req Request
		if err := stream.Unpack(&req); err != nil {
			if errors.Cause(err) == io.EOF {
				return nil
			}
			return errors.Wrap(err, "reading request")
		}
		done, err := h.handle(&req, rw)
		if err != nil {
			return err
		}
		if err := rw.Flush(); err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

type handler struct {
	thin   difftest.Thin
	stream *models.StrucStream
}

func (h *handler) reply(status int32, payload []byte) error {
	if err := h.stream.Pack(&Reply{Status: status, Len: uint32(len(payload))}); err != nil {
		return err
	}
	_, err := h.stream.Stream.Write(payload)
	return err
}

func (h *handler) handle(req *Request, r io.Reader) (bool, error) {
	if req.Len > MaxPayload {
		return true, h.reply(STATUS_BAD_REQUEST, nil)
	}
	var payload []byte
	// only requests flowing toward the reference carry data
	if req.Op != OP_MEMCPY || difftest.Direction(req.Dir) == difftest.ToRef {
		payload = make([]byte, req.Len)
		if _, err := io.ReadFull(r, payload); err != nil {
			return true, errors.Wrap(err, "reading payload")
		}
	}
	switch req.Op {
	case OP_MEMCPY:
		dir := difftest.Direction(req.Dir)
		buf := payload
		if dir == difftest.ToDut {
			buf = make([]byte, req.Len)
		}
		if req.Addr >= 1<<32 || h.thin.Memcpy(uint32(req.Addr), buf, dir) != nil {
			return false, h.reply(STATUS_OUT_OF_RANGE, nil)
		}
		if dir == difftest.ToDut {
			return false, h.reply(STATUS_OK, buf)
		}
		return false, h.reply(STATUS_OK, nil)
	case OP_REGCPY:
		var regs difftest.Regs
		if difftest.Direction(req.Dir) == difftest.ToRef {
			if err := unpack(payload, &regs); err != nil {
				return false, h.reply(STATUS_BAD_REQUEST, nil)
			}
			h.thin.Regcpy(&regs, difftest.ToRef)
			return false, h.reply(STATUS_OK, nil)
		}
		h.thin.Regcpy(&regs, difftest.ToDut)
		p, err := pack(&regs)
		if err != nil {
			return true, err
		}
		return false, h.reply(STATUS_OK, p)
	case OP_EXEC:
		out := h.thin.Exec(req.Addr)
		res := ExecResult{ExitCode: int32(h.thin.ExitCode())}
		if trap := h.thin.LastTrap(); trap != nil {
			res.Cause, res.Pc = trap.Cause, trap.Pc
		}
		p, err := pack(&res)
		if err != nil {
			return true, err
		}
		return false, h.reply(int32(out), p)
	case OP_RAISE_INTR:
		if err := h.thin.RaiseIntr(req.Addr); err != nil {
			return false, h.reply(STATUS_BAD_REQUEST, nil)
		}
		return false, h.reply(STATUS_OK, nil)
	case OP_CLOSE:
		return true, h.reply(STATUS_OK, nil)
	}
	return false, h.reply(STATUS_BAD_REQUEST, nil)
}
