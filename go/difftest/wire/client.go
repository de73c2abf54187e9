package wire

import (
	"bufio"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/lunixbochs/difftest/go/difftest"
	"github.com/lunixbochs/difftest/go/models"
)

// Client drives a remote reference through the thin binding.
// Calls are serialized by the caller; a Client is not safe for concurrent use.
type Client struct {
	conn    net.Conn
	rw      *bufio.ReadWriter
	stream  *models.StrucStream
	Timeout time.Duration

	last ExecResult
}

func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to reference server")
	}
	return NewClient(conn), nil
}

func NewClient(conn net.Conn) *Client {
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	return &Client{
		conn:   conn,
		rw:     rw,
		stream: &models.StrucStream{Stream: rw, Order: order},
	}
}

// call sends one request and returns the reply status and payload.
func (c *Client) call(req Request, payload []byte) (int32, []byte, error) {
	if c.Timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.Timeout))
	}
	if err := c.stream.Pack(&req); err != nil {
		return 0, nil, err
	}
	if _, err := c.rw.Write(payload); err != nil {
		return 0, nil, err
	}
	if err := c.rw.Flush(); err != nil {
		return 0, nil, err
	}
	var reply Reply
	if err := c.stream.Unpack(&reply); err != nil {
		return 0, nil, errors.Wrap(err, "reading reply")
	}
	if reply.Len > MaxPayload {
		return 0, nil, errors.Errorf("reply payload too large: %d", reply.Len)
	}
	p := make([]byte, reply.Len)
	if _, err := io.ReadFull(c.rw, p); err != nil {
		return 0, nil, errors.Wrap(err, "reading reply payload")
	}
	return reply.Status, p, nil
}

func (c *Client) Memcpy(addr uint32, buf []byte, dir difftest.Direction) error {
	req := Request{Op: OP_MEMCPY, Dir: uint8(dir), Addr: uint64(addr), Len: uint32(len(buf))}
	var payload []byte
	if dir == difftest.ToRef {
		payload = buf
	}
	status, p, err := c.call(req, payload)
	if err != nil {
		return err
	}
	if err := statusError(status); err != nil {
		return err
	}
	if dir == difftest.ToDut {
		if len(p) != len(buf) {
			return errors.Errorf("short memcpy reply: %d of %d bytes", len(p), len(buf))
		}
		copy(buf, p)
	}
	return nil
}

func (c *Client) Regcpy(r *difftest.Regs, dir difftest.Direction) error {
	req := Request{Op: OP_REGCPY, Dir: uint8(dir)}
	var payload []byte
	if dir == difftest.ToRef {
		var err error
		if payload, err = pack(r); err != nil {
			return err
		}
		req.Len = uint32(len(payload))
	}
	status, p, err := c.call(req, payload)
	if err != nil {
		return err
	}
	if err := statusError(status); err != nil {
		return err
	}
	if dir == difftest.ToDut {
		return unpack(p, r)
	}
	return nil
}

func (c *Client) Exec(n uint64) (difftest.Outcome, error) {
	status, p, err := c.call(Request{Op: OP_EXEC, Addr: n}, nil)
	if err != nil {
		return difftest.Fault, err
	}
	if status < 0 {
		return difftest.Fault, statusError(status)
	}
	if err := unpack(p, &c.last); err != nil {
		return difftest.Fault, err
	}
	return difftest.Outcome(status), nil
}

// ExitCode is a0 at the last exit call reported by Exec.
func (c *Client) ExitCode() int {
	return int(c.last.ExitCode)
}

// LastExec returns the trap details of the last Exec.
func (c *Client) LastExec() ExecResult {
	return c.last
}

func (c *Client) RaiseIntr(no uint64) error {
	status, _, err := c.call(Request{Op: OP_RAISE_INTR, Addr: no}, nil)
	if err != nil {
		return err
	}
	return statusError(status)
}

// Close asks the server to release the reference and closes the connection.
func (c *Client) Close() error {
	_, _, err := c.call(Request{Op: OP_CLOSE}, nil)
	if err2 := c.conn.Close(); err == nil {
		err = err2
	}
	return err
}
