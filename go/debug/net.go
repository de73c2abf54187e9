package debug

import (
	"fmt"
	"net"
	"os"

	"github.com/lunixbochs/difftest/go/debug/cmd"
)

func Accept(host, port string) (net.Conn, error) {
	addr := net.JoinHostPort(host, port)
	fmt.Fprintf(os.Stderr, "Waiting for connection on %s\n", addr)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	defer ln.Close()
	return ln.Accept()
}

// RunRemote serves the console over c. The context writes to c for the duration of the session.
func RunRemote(c net.Conn, ctx *cmd.Context) error {
	fmt.Fprintf(os.Stderr, "Debug connection from %s\n", c.RemoteAddr())
	defer c.Close()
	saved := ctx.Writer
	ctx.Writer = c
	defer func() { ctx.Writer = saved }()
	console := NewConsole(ctx)
	console.History = ""
	return console.Run(c, c)
}
