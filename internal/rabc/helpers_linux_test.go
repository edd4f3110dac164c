package rabc

import (
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"rabc/internal/testsupport"
)

// connPair returns two framed connections joined by a socketpair.
func connPair(t *testing.T) (*Connection, *Connection) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)

	wrap := func(fd int, name string) *Connection {
		f := os.NewFile(uintptr(fd), name)
		nc, err := net.FileConn(f)
		require.NoError(t, f.Close())
		require.NoError(t, err)
		c, err := AcceptExisting(nc, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c
	}
	return wrap(fds[0], "left"), wrap(fds[1], "right")
}

// peer is a one-connection daemon stand-in listening on a temp socket.
type peer struct {
	path     string
	listener *net.UnixListener
	conns    chan *Connection
}

func startPeer(t *testing.T) *peer {
	t.Helper()
	path := testsupport.SocketPath(t)
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	require.NoError(t, err)

	p := &peer{path: path, listener: ln, conns: make(chan *Connection, 1)}
	go func() {
		nc, err := ln.Accept()
		if err != nil {
			close(p.conns)
			return
		}
		c, err := AcceptExisting(nc, nil)
		if err != nil {
			_ = nc.Close()
			close(p.conns)
			return
		}
		p.conns <- c
	}()
	t.Cleanup(func() { _ = ln.Close() })
	return p
}

// accept returns the server side of the first client connection.
func (p *peer) accept(t *testing.T) *Connection {
	t.Helper()
	c, ok := <-p.conns
	require.True(t, ok, "peer failed to accept")
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// echoPongs answers every frame with "pong" until the client hangs up.
func (p *peer) echoPongs(t *testing.T) {
	t.Helper()
	c := p.accept(t)
	go func() {
		for {
			if _, err := c.Recv(); err != nil {
				return
			}
			if err := c.Send("pong"); err != nil {
				return
			}
		}
	}()
}
