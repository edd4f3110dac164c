package rabc

import (
	"encoding/binary"
	"io"
	"log/slog"
	"net"
	"time"
	"unicode/utf8"

	"rabc/internal/logging"
)

const (
	// DefaultSocketPath is the well-known path shared by client and daemon.
	DefaultSocketPath = "/tmp/librabc"
	// DefaultMaxFrameSize bounds a single frame payload.
	DefaultMaxFrameSize = 1024 * 1024

	prefixSize = 8
)

// Connection is a framed duplex channel over a unix socket. A frame is an
// 8-byte native-endian length followed by that many UTF-8 bytes.
type Connection struct {
	conn    *net.UnixConn
	maxSize int
	logger  *slog.Logger
}

// Connect dials the daemon socket at path. An absent or refusing peer is
// reported as KindInvalidArgument.
func Connect(path string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, newError(KindInvalidArgument, err, "failed to connect socket %s", path)
	}
	c := &Connection{conn: conn, maxSize: DefaultMaxFrameSize, logger: logger}
	if fd, err := c.Fd(); err == nil {
		logger.Debug("connected to rabc daemon", logging.String("socket", path), logging.Int("fd", fd))
	}
	return c, nil
}

// AcceptExisting takes ownership of an already-connected peer socket and
// clears any deadlines so reads and writes block.
func AcceptExisting(conn net.Conn, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, newError(KindBug, nil, "expected a unix socket connection, got %T", conn)
	}
	if err := uc.SetDeadline(time.Time{}); err != nil {
		return nil, newError(KindBug, err, "failed to set unix socket as blocking")
	}
	return &Connection{conn: uc, maxSize: DefaultMaxFrameSize, logger: logger}, nil
}

// SetMaxFrameSize changes the size guard for subsequent Send and Recv calls.
func (c *Connection) SetMaxFrameSize(n int) *Connection {
	c.maxSize = n
	return c
}

// MaxFrameSize returns the current size guard.
func (c *Connection) MaxFrameSize() int { return c.maxSize }

// Send writes one frame. Oversized payloads are rejected before anything is
// written, leaving the stream usable.
func (c *Connection) Send(text string) error {
	if len(text) > c.maxSize {
		return newError(KindExceededIpcMaxSize, nil,
			"specified data exceeded the max size %d bytes, please change the limitation with SetMaxFrameSize()",
			c.maxSize)
	}
	frame := make([]byte, prefixSize+len(text))
	binary.NativeEndian.PutUint64(frame[:prefixSize], uint64(len(text)))
	copy(frame[prefixSize:], text)
	if _, err := c.conn.Write(frame); err != nil {
		return newError(KindBug, err, "failed to send %d bytes", len(text))
	}
	return nil
}

// Recv reads one frame. A failure reading the length prefix means the peer
// hung up. A prefix at or above the size guard is treated as garbage and the
// payload is never read.
func (c *Connection) Recv() (string, error) {
	var prefix [prefixSize]byte
	if _, err := io.ReadFull(c.conn, prefix[:]); err != nil {
		return "", newError(KindIpcConnectionError, err, "failed to receive data size")
	}
	size := binary.NativeEndian.Uint64(prefix[:])
	if c.maxSize <= 0 || size >= uint64(c.maxSize) {
		return "", newError(KindExceededIpcMaxSize, nil,
			"received data size %d exceeded the max size %d bytes, please change the limitation with SetMaxFrameSize()",
			size, c.maxSize)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return "", newError(KindBug, err, "failed to receive %d bytes of data", size)
	}
	if !utf8.Valid(payload) {
		return "", newError(KindBug, nil, "received %d bytes of invalid UTF-8", size)
	}
	return string(payload), nil
}

// Fd returns the socket descriptor for readiness registration. The
// descriptor stays owned by the connection.
func (c *Connection) Fd() (int, error) {
	raw, err := c.conn.SyscallConn()
	if err != nil {
		return -1, newError(KindBug, err, "failed to access socket descriptor")
	}
	fd := -1
	if err := raw.Control(func(v uintptr) { fd = int(v) }); err != nil {
		return -1, newError(KindBug, err, "failed to access socket descriptor")
	}
	return fd, nil
}

// Close closes the socket.
func (c *Connection) Close() error {
	return c.conn.Close()
}
