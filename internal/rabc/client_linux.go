//go:build linux

package rabc

import (
	"errors"
	"log/slog"
	"time"

	"rabc/internal/logging"
)

// PingMessage is the keepalive frame sent on every timer tick.
const PingMessage = "ping"

// Options configures a Client. Zero values select the defaults.
type Options struct {
	SocketPath    string
	TimerInterval time.Duration
	MaxFrameSize  int
	Logger        *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.SocketPath == "" {
		o.SocketPath = DefaultSocketPath
	}
	if o.TimerInterval == 0 {
		o.TimerInterval = DefaultTimerInterval
	}
	if o.MaxFrameSize == 0 {
		o.MaxFrameSize = DefaultMaxFrameSize
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return o
}

// Client owns one timer, one connection and the epoll instance watching
// both. It is not safe for concurrent use.
type Client struct {
	epoll  *Epoll
	timer  *Timer
	conn   *Connection
	logger *slog.Logger
}

// New builds the multiplexer, arms the keepalive timer and connects to the
// daemon. Any failure releases what was already built and is returned as is.
func New(opts Options) (c *Client, err error) {
	opts = opts.withDefaults()
	logger := logging.NewComponentLogger(opts.Logger, "rabc")

	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
		}
	}()

	epoll, err := NewEpoll(logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, epoll.Close)

	timer, err := NewTimer(opts.TimerInterval, logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, timer.Close)
	if err := epoll.Register(timer.Fd(), EventTimerDue); err != nil {
		return nil, err
	}

	conn, err := Connect(opts.SocketPath, logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, conn.Close)
	conn.SetMaxFrameSize(opts.MaxFrameSize)
	fd, err := conn.Fd()
	if err != nil {
		return nil, err
	}
	if err := epoll.Register(fd, EventConnectionReadable); err != nil {
		return nil, err
	}

	return &Client{epoll: epoll, timer: timer, conn: conn, logger: logger}, nil
}

// Poll waits up to wait for readiness and returns the ready events.
func (c *Client) Poll(wait time.Duration) ([]Event, error) {
	return c.epoll.Wait(wait)
}

// Process handles one ready event. EventTimerDue consumes the tick and sends
// a ping, yielding no reply. EventConnectionReadable receives one frame.
// Errors keep their original kind.
func (c *Client) Process(ev Event) (reply string, ok bool, err error) {
	c.logger.Debug("processing event", logging.String("event", ev.String()))
	switch ev {
	case EventTimerDue:
		if err := c.timer.ConsumeTick(); err != nil {
			return "", false, err
		}
		if err := c.conn.Send(PingMessage); err != nil {
			return "", false, err
		}
		return "", false, nil
	case EventConnectionReadable:
		reply, err := c.conn.Recv()
		if err != nil {
			return "", false, err
		}
		return reply, true, nil
	default:
		return "", false, newError(KindBug, nil, "cannot process unknown event %s", ev)
	}
}

// Fd returns the epoll descriptor, readable whenever any source is ready.
func (c *Client) Fd() int { return c.epoll.Fd() }

// Connection exposes the framed channel, e.g. to tune its size guard.
func (c *Client) Connection() *Connection { return c.conn }

// Close tears down the connection, timer and epoll instance together.
func (c *Client) Close() error {
	return errors.Join(c.conn.Close(), c.timer.Close(), c.epoll.Close())
}
