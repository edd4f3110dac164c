//go:build linux

package cabi

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"rabc/internal/config"
	"rabc/internal/logging"
	"rabc/internal/rabc"
)

// Status is the integer returned by every C entry point.
type Status int

// Status codes, matching RABC_PASS, RABC_FAIL and RABC_FAIL_NULL_POINTER.
const (
	StatusPass        Status = 0
	StatusFail        Status = 1
	StatusNullPointer Status = 2
)

// Result is what a call reports besides its primary output.
type Result struct {
	Status  Status
	Log     string
	ErrKind string
	ErrMsg  string
}

var (
	sharedLogOnce sync.Once
	sharedLog     *logging.MemoryLog
)

// MemoryLog returns the process-wide sink every client logs into.
func MemoryLog() *logging.MemoryLog {
	sharedLogOnce.Do(func() {
		sharedLog = logging.NewMemoryLog(logging.DefaultMemoryLogCapacity, slog.LevelDebug)
	})
	return sharedLog
}

// call records the start of an entry point so its log lines can be drained.
type call struct {
	log   *logging.MemoryLog
	start time.Time
}

func begin() call {
	return call{log: MemoryLog(), start: time.Now()}
}

func (c call) finish(err error) Result {
	res := Result{Status: StatusPass, Log: c.log.Drain(c.start)}
	if err != nil {
		res.Status = StatusFail
		res.ErrKind, res.ErrMsg = rabc.ErrorPair(err)
	}
	return res
}

// Client is a rabc client owned by a foreign caller.
type Client struct {
	client *rabc.Client
	logger *slog.Logger
}

// NewClient connects using the default configuration with environment
// overrides applied.
func NewClient() (*Client, Result) {
	c := begin()
	cfg, err := config.FromEnvironment()
	if err != nil {
		return nil, c.finish(&rabc.Error{Kind: rabc.KindInvalidArgument, Msg: "load configuration", Err: err})
	}
	logger, err := clientLogger(c.log, cfg, os.Stderr)
	if err != nil {
		return nil, c.finish(&rabc.Error{Kind: rabc.KindInvalidArgument, Msg: "configure logging", Err: err})
	}
	client, err := newClient(cfg, logger)
	return client, c.finish(err)
}

// clientLogger logs into mem. When RABC_LOG_LEVEL is set the records are also
// written to w at that level in the configured format.
func clientLogger(mem *logging.MemoryLog, cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	if strings.TrimSpace(os.Getenv(config.EnvLogLevel)) == "" {
		return mem.Logger(), nil
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: w,
		Extra:  []slog.Handler{mem.Handler()},
	})
}

func newClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	client, err := rabc.New(rabc.Options{
		SocketPath:    cfg.IPC.SocketPath,
		TimerInterval: cfg.TimerInterval(),
		MaxFrameSize:  cfg.IPC.MaxFrameSize,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	return &Client{client: client, logger: logger}, nil
}

// Poll waits up to waitSeconds and returns the ready event IDs.
func (c *Client) Poll(waitSeconds uint32) ([]uint64, Result) {
	rec := begin()
	events, err := c.client.Poll(time.Duration(waitSeconds) * time.Second)
	if err != nil {
		return nil, rec.finish(err)
	}
	ids := make([]uint64, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID())
	}
	return ids, rec.finish(nil)
}

// Process handles one event ID. The reply is empty when the event produced
// none.
func (c *Client) Process(eventID uint64) (string, Result) {
	rec := begin()
	ev, err := rabc.ParseEvent(eventID)
	if err != nil {
		logging.ErrorWithContext(c.logger, "event decode failed", "event_decode_failed",
			logging.Uint64("event_id", eventID),
			logging.Error(err))
		return "", rec.finish(err)
	}
	reply, _, err := c.client.Process(ev)
	if err != nil {
		return "", rec.finish(err)
	}
	return reply, rec.finish(nil)
}

// Close releases the client's descriptors.
func (c *Client) Close() error {
	return c.client.Close()
}
