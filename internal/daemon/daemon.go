package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"rabc/internal/config"
	"rabc/internal/logging"
	"rabc/internal/sessions"
)

// Daemon owns the echo server and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *sessions.Store

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	server  *Server
	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	SocketPath     string
	LockFilePath   string
	SessionDBPath  string
	ActiveSessions int
}

// New constructs a daemon. The store may be nil when session history is not wanted.
func New(cfg *config.Config, store *sessions.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, closes out sessions a previous instance
// left open, and begins serving the socket.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another rabcd instance is already running")
	}

	if d.store != nil {
		if n, err := d.store.MarkAbandoned(ctx); err != nil {
			d.logger.Warn("failed to close abandoned sessions", logging.Error(err))
		} else if n > 0 {
			d.logger.Info("closed abandoned sessions", logging.Int64("count", n))
		}
	}

	server, err := NewServer(ctx, d.cfg.IPC.SocketPath, d.cfg.IPC.MaxFrameSize, d.store, d.logger)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start server: %w", err)
	}
	server.Serve()
	d.server = server

	d.running.Store(true)
	d.logger.Info("rabcd started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldSocket, d.cfg.IPC.SocketPath))
	return nil
}

// Stop disconnects clients, removes the socket, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	if d.server != nil {
		if err := d.server.Close(); err != nil {
			d.logger.Warn("server shutdown reported error", logging.Error(err))
		}
		d.server = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("rabcd stopped")
}

// Close stops the daemon and releases the session store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	status := Status{
		Running:       d.running.Load(),
		SocketPath:    d.cfg.IPC.SocketPath,
		LockFilePath:  d.lockPath,
		SessionDBPath: d.cfg.SessionDBPath(),
	}
	if d.server != nil {
		status.ActiveSessions = d.server.ActiveSessions()
	}
	return status
}
