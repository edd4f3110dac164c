package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rabc/internal/logging"
	"rabc/internal/rabc"
	"rabc/internal/sessions"
)

// PongMessage is the reply sent for every received frame.
const PongMessage = "pong"

// Server accepts rabc clients on a unix socket and answers their frames.
type Server struct {
	path         string
	maxFrameSize int
	store        *sessions.Store
	logger       *slog.Logger
	listener     *net.UnixListener

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu    sync.Mutex
	conns map[string]*rabc.Connection
}

// NewServer removes any stale socket at path and starts listening. A nil
// store disables session history.
func NewServer(ctx context.Context, path string, maxFrameSize int, store *sessions.Store, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "rabcd")
	if maxFrameSize <= 0 {
		maxFrameSize = rabc.DefaultMaxFrameSize
	}

	if _, err := os.Stat(path); err == nil {
		logging.WarnWithContext(logger, "removing stale socket", "stale_socket_removed",
			logging.String(logging.FieldSocket, path),
			logging.String(logging.FieldImpact, "a previous daemon did not shut down cleanly"))
	}
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(serverCtx)
	return &Server{
		path:         path,
		maxFrameSize: maxFrameSize,
		store:        store,
		logger:       logger,
		listener:     listener,
		ctx:          groupCtx,
		cancel:       cancel,
		group:        group,
		conns:        make(map[string]*rabc.Connection),
	}, nil
}

// Path returns the socket path.
func (s *Server) Path() string { return s.path }

// Serve starts accepting connections until the server is closed.
func (s *Server) Serve() {
	s.logger.Info("daemon listening", logging.String(logging.FieldSocket, s.path))
	s.group.Go(func() error {
		for {
			conn, err := s.listener.AcceptUnix()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return nil
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				logging.WarnWithContext(s.logger, "accept failed", "accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.group.Go(func() error {
				s.serveConn(conn)
				return nil
			})
		}
	})
}

// ActiveSessions reports how many clients are connected.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close stops accepting, disconnects every client, waits for their handlers,
// and removes the socket file.
func (s *Server) Close() error {
	s.cancel()
	_ = s.listener.Close()

	s.mu.Lock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	err := s.group.Wait()
	if rmErr := os.RemoveAll(s.path); rmErr != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "socket_cleanup_failed",
			logging.String(logging.FieldSocket, s.path),
			logging.Error(rmErr),
			logging.String(logging.FieldImpact, "stale socket will be replaced on next start"))
	}
	return err
}

func (s *Server) serveConn(nc *net.UnixConn) {
	id := uuid.NewString()
	logger := logging.WithSession(s.logger, id)

	conn, err := rabc.AcceptExisting(nc, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "failed to adopt client socket", "accept_existing_failed", logging.Error(err))
		_ = nc.Close()
		return
	}
	conn.SetMaxFrameSize(s.maxFrameSize)

	if !s.track(id, conn) {
		_ = conn.Close()
		return
	}
	defer s.untrack(id)

	if s.store != nil {
		if _, err := s.store.Start(context.Background(), id, s.path); err != nil {
			logging.WarnWithContext(logger, "session not recorded", "session_start_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "session will be missing from history"))
		}
	}
	logger.Info("client connected")

	frames, reason, cause := s.echo(conn, logger)

	if s.store != nil {
		if err := s.store.Finish(context.Background(), id, frames, reason, cause); err != nil {
			logger.Debug("session finish not recorded", logging.Error(err))
		}
	}
	logger.Info("client disconnected",
		logging.Int("frames", frames),
		logging.String("reason", string(reason)))
}

// echo answers frames until the peer leaves or the server stops. A reply
// that cannot be sent is logged and the session keeps receiving.
func (s *Server) echo(conn *rabc.Connection, logger *slog.Logger) (int, sessions.EndReason, error) {
	defer conn.Close()

	frames := 0
	for {
		text, err := conn.Recv()
		if err != nil {
			return frames, s.endReason(err, logger), causeOf(err)
		}
		frames++
		logger.Debug("received frame", logging.String("text", text))

		if err := conn.Send(PongMessage); err != nil {
			if s.ctx.Err() != nil {
				return frames, sessions.EndShutdown, nil
			}
			kind, msg := rabc.ErrorPair(err)
			logging.ErrorWithContext(logger, "failed to send reply", "reply_send_failed",
				logging.String(logging.FieldErrorKind, kind),
				logging.String("error_message", msg))
		}
	}
}

func (s *Server) endReason(err error, logger *slog.Logger) sessions.EndReason {
	if s.ctx.Err() != nil {
		return sessions.EndShutdown
	}
	if rabc.KindOf(err) == rabc.KindIpcConnectionError {
		return sessions.EndDisconnected
	}
	kind, msg := rabc.ErrorPair(err)
	logging.ErrorWithContext(logger, "client connection failed", "client_connection_failed",
		logging.String(logging.FieldErrorKind, kind),
		logging.String("error_message", msg))
	return sessions.EndError
}

func causeOf(err error) error {
	if rabc.KindOf(err) == rabc.KindIpcConnectionError {
		return nil
	}
	return err
}

func (s *Server) track(id string, conn *rabc.Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.conns[id] = conn
	return true
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
}
