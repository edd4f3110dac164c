//go:build linux

package rabc

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync"

	"rabc/internal/logging"
)

// ErrStreamClosed is returned by Next once the stream has been closed.
var ErrStreamClosed = errors.New("rabc: stream closed")

// Stream turns a Client into a sequence of received frames. When nothing is
// ready it parks the caller on a wake channel and lets a single watcher
// goroutine block on the client's epoll descriptor.
//
// Next must not be called concurrently.
type Stream struct {
	client *Client
	logger *slog.Logger

	mu            sync.Mutex
	waker         chan struct{}
	watcherActive bool
	watchErr      error
	closed        bool

	watcher *watcher
	wg      sync.WaitGroup
}

// NewStream builds a Client from opts and wraps it.
func NewStream(opts Options) (*Stream, error) {
	client, err := New(opts)
	if err != nil {
		return nil, err
	}
	s, err := WrapClient(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// WrapClient takes ownership of client.
func WrapClient(client *Client) (*Stream, error) {
	w, err := newWatcher(client.Fd())
	if err != nil {
		return nil, err
	}
	return &Stream{
		client:  client,
		logger:  logging.NewComponentLogger(client.logger, "rabc_stream"),
		watcher: w,
	}, nil
}

// Client returns the wrapped client. Callers must not Poll or Process on it
// while a Next call is in flight.
func (s *Stream) Client() *Client { return s.client }

// Next returns the next received frame, blocking until one arrives, an error
// occurs, or ctx is done. Keepalive ticks are handled along the way.
func (s *Stream) Next(ctx context.Context) (string, error) {
	for {
		if err := s.failure(); err != nil {
			return "", err
		}

		reply, ok, err := s.drain()
		if err != nil {
			return "", err
		}
		if ok {
			return reply, nil
		}

		wake, err := s.park()
		if err != nil {
			return "", err
		}
		select {
		case <-wake:
		case <-ctx.Done():
			s.unpark(wake)
			return "", ctx.Err()
		}
	}
}

// All yields frames until ctx ends, the consumer stops, or an error occurs.
// The error is yielded once and ends the sequence.
func (s *Stream) All(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			reply, err := s.Next(ctx)
			if err != nil {
				yield("", err)
				return
			}
			if !yield(reply, nil) {
				return
			}
		}
	}
}

// Close releases a parked Next, stops and joins the watcher, then closes the
// client. It is safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	w := s.waker
	s.waker = nil
	s.mu.Unlock()
	if w != nil {
		close(w)
	}

	s.watcher.stop()
	s.wg.Wait()
	return errors.Join(s.watcher.close(), s.client.Close())
}

// drain processes whatever is ready right now without blocking.
func (s *Stream) drain() (string, bool, error) {
	events, err := s.client.Poll(0)
	if err != nil {
		s.logger.Error("client poll failed", logging.Error(err))
		return "", false, err
	}
	for _, ev := range events {
		reply, ok, err := s.client.Process(ev)
		if err != nil {
			return "", false, err
		}
		if ok {
			return reply, true, nil
		}
	}
	return "", false, nil
}

// park installs a fresh waker and makes sure exactly one watcher is running.
func (s *Stream) park() (<-chan struct{}, error) {
	wake := make(chan struct{})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	s.waker = wake
	if s.watcherActive {
		s.watcher.arm()
		return wake, nil
	}
	s.watcherActive = true
	s.wg.Add(1)
	go s.watch()
	return wake, nil
}

func (s *Stream) unpark(wake <-chan struct{}) {
	s.mu.Lock()
	if s.waker != nil && (<-chan struct{})(s.waker) == wake {
		s.waker = nil
	}
	s.mu.Unlock()
}

// takeWaker is the only place a pending waker is consumed.
func (s *Stream) takeWaker() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.waker
	s.waker = nil
	return w
}

func (s *Stream) pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waker != nil
}

// failure reports why Next can no longer make progress, if it cannot.
func (s *Stream) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	return s.watchErr
}

func (s *Stream) watch() {
	defer s.wg.Done()
	for {
		if !s.pending() {
			if !s.watcher.awaitArm() {
				return
			}
			continue
		}

		ready, err := s.watcher.wait()
		if err != nil {
			logging.ErrorWithContext(s.logger, "stream watcher stopped", "stream_watcher_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "close the stream and build a new one"),
				logging.String(logging.FieldImpact, "Next returns this error from now on"))
			s.mu.Lock()
			s.watcherActive = false
			s.watchErr = err
			w := s.waker
			s.waker = nil
			s.mu.Unlock()
			if w != nil {
				close(w)
			}
			return
		}
		if s.watcher.stopped() {
			return
		}
		if !ready {
			continue
		}
		if w := s.takeWaker(); w != nil {
			s.logger.Debug("stream watcher got event")
			close(w)
		} else {
			s.logger.Debug("stream watcher got event but no waker is pending")
		}
	}
}
