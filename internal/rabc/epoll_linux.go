//go:build linux

package rabc

import (
	"errors"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sys/unix"

	"rabc/internal/logging"
)

const eventBufferCount = 16

// MaxWaitTime is the longest timeout Wait accepts.
const MaxWaitTime = time.Duration(math.MaxInt32) * time.Millisecond

// Epoll is a level-triggered, read-only readiness multiplexer mapping
// descriptors to Event tags.
type Epoll struct {
	fd     int
	tags   map[int]Event
	logger *slog.Logger
}

// NewEpoll allocates the epoll instance.
func NewEpoll(logger *slog.Logger) (*Epoll, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		e := newError(KindBug, err, "failed to epoll_create1()")
		logger.Error("epoll create failed", logging.Error(e))
		return nil, e
	}
	return &Epoll{fd: fd, tags: make(map[int]Event, 2), logger: logger}, nil
}

// Register watches fd for read readiness and reports it as ev. Each
// descriptor may be registered once. The tag is stored as given; Wait is
// where unknown tags are caught.
func (p *Epoll) Register(fd int, ev Event) error {
	if prev, ok := p.tags[fd]; ok {
		return newError(KindBug, nil, "fd %d already registered to epoll %d as %s", fd, p.fd, prev)
	}
	p.logger.Debug("adding fd to epoll",
		logging.Int("fd", fd),
		logging.Int("epoll_fd", p.fd),
		logging.String("event", ev.String()))

	event := unix.EpollEvent{Events: unix.EPOLLIN}
	putEpollData(&event, ev.ID())
	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
		e := newError(KindBug, err, "failed to epoll_ctl(%d, EPOLL_CTL_ADD, %d, %s)", p.fd, fd, ev)
		p.logger.Error("epoll register failed", logging.Error(e))
		return e
	}
	p.tags[fd] = ev
	return nil
}

// Wait blocks up to timeout and returns the ready events in kernel order.
// A zero timeout returns immediately; an elapsed timeout returns an empty
// slice. An undecodable tag fails the whole call.
func (p *Epoll) Wait(timeout time.Duration) ([]Event, error) {
	if timeout < 0 || timeout > MaxWaitTime {
		return nil, newError(KindInvalidArgument, nil, "wait time out of range: %s", timeout)
	}
	var events [eventBufferCount]unix.EpollEvent
	n, err := unix.EpollWait(p.fd, events[:], int(timeout/time.Millisecond))
	if errors.Is(err, unix.EINTR) {
		return []Event{}, nil
	}
	if err != nil {
		e := newError(KindBug, err, "failed on epoll_wait()")
		p.logger.Error("epoll wait failed", logging.Error(e))
		return nil, e
	}

	ready := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		ev, err := parseEventLogged(epollData(&events[i]), p.logger)
		if err != nil {
			return nil, err
		}
		ready = append(ready, ev)
	}
	return ready, nil
}

// Fd returns the epoll descriptor, which is itself pollable.
func (p *Epoll) Fd() int { return p.fd }

// Close releases the epoll instance.
func (p *Epoll) Close() error {
	if p.fd < 0 {
		return nil
	}
	err := unix.Close(p.fd)
	p.fd = -1
	return err
}

// The 64-bit epoll_data union is exposed by x/sys as the Fd and Pad fields.
func putEpollData(ev *unix.EpollEvent, data uint64) {
	ev.Fd = int32(uint32(data))
	ev.Pad = int32(uint32(data >> 32))
}

func epollData(ev *unix.EpollEvent) uint64 {
	return uint64(uint32(ev.Fd)) | uint64(uint32(ev.Pad))<<32
}
