//go:build linux

package rabc

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"rabc/internal/logging"
)

// DefaultTimerInterval is the keepalive period.
const DefaultTimerInterval = 2 * time.Second

// Timer is a repeating timerfd on CLOCK_BOOTTIME.
type Timer struct {
	fd       int
	interval time.Duration
	logger   *slog.Logger
}

// NewTimer creates a timer that fires every interval, first firing one
// interval from now.
func NewTimer(interval time.Duration, logger *slog.Logger) (*Timer, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if interval <= 0 {
		return nil, newError(KindInvalidArgument, nil, "timer interval must be positive, got %s", interval)
	}

	fd, err := unix.TimerfdCreate(unix.CLOCK_BOOTTIME, unix.TFD_CLOEXEC)
	if err != nil {
		e := newError(KindBug, err, "failed to create timerfd")
		logger.Error("timerfd create failed", logging.Error(e))
		return nil, e
	}

	spec := unix.NsecToTimespec(interval.Nanoseconds())
	value := unix.ItimerSpec{Interval: spec, Value: spec}
	if err := unix.TimerfdSettime(fd, 0, &value, nil); err != nil {
		_ = unix.Close(fd)
		e := newError(KindBug, err, "failed to set timerfd %d to %s", fd, interval)
		logger.Error("timerfd settime failed", logging.Error(e))
		return nil, e
	}

	logger.Debug("timerfd created",
		logging.Int("fd", fd),
		logging.Duration("interval", interval))
	return &Timer{fd: fd, interval: interval, logger: logger}, nil
}

// ConsumeTick blocks until the timer has fired at least once since the last
// call and resets its expiration counter. Call it exactly once per EventTimerDue.
func (t *Timer) ConsumeTick() error {
	var buf [8]byte
	for {
		n, err := unix.Read(t.fd, buf[:])
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			e := newError(KindBug, err, "failed to wait timerfd %d", t.fd)
			t.logger.Error("timerfd read failed", logging.Error(e))
			return e
		}
		if n != len(buf) {
			e := newError(KindBug, nil, "short timerfd read: %d bytes", n)
			t.logger.Error("timerfd read failed", logging.Error(e))
			return e
		}
		break
	}
	if expirations := binary.NativeEndian.Uint64(buf[:]); expirations > 1 {
		t.logger.Debug("timer ticks coalesced", logging.Uint64("expirations", expirations))
	}
	return nil
}

// Interval returns the configured period.
func (t *Timer) Interval() time.Duration { return t.interval }

// Fd returns the waitable timerfd.
func (t *Timer) Fd() int { return t.fd }

// Close releases the timerfd.
func (t *Timer) Close() error {
	if t.fd < 0 {
		return nil
	}
	err := unix.Close(t.fd)
	t.fd = -1
	return err
}
