package rabc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe2(fds[:], unix.O_CLOEXEC))
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestEpollRegisterTwiceIsBug(t *testing.T) {
	ep, err := NewEpoll(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ep.Close() })

	r, _ := newPipe(t)
	require.NoError(t, ep.Register(r, EventConnectionReadable))
	err = ep.Register(r, EventTimerDue)
	requireKind(t, err, KindBug)
}

func TestEpollWaitRejectsOutOfRangeTimeout(t *testing.T) {
	ep, err := NewEpoll(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ep.Close() })

	_, err = ep.Wait(-time.Millisecond)
	requireKind(t, err, KindInvalidArgument)
	_, err = ep.Wait(MaxWaitTime + time.Millisecond)
	requireKind(t, err, KindInvalidArgument)
}

func TestEpollWaitTimesOutEmpty(t *testing.T) {
	ep, err := NewEpoll(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ep.Close() })

	r, _ := newPipe(t)
	require.NoError(t, ep.Register(r, EventConnectionReadable))

	start := time.Now()
	events, err := ep.Wait(30 * time.Millisecond)
	require.NoError(t, err)
	require.Empty(t, events)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestEpollLevelTriggered(t *testing.T) {
	ep, err := NewEpoll(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ep.Close() })

	r, w := newPipe(t)
	require.NoError(t, ep.Register(r, EventConnectionReadable))
	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	for range 2 {
		events, err := ep.Wait(time.Second)
		require.NoError(t, err)
		require.Equal(t, []Event{EventConnectionReadable}, events)
	}
}

func TestEpollUnknownTagFailsWait(t *testing.T) {
	ep, err := NewEpoll(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ep.Close() })

	r, w := newPipe(t)
	require.NoError(t, ep.Register(r, Event(7)))
	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	_, err = ep.Wait(time.Second)
	requireKind(t, err, KindBug)
	require.Contains(t, err.Error(), "7")
}

func TestEpollDataCarriesFullWidth(t *testing.T) {
	var ev unix.EpollEvent
	putEpollData(&ev, 0xdeadbeef_00000002)
	require.Equal(t, uint64(0xdeadbeef_00000002), epollData(&ev))
}
