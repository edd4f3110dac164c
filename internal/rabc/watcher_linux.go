//go:build linux

package rabc

import (
	"encoding/binary"
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

// watchTimeoutMs bounds each readiness wait so the watcher re-checks whether
// anyone still needs waking.
const watchTimeoutMs = 1000

// watcher holds the descriptors and signals the Stream's background
// goroutine blocks on: the client's epoll fd, an eventfd used to interrupt
// an in-flight poll on shutdown, and the arm/done channels used while idle.
type watcher struct {
	epfd   int
	wakefd int

	armCh    chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newWatcher(epfd int) (*watcher, error) {
	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, newError(KindBug, err, "failed to create eventfd")
	}
	return &watcher{
		epfd:   epfd,
		wakefd: wakefd,
		armCh:  make(chan struct{}, 1),
		done:   make(chan struct{}),
	}, nil
}

// arm tells an idle watcher a waker was installed. Never blocks.
func (w *watcher) arm() {
	select {
	case w.armCh <- struct{}{}:
	default:
	}
}

// awaitArm blocks until armed or stopped, reporting false on stop.
func (w *watcher) awaitArm() bool {
	select {
	case <-w.armCh:
		return true
	case <-w.done:
		return false
	}
}

// wait polls the epoll fd for up to watchTimeoutMs and reports whether it
// became readable. EINTR and EAGAIN count as a timeout.
func (w *watcher) wait() (bool, error) {
	fds := []unix.PollFd{
		{Fd: int32(w.epfd), Events: unix.POLLIN},
		{Fd: int32(w.wakefd), Events: unix.POLLIN},
	}
	n, err := unix.Poll(fds, watchTimeoutMs)
	if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
		return false, nil
	}
	if err != nil {
		return false, newError(KindBug, err, "failed on poll() of epoll fd %d", w.epfd)
	}
	if n == 0 {
		return false, nil
	}
	if fds[1].Revents != 0 {
		w.drainWakeFd()
	}
	if fds[0].Revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
		return false, newError(KindBug, nil, "epoll fd %d reported revents %#x", w.epfd, fds[0].Revents)
	}
	return fds[0].Revents&(unix.POLLIN|unix.POLLHUP) != 0, nil
}

func (w *watcher) drainWakeFd() {
	var buf [8]byte
	_, _ = unix.Read(w.wakefd, buf[:])
}

// stop ends the watcher goroutine, interrupting a blocked poll.
func (w *watcher) stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		var one [8]byte
		binary.NativeEndian.PutUint64(one[:], 1)
		_, _ = unix.Write(w.wakefd, one[:])
	})
}

func (w *watcher) stopped() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *watcher) close() error {
	if w.wakefd < 0 {
		return nil
	}
	err := unix.Close(w.wakefd)
	w.wakefd = -1
	return err
}
