package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"rabc/internal/config"
	"rabc/internal/daemonrun"
)

// ErrDaemonNotRunning indicates no rabcd holds the lock.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Running reports whether some process holds the daemon lock.
func Running(cfg *config.Config) (bool, error) {
	if _, err := os.Stat(cfg.LockPath()); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe daemon lock: %w", err)
	}
	if ok {
		_ = lock.Unlock()
		return false, nil
	}
	return true, nil
}

// ProcessInfo returns whether the daemon is running and its recorded pid.
func ProcessInfo(cfg *config.Config) (bool, int, error) {
	running, err := Running(cfg)
	if err != nil || !running {
		return false, 0, err
	}
	pid, err := daemonrun.ReadPID(cfg)
	if err != nil {
		return true, 0, err
	}
	return true, pid, nil
}

// WaitForShutdown polls the daemon lock until it is released or timeout passes.
func WaitForShutdown(cfg *config.Config, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		running, err := Running(cfg)
		if err != nil {
			return err
		}
		if !running {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.New("daemon did not stop: timeout waiting for shutdown")
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// Stop sends SIGTERM to the daemon and force-kills it if it still holds the
// lock after gracePeriod.
func Stop(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	running, pid, err := ProcessInfo(cfg)
	if err != nil {
		return StopResult{}, err
	}
	if !running {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid <= 0 {
		return StopResult{}, fmt.Errorf("unable to determine daemon pid (pid file: %s)", cfg.PIDPath())
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}

	result := StopResult{PID: pid}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return result, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	if err := WaitForShutdown(cfg, gracePeriod); err == nil {
		return result, nil
	}

	if err := ForceKill(cfg, pid); err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	result.ForcedKill = true
	return result, nil
}

// ForceKill sends SIGKILL to pid and removes the files a clean shutdown
// would have removed.
func ForceKill(cfg *config.Config, pid int) error {
	if pid == os.Getpid() {
		return fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(cfg.PIDPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pid file %q: %w", cfg.PIDPath(), err)
	}
	_ = os.Remove(cfg.IPC.SocketPath)
	return nil
}
