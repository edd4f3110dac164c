package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"rabc/internal/daemon"
	"rabc/internal/daemonctl"
	"rabc/internal/testsupport"
)

func TestProcessInfoWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	running, pid, err := daemonctl.ProcessInfo(cfg)
	if err != nil {
		t.Fatalf("ProcessInfo returned error: %v", err)
	}
	if running || pid != 0 {
		t.Fatalf("expected no daemon, got running=%v pid=%d", running, pid)
	}
	if _, err := daemonctl.Stop(cfg, time.Second); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestProcessInfoTracksLockHolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := os.WriteFile(cfg.PIDPath(), []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	running, pid, err := daemonctl.ProcessInfo(cfg)
	if err != nil {
		t.Fatalf("ProcessInfo returned error: %v", err)
	}
	if !running || pid != os.Getpid() {
		t.Fatalf("unexpected process info running=%v pid=%d", running, pid)
	}

	if _, err := daemonctl.Stop(cfg, time.Second); err == nil || !strings.Contains(err.Error(), "refusing") {
		t.Fatalf("expected refusal to signal self, got %v", err)
	}

	if err := daemonctl.WaitForShutdown(cfg, 50*time.Millisecond); err == nil {
		t.Fatal("expected timeout while the lock is held")
	}
	d.Stop()
	if err := daemonctl.WaitForShutdown(cfg, time.Second); err != nil {
		t.Fatalf("WaitForShutdown after stop: %v", err)
	}
}
