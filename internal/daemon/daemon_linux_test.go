package daemon_test

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"rabc/internal/config"
	"rabc/internal/daemon"
	"rabc/internal/logging"
	"rabc/internal/rabc"
	"rabc/internal/sessions"
	"rabc/internal/testsupport"
)

func startDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *sessions.Store) {
	t.Helper()
	store, err := sessions.Open(cfg)
	if err != nil {
		t.Fatalf("sessions.Open: %v", err)
	}
	d, err := daemon.New(cfg, store, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return d, store
}

func newClient(t *testing.T, cfg *config.Config) *rabc.Client {
	t.Helper()
	c, err := rabc.New(rabc.Options{SocketPath: cfg.IPC.SocketPath, TimerInterval: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("rabc.New: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c
}

// nextReply drives the client until a frame arrives or the deadline passes.
func nextReply(t *testing.T, c *rabc.Client) (string, error) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		events, err := c.Poll(500 * time.Millisecond)
		if err != nil {
			return "", err
		}
		for _, ev := range events {
			reply, ok, err := c.Process(ev)
			if err != nil {
				return "", err
			}
			if ok {
				return reply, nil
			}
		}
	}
	t.Fatal("no reply before deadline")
	return "", nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDaemonAnswersPings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := startDaemon(t, cfg)
	c := newClient(t, cfg)

	for range 3 {
		reply, err := nextReply(t, c)
		if err != nil {
			t.Fatalf("client error: %v", err)
		}
		if reply != daemon.PongMessage {
			t.Fatalf("unexpected reply %q", reply)
		}
	}

	status := d.Status()
	if !status.Running || status.ActiveSessions != 1 {
		t.Fatalf("unexpected status %+v", status)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("client close: %v", err)
	}
	waitFor(t, "session to finish", func() bool {
		list, err := store.List(context.Background(), 0)
		return err == nil && len(list) == 1 && !list[0].Active()
	})
	list, _ := store.List(context.Background(), 0)
	if list[0].EndReason != sessions.EndDisconnected || list[0].Frames < 3 {
		t.Fatalf("unexpected session %+v", list[0])
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := startDaemon(t, cfg)

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected second start on the same daemon to fail")
	}

	other, err := daemon.New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := other.Start(context.Background()); err == nil {
		other.Stop()
		t.Fatal("expected lock contention to fail the second daemon")
	}
}

func TestDaemonStopDisconnectsClients(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := startDaemon(t, cfg)
	c := newClient(t, cfg)

	if _, err := nextReply(t, c); err != nil {
		t.Fatalf("client error: %v", err)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	if _, err := os.Stat(cfg.IPC.SocketPath); !os.IsNotExist(err) {
		t.Fatalf("expected socket to be removed, stat err=%v", err)
	}

	// Only the readable side is processed: a ping written after the hang-up
	// would fail with EPIPE instead.
	var recvErr error
	waitFor(t, "hang-up to be reported", func() bool {
		events, err := c.Poll(100 * time.Millisecond)
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		for _, ev := range events {
			if ev != rabc.EventConnectionReadable {
				continue
			}
			if _, _, err := c.Process(ev); err != nil {
				recvErr = err
				return true
			}
		}
		return false
	})
	if rabc.KindOf(recvErr) != rabc.KindIpcConnectionError {
		t.Fatalf("expected IpcConnectionError after stop, got %v", recvErr)
	}

	list, err := store.List(context.Background(), 0)
	if err != nil || len(list) != 1 || list[0].EndReason != sessions.EndShutdown {
		t.Fatalf("expected one shutdown session, got %+v err=%v", list, err)
	}
}

func TestDaemonReplacesStaleSocket(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.WriteFile(cfg.IPC.SocketPath, []byte("stale"), 0o600); err != nil {
		t.Fatalf("write stale socket: %v", err)
	}
	startDaemon(t, cfg)
	c := newClient(t, cfg)
	if reply, err := nextReply(t, c); err != nil || reply != daemon.PongMessage {
		t.Fatalf("unexpected reply %q err=%v", reply, err)
	}
}

func TestDaemonMarksAbandonedSessions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenSessions(t, cfg)
	if _, err := store.Start(context.Background(), "left-open", cfg.IPC.SocketPath); err != nil {
		t.Fatalf("Start session: %v", err)
	}

	d, err := daemon.New(cfg, store, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	got, err := store.Get(context.Background(), "left-open")
	if err != nil || got == nil || got.EndReason != sessions.EndAbandoned {
		t.Fatalf("expected abandoned session, got %+v err=%v", got, err)
	}
}

func TestServerKeepsReceivingAfterFailedReply(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenSessions(t, cfg)
	mem := logging.NewMemoryLog(64, slog.LevelDebug)

	// Empty frames fit under a 3 byte limit but "pong" does not.
	srv, err := daemon.NewServer(context.Background(), cfg.IPC.SocketPath, 3, store, mem.Logger())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		_ = srv.Close()
	})

	conn, err := rabc.Connect(cfg.IPC.SocketPath, nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	for i := range 2 {
		if err := conn.Send(""); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	var logged strings.Builder
	waitFor(t, "both replies to fail", func() bool {
		logged.WriteString(mem.Drain(time.Time{}))
		return strings.Count(logged.String(), "failed to send reply") == 2
	})
	if srv.ActiveSessions() != 1 {
		t.Fatalf("session ended after a failed reply, active=%d", srv.ActiveSessions())
	}
	if !strings.Contains(logged.String(), "ExceededIpcMaxSize") {
		t.Fatalf("expected error kind in log, got %q", logged.String())
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("client close: %v", err)
	}
	waitFor(t, "session to finish", func() bool {
		list, err := store.List(context.Background(), 0)
		return err == nil && len(list) == 1 && !list[0].Active()
	})
	list, _ := store.List(context.Background(), 0)
	if list[0].Frames != 2 || list[0].EndReason != sessions.EndDisconnected {
		t.Fatalf("unexpected session %+v", list[0])
	}
}
