//go:build linux

package cabi

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rabc/internal/config"
	"rabc/internal/daemon"
	"rabc/internal/logging"
	"rabc/internal/rabc"
	"rabc/internal/testsupport"
)

func startPeer(t *testing.T, cfg *config.Config) {
	t.Helper()
	srv, err := daemon.NewServer(context.Background(), cfg.IPC.SocketPath, cfg.IPC.MaxFrameSize, nil, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		_ = srv.Close()
	})
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithTimerInterval(0.02))
	startPeer(t, cfg)
	client, err := newClient(cfg, MemoryLog().Logger())
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestNewClientReportsMissingDaemon(t *testing.T) {
	t.Setenv(config.EnvSocket, filepath.Join(t.TempDir(), "absent.sock"))
	t.Setenv(config.EnvLogLevel, "")

	client, res := NewClient()
	if client != nil {
		_ = client.Close()
		t.Fatal("expected no client without a daemon")
	}
	if res.Status != StatusFail {
		t.Fatalf("expected StatusFail, got %d", res.Status)
	}
	if res.ErrKind != rabc.KindInvalidArgument.String() {
		t.Fatalf("unexpected error kind %q", res.ErrKind)
	}
	if !strings.Contains(res.ErrMsg, "absent.sock") {
		t.Fatalf("expected socket path in message, got %q", res.ErrMsg)
	}
	if !strings.Contains(res.Log, "timerfd created") {
		t.Fatalf("expected construction log lines, got %q", res.Log)
	}
}

func TestNewClientConnectsAndDrainsLog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	startPeer(t, cfg)
	t.Setenv(config.EnvSocket, cfg.IPC.SocketPath)
	t.Setenv(config.EnvLogLevel, "")

	client, res := NewClient()
	if res.Status != StatusPass || client == nil {
		t.Fatalf("NewClient failed: %+v", res)
	}
	defer client.Close()
	if res.ErrKind != "" || res.ErrMsg != "" {
		t.Fatalf("expected empty error pair, got %+v", res)
	}
	if !strings.Contains(res.Log, "connected to rabc daemon") {
		t.Fatalf("expected connect line in log, got %q", res.Log)
	}
	if MemoryLog().Len() != 0 {
		t.Fatalf("expected log to be drained, %d lines left", MemoryLog().Len())
	}
}

func TestPollAndProcessRoundTrip(t *testing.T) {
	client := newTestClient(t)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		events, res := client.Poll(1)
		if res.Status != StatusPass {
			t.Fatalf("Poll failed: %+v", res)
		}
		for _, id := range events {
			reply, res := client.Process(id)
			if res.Status != StatusPass {
				t.Fatalf("Process(%d) failed: %+v", id, res)
			}
			if id == rabc.EventTimerDue.ID() && reply != "" {
				t.Fatalf("timer event produced reply %q", reply)
			}
			if id == rabc.EventConnectionReadable.ID() {
				if reply != daemon.PongMessage {
					t.Fatalf("unexpected reply %q", reply)
				}
				if !strings.Contains(res.Log, "processing event") {
					t.Fatalf("expected process log, got %q", res.Log)
				}
				return
			}
		}
	}
	t.Fatal("no reply before deadline")
}

func TestProcessRejectsUnknownEvent(t *testing.T) {
	client := newTestClient(t)

	reply, res := client.Process(7)
	if reply != "" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if res.Status != StatusFail || res.ErrKind != "Bug" {
		t.Fatalf("expected Bug failure, got %+v", res)
	}
	if !strings.Contains(res.ErrMsg, "7") {
		t.Fatalf("expected event id in message, got %q", res.ErrMsg)
	}
	if !strings.Contains(res.Log, "event decode failed") {
		t.Fatalf("expected decode failure in log, got %q", res.Log)
	}
}

func TestPollRejectsOversizedWait(t *testing.T) {
	client := newTestClient(t)

	events, res := client.Poll(^uint32(0))
	if events != nil {
		t.Fatalf("unexpected events %v", events)
	}
	if res.Status != StatusFail || res.ErrKind != rabc.KindInvalidArgument.String() {
		t.Fatalf("expected InvalidArgument, got %+v", res)
	}
}

func TestDrainSkipsLinesFromEarlierCalls(t *testing.T) {
	log := MemoryLog()
	log.Logger().Info("left over from a previous caller")
	time.Sleep(time.Millisecond)

	c := begin()
	log.Logger().Info("during call")
	res := c.finish(nil)
	if strings.Contains(res.Log, "left over") {
		t.Fatalf("earlier line leaked into result: %q", res.Log)
	}
	if !strings.Contains(res.Log, "during call") {
		t.Fatalf("expected call line, got %q", res.Log)
	}
}

func TestClientLoggerMirrorsWhenLevelSet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.Level = "warn"
	mem := logging.NewMemoryLog(8, slog.LevelDebug)

	t.Setenv(config.EnvLogLevel, "warn")
	var stderr bytes.Buffer
	logger, err := clientLogger(mem, cfg, &stderr)
	if err != nil {
		t.Fatalf("clientLogger: %v", err)
	}
	logger.Debug("timer armed")
	logger.Warn("peer slow")

	if strings.Contains(stderr.String(), "timer armed") || !strings.Contains(stderr.String(), "peer slow") {
		t.Fatalf("unexpected mirrored output %q", stderr.String())
	}
	out := mem.Drain(time.Time{})
	if !strings.Contains(out, "timer armed") || !strings.Contains(out, "peer slow") {
		t.Fatalf("memory log missing records: %q", out)
	}
}

func TestClientLoggerStaysInMemoryByDefault(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mem := logging.NewMemoryLog(8, slog.LevelDebug)

	t.Setenv(config.EnvLogLevel, "")
	var stderr bytes.Buffer
	logger, err := clientLogger(mem, cfg, &stderr)
	if err != nil {
		t.Fatalf("clientLogger: %v", err)
	}
	logger.Error("recv failed")

	if stderr.Len() != 0 {
		t.Fatalf("expected no mirrored output, got %q", stderr.String())
	}
	if !strings.Contains(mem.Drain(time.Time{}), "recv failed") {
		t.Fatalf("memory log missing record")
	}
}
