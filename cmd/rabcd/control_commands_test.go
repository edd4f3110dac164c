package main

import (
	"os"
	"strings"
	"testing"

	"rabc/internal/config"
	"rabc/internal/testsupport"
)

func TestStatusAndStopWithoutDaemon(t *testing.T) {
	t.Setenv(config.EnvSocket, "")
	t.Setenv(config.EnvLogLevel, "")
	cfg := testsupport.NewConfig(t)
	path := writeConfig(t, cfg)

	out, err := runCLI(t, "--config", path, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "not running") {
		t.Fatalf("unexpected status output:\n%s", out)
	}

	out, err = runCLI(t, "--config", path, "stop", "--grace", "100ms")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(out, "not running") {
		t.Fatalf("unexpected stop output:\n%s", out)
	}
}

func TestLogsPrintsTrailingLines(t *testing.T) {
	t.Setenv(config.EnvSocket, "")
	t.Setenv(config.EnvLogLevel, "")
	cfg := testsupport.NewConfig(t, testsupport.WithLogDir())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if err := os.WriteFile(cfg.DaemonLogPath(), []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, err := runCLI(t, "--config", writeConfig(t, cfg), "logs", "-n", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "two\nthree\n" {
		t.Fatalf("unexpected logs output %q", out)
	}
}

func TestLogsRequiresLogDir(t *testing.T) {
	t.Setenv(config.EnvSocket, "")
	t.Setenv(config.EnvLogLevel, "")
	cfg := testsupport.NewConfig(t)
	cfg.Logging.Dir = ""

	if _, err := runCLI(t, "--config", writeConfig(t, cfg), "logs"); err == nil || !strings.Contains(err.Error(), "logging.dir") {
		t.Fatalf("expected logging.dir error, got %v", err)
	}
}
