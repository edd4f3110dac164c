package preflight

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rabc/internal/daemon"
	"rabc/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckSocketPath(t *testing.T) {
	dir := t.TempDir()

	if r := CheckSocketPath(filepath.Join(dir, "absent.sock")); !r.Passed {
		t.Fatalf("expected absent socket to pass, got %q", r.Detail)
	}

	regular := filepath.Join(dir, "regular")
	if err := os.WriteFile(regular, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckSocketPath(regular); r.Passed || !strings.Contains(r.Detail, "not a socket") {
		t.Fatalf("expected regular file to fail, got %+v", r)
	}

	long := "/tmp/" + strings.Repeat("x", 120)
	if r := CheckSocketPath(long); r.Passed || !strings.Contains(r.Detail, "byte limit") {
		t.Fatalf("expected long path to fail, got %+v", r)
	}

	sock := testsupport.SocketPath(t)
	l, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	if r := CheckSocketPath(sock); !r.Passed {
		t.Fatalf("expected live socket to pass, got %q", r.Detail)
	}
}

func TestCheckDaemonWithoutPeer(t *testing.T) {
	result := CheckDaemon(context.Background(), testsupport.SocketPath(t), 0)
	if result.Passed {
		t.Fatal("expected failure without a daemon")
	}
	if !strings.Contains(result.Detail, "InvalidArgument") {
		t.Fatalf("expected error kind in detail, got %q", result.Detail)
	}
}

func TestRunAllAgainstDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if !Passed(results) {
		t.Fatalf("expected all checks to pass: %+v", results)
	}
	last := results[len(results)-1]
	if last.Name != "Daemon" || !strings.Contains(last.Detail, `"pong"`) {
		t.Fatalf("unexpected daemon result %+v", last)
	}
}
