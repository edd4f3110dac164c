package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"rabc/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique state directory and
// socket path per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Daemon.StateDir = filepath.Join(base, "state")
	cfgVal.IPC.SocketPath = SocketPath(t)
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTimerInterval overrides the keepalive interval in seconds.
func WithTimerInterval(seconds float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Timer.IntervalSeconds = seconds
	}
}

// WithMaxFrameSize overrides the frame size limit.
func WithMaxFrameSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.IPC.MaxFrameSize = size
	}
}

// WithLogDir enables file logging under the test temp directory.
func WithLogDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Logging.Dir = filepath.Join(b.baseDir, "logs")
	}
}

// SocketPath returns a fresh unix socket path short enough for sun_path.
// t.TempDir paths embed the test name and can exceed the 108 byte limit.
func SocketPath(t testing.TB) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "rabc")
	if err != nil {
		t.Fatalf("mkdir socket dir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	return filepath.Join(dir, "s.sock")
}
