package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultConfigPath      = "~/.config/rabc/config.toml"
	defaultSocketPath      = "/tmp/librabc"
	defaultMaxFrameSize    = 1 << 20
	defaultIntervalSeconds = 2
	defaultWaitSeconds     = 5
	defaultIterations      = 10
	defaultLogLevel        = "info"
	defaultLogFormat       = "console"

	// maxWaitSeconds mirrors the epoll timeout ceiling of MaxInt32 milliseconds.
	maxWaitSeconds = 2147483
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		IPC: IPC{
			SocketPath:   defaultSocketPath,
			MaxFrameSize: defaultMaxFrameSize,
		},
		Timer: Timer{
			IntervalSeconds: defaultIntervalSeconds,
		},
		Client: Client{
			WaitSeconds: defaultWaitSeconds,
			Iterations:  defaultIterations,
		},
		Daemon: Daemon{
			StateDir: defaultStateDir(),
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "rabc")
	}
	return "~/.local/state/rabc"
}
