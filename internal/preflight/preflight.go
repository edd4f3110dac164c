package preflight

import (
	"context"
	"path/filepath"

	"rabc/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for cfg. The daemon round trip is
// attempted only when the socket path itself is usable.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Daemon.StateDir),
		CheckDirectoryAccess("Socket directory", filepath.Dir(cfg.IPC.SocketPath)),
	}
	if cfg.Logging.Dir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	}

	socket := CheckSocketPath(cfg.IPC.SocketPath)
	results = append(results, socket)
	if socket.Passed {
		results = append(results, CheckDaemon(ctx, cfg.IPC.SocketPath, cfg.IPC.MaxFrameSize))
	}
	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
