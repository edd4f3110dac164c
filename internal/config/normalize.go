package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment overrides applied during normalization.
const (
	EnvSocket   = "RABC_SOCKET"
	EnvLogLevel = "RABC_LOG_LEVEL"
)

func (c *Config) normalize() error {
	if err := c.normalizeIPC(); err != nil {
		return err
	}
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizeIPC() error {
	if value, ok := os.LookupEnv(EnvSocket); ok && strings.TrimSpace(value) != "" {
		c.IPC.SocketPath = value
	}
	c.IPC.SocketPath = strings.TrimSpace(c.IPC.SocketPath)
	if c.IPC.SocketPath == "" {
		c.IPC.SocketPath = defaultSocketPath
	}
	var err error
	if c.IPC.SocketPath, err = expandPath(c.IPC.SocketPath); err != nil {
		return fmt.Errorf("ipc.socket_path: %w", err)
	}
	if c.IPC.MaxFrameSize == 0 {
		c.IPC.MaxFrameSize = defaultMaxFrameSize
	}
	return nil
}

func (c *Config) normalizeDaemon() error {
	if strings.TrimSpace(c.Daemon.StateDir) == "" {
		c.Daemon.StateDir = defaultStateDir()
	}
	var err error
	if c.Daemon.StateDir, err = expandPath(c.Daemon.StateDir); err != nil {
		return fmt.Errorf("daemon.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	if value, ok := os.LookupEnv(EnvLogLevel); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
