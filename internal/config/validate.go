package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIPC(); err != nil {
		return err
	}
	if err := c.validateTimer(); err != nil {
		return err
	}
	if err := c.validateClient(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateIPC() error {
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must be set")
	}
	if !filepath.IsAbs(c.IPC.SocketPath) {
		return fmt.Errorf("ipc.socket_path must be absolute, got %q", c.IPC.SocketPath)
	}
	if c.IPC.MaxFrameSize <= 0 {
		return errors.New("ipc.max_frame_size must be positive")
	}
	return nil
}

func (c *Config) validateTimer() error {
	if c.Timer.IntervalSeconds <= 0 {
		return errors.New("timer.interval_seconds must be positive")
	}
	return nil
}

func (c *Config) validateClient() error {
	if c.Client.WaitSeconds < 0 {
		return errors.New("client.wait_seconds must be >= 0")
	}
	if c.Client.WaitSeconds > maxWaitSeconds {
		return fmt.Errorf("client.wait_seconds must be <= %d", maxWaitSeconds)
	}
	if c.Client.Iterations <= 0 {
		return errors.New("client.iterations must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}
