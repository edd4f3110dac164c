package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"rabc/internal/config"
	"rabc/internal/logging"
	"rabc/internal/rabc"
)

type commandContext struct {
	socketFlag   *string
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(socketFlag, configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		socketFlag:   socketFlag,
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if socket := flagValue(c.socketFlag); socket != "" {
			expanded, err := config.ExpandPath(socket)
			if err != nil {
				c.configErr = fmt.Errorf("resolve --socket: %w", err)
				return
			}
			cfg.IPC.SocketPath = expanded
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

// logger writes console or JSON records to w at the configured level.
func (c *commandContext) logger(w io.Writer) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: w,
	})
}

// clientOptions maps configuration onto rabc.Options.
func (c *commandContext) clientOptions(logger *slog.Logger) (rabc.Options, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return rabc.Options{}, err
	}
	return rabc.Options{
		SocketPath:    cfg.IPC.SocketPath,
		TimerInterval: cfg.TimerInterval(),
		MaxFrameSize:  cfg.IPC.MaxFrameSize,
		Logger:        logger,
	}, nil
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

// wrapDialError turns a failed client construction into operator guidance.
func wrapDialError(err error, socket string) error {
	if rabc.KindOf(err) != rabc.KindInvalidArgument {
		return wrapClientError(err)
	}
	switch {
	case errors.Is(err, syscall.ENOENT) || errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `rabcd`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify rabcd is running", socket)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

// wrapClientError gives a hang-up its own message; everything else keeps
// its kind in the text.
func wrapClientError(err error) error {
	if err == nil {
		return nil
	}
	if rabc.KindOf(err) == rabc.KindIpcConnectionError {
		return fmt.Errorf("daemon disconnected: %w", err)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
