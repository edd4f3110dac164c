package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"rabc/internal/config"
	"rabc/internal/daemonrun"
)

type commandContext struct {
	configFlag string
	socketFlag string

	once   sync.Once
	config *config.Config
	err    error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.once.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.err = err
			return
		}
		if socket := strings.TrimSpace(c.socketFlag); socket != "" {
			expanded, err := config.ExpandPath(socket)
			if err != nil {
				c.err = fmt.Errorf("resolve --socket: %w", err)
				return
			}
			cfg.IPC.SocketPath = expanded
		}
		c.config = cfg
	})
	return c.config, c.err
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}
	var opts daemonrun.Options

	rootCmd := &cobra.Command{
		Use:           "rabcd",
		Short:         "rabc peer daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&ctx.socketFlag, "socket", "", "Socket path to listen on (overrides ipc.socket_path)")
	rootCmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&opts.Development, "dev", false, "Include source locations in log output")
	rootCmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Do not record sessions")

	rootCmd.AddCommand(
		newSessionsCommand(ctx),
		newStatusCommand(ctx),
		newStopCommand(ctx),
		newLogsCommand(ctx),
	)
	return rootCmd
}
