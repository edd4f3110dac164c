package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rabc/internal/daemonctl"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether rabcd is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			running, pid, err := daemonctl.ProcessInfo(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !running {
				fmt.Fprintln(out, "rabcd is not running")
				return nil
			}
			if pid > 0 {
				fmt.Fprintf(out, "rabcd is running (pid %d)\n", pid)
			} else {
				fmt.Fprintln(out, "rabcd is running")
			}
			fmt.Fprintf(out, "Socket: %s\n", cfg.IPC.SocketPath)
			return nil
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	var grace time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running rabcd",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result, err := daemonctl.Stop(cfg, grace)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(out, "rabcd is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(out, "rabcd (pid %d) killed after %s\n", result.PID, grace)
				return nil
			}
			fmt.Fprintf(out, "rabcd (pid %d) stopped\n", result.PID)
			return nil
		},
	}

	cmd.Flags().DurationVar(&grace, "grace", 5*time.Second, "How long to wait before force-killing the daemon")
	return cmd
}
