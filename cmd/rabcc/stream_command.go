package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rabc/internal/rabc"
)

func newStreamCommand(ctx *commandContext) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Receive replies through the asynchronous stream adapter",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("count") {
				count = cfg.Client.Iterations
			}
			if count <= 0 {
				return fmt.Errorf("--count must be positive, got %d", count)
			}

			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opts, err := ctx.clientOptions(logger)
			if err != nil {
				return err
			}
			stream, err := rabc.NewStream(opts)
			if err != nil {
				return wrapDialError(err, opts.SocketPath)
			}
			defer stream.Close()

			out := cmd.OutOrStdout()
			i := 0
			for reply, err := range stream.All(cmd.Context()) {
				if err != nil {
					return wrapClientError(err)
				}
				line := fmt.Sprintf("%d: Got reply from daemon: %s", i, reply)
				logger.Info(line)
				fmt.Fprintln(out, line)
				i++
				if i >= count {
					break
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of replies to receive (default client.iterations)")
	return cmd
}
