package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"rabc/internal/logging"
	"rabc/internal/rabc"
	"rabc/internal/textutil"
)

func newPollCommand(ctx *commandContext) *cobra.Command {
	var iterations int
	var waitSeconds float64
	var summary bool

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Run the keepalive loop and print daemon replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("iterations") {
				iterations = cfg.Client.Iterations
			}
			wait := cfg.WaitTimeout()
			if cmd.Flags().Changed("wait") {
				wait = time.Duration(waitSeconds * float64(time.Second))
			}
			if iterations <= 0 {
				return fmt.Errorf("--iterations must be positive, got %d", iterations)
			}

			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opts, err := ctx.clientOptions(logger)
			if err != nil {
				return err
			}
			client, err := rabc.New(opts)
			if err != nil {
				return wrapDialError(err, opts.SocketPath)
			}
			defer client.Close()

			stats, runErr := runPoll(cmd, client, iterations, wait, logger)
			if summary {
				fmt.Fprintln(cmd.OutOrStdout(), renderPollSummary(stats, textutil.ShouldColorize(cmd.OutOrStdout())))
			}
			return wrapClientError(runErr)
		},
	}

	cmd.Flags().IntVarP(&iterations, "iterations", "n", 0, "Number of poll iterations (default client.iterations)")
	cmd.Flags().Float64Var(&waitSeconds, "wait", 0, "Seconds to wait per iteration (default client.wait_seconds)")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print a table of event counts when done")
	return cmd
}

type pollStats struct {
	iterations int
	idle       int
	events     map[rabc.Event]int
	replies    int
}

func runPoll(cmd *cobra.Command, client *rabc.Client, iterations int, wait time.Duration, logger *slog.Logger) (pollStats, error) {
	stats := pollStats{events: make(map[rabc.Event]int)}
	out := cmd.OutOrStdout()
	for i := 0; i < iterations; i++ {
		if err := cmd.Context().Err(); err != nil {
			return stats, err
		}
		stats.iterations++
		events, err := client.Poll(wait)
		if err != nil {
			return stats, err
		}
		if len(events) == 0 {
			stats.idle++
			continue
		}
		for _, ev := range events {
			stats.events[ev]++
			reply, ok, err := client.Process(ev)
			if err != nil {
				return stats, err
			}
			if !ok {
				continue
			}
			stats.replies++
			logger.Info("got reply from daemon", logging.String("reply", reply))
			fmt.Fprintf(out, "Got reply from daemon: %s\n", reply)
		}
	}
	return stats, nil
}

func renderPollSummary(stats pollStats, colorize bool) string {
	rows := [][]string{
		{"Iterations", strconv.Itoa(stats.iterations)},
		{"Idle iterations", strconv.Itoa(stats.idle)},
	}
	for _, ev := range []rabc.Event{rabc.EventTimerDue, rabc.EventConnectionReadable} {
		rows = append(rows, []string{ev.String(), strconv.Itoa(stats.events[ev])})
	}
	rows = append(rows, []string{"Replies", textutil.Paint(strconv.Itoa(stats.replies), replyTone(stats), colorize)})
	return textutil.RenderTable([]string{"Metric", "Count"}, rows, []textutil.Alignment{textutil.AlignLeft, textutil.AlignRight}, colorize)
}

func replyTone(stats pollStats) textutil.Tone {
	switch {
	case stats.replies > 0:
		return textutil.ToneOK
	case stats.events[rabc.EventTimerDue] > 0:
		return textutil.ToneWarn
	default:
		return textutil.ToneNone
	}
}
