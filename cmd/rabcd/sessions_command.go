package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"rabc/internal/sessions"
	"rabc/internal/textutil"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var prune time.Duration

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent client sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := sessions.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if prune > 0 {
				n, err := store.Prune(cmd.Context(), time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d sessions older than %s\n", n, prune)
			}

			list, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			renderSessions(out, list, time.Now())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to list (0 for all)")
	cmd.Flags().DurationVar(&prune, "prune", 0, "Delete finished sessions older than this before listing")
	return cmd
}

func renderSessions(out io.Writer, list []sessions.Session, now time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No sessions recorded")
		return
	}
	colorize := textutil.ShouldColorize(out)
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		reason := "Active"
		tone := textutil.ToneOK
		if !s.Active() {
			reason = textutil.Title(string(s.EndReason))
			tone = reasonTone(s.EndReason)
		}
		rows = append(rows, []string{
			s.ID,
			s.StartedAt.Local().Format(time.DateTime),
			s.Duration(now).Round(time.Millisecond).String(),
			strconv.Itoa(s.Frames),
			textutil.Paint(reason, tone, colorize),
			s.Error,
		})
	}
	fmt.Fprintln(out, textutil.RenderTable(
		[]string{"Session", "Started", "Duration", "Frames", "Status", "Error"},
		rows,
		[]textutil.Alignment{textutil.AlignLeft, textutil.AlignLeft, textutil.AlignRight, textutil.AlignRight},
		colorize,
	))
}

func reasonTone(reason sessions.EndReason) textutil.Tone {
	switch reason {
	case sessions.EndError:
		return textutil.ToneError
	case sessions.EndAbandoned:
		return textutil.ToneWarn
	default:
		return textutil.ToneNone
	}
}
