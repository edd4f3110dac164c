package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rabc/internal/preflight"
	"rabc/internal/textutil"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, the socket path and the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderChecks(results, textutil.ShouldColorize(out)))
			if !preflight.Passed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}

func renderChecks(results []preflight.Result, colorize bool) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		state, tone := "OK", textutil.ToneOK
		if !r.Passed {
			state, tone = "FAIL", textutil.ToneError
		}
		rows = append(rows, []string{r.Name, textutil.Paint(state, tone, colorize), r.Detail})
	}
	return textutil.RenderTable(
		[]string{"Check", "Result", "Detail"},
		rows,
		[]textutil.Alignment{textutil.AlignLeft, textutil.AlignLeft, textutil.AlignLeft},
		colorize,
	)
}
