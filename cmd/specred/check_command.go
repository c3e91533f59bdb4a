package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"specred/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [plan.toml]",
		Short: "Verify the workspace, catalog, and instrument before reducing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			planPath := ""
			if len(args) == 1 {
				planPath = args[0]
			}

			results := preflight.RunAll(cmd.Context(), cfg, planPath)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			if !preflight.Ready(results) {
				return errors.New("preflight checks failed")
			}
			fmt.Fprintln(out, "\nReady to reduce.")
			return nil
		},
	}
}
