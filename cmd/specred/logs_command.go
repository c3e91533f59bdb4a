package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"specred/internal/logging"
	"specred/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the tail of the workspace log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			path := logging.LogFilePath(cfg)
			if path == "" {
				return errors.New("no log directory configured")
			}

			out := cmd.OutOrStdout()
			lines, offset, err := logs.LastLines(path, limit)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}

			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are appended")
	return cmd
}
