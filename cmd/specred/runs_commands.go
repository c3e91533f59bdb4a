package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"specred/internal/catalog"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the reduction run ledger",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))

	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent reduction runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			records, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				finished := "-"
				if rec.FinishedAt != nil {
					finished = formatDisplayTime(*rec.FinishedAt)
				}
				rows = append(rows, []string{
					rec.ID,
					rec.Exposure,
					rec.Target,
					rec.Instrument,
					formatDisplayTime(rec.StartedAt),
					finished,
					runOutcome(rec),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run ID", "Exposure", "Target", "Instrument", "Started", "Finished", "Result"},
				rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 lists all)")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run's per-detector state transitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			id := args[0]
			rec, err := store.RunByID(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("look up run: %w", err)
			}
			if rec == nil {
				return fmt.Errorf("run %q not found", id)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-12s %s\n", "Run ID:", rec.ID)
			fmt.Fprintf(out, "%-12s %s\n", "Exposure:", rec.Exposure)
			if rec.Target != "" {
				fmt.Fprintf(out, "%-12s %s\n", "Target:", rec.Target)
			}
			fmt.Fprintf(out, "%-12s %s\n", "Instrument:", rec.Instrument)
			fmt.Fprintf(out, "%-12s %s\n", "Started:", formatDisplayTime(rec.StartedAt))
			if rec.FinishedAt != nil {
				fmt.Fprintf(out, "%-12s %s\n", "Finished:", formatDisplayTime(*rec.FinishedAt))
			}
			fmt.Fprintf(out, "%-12s %s\n\n", "Result:", runOutcome(rec))

			states, err := store.RunStates(cmd.Context(), rec.ID)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(states))
			for _, state := range states {
				rows = append(rows, []string{
					fmt.Sprintf("%d", state.Detector),
					formatStateLabel(state.State),
					formatDurationValue(state.Duration),
					state.ErrorMessage,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Detector", "State", "Duration", "Error"},
				rows, 0, 2))
			return nil
		},
	}
}

func runOutcome(rec *catalog.RunRecord) string {
	if rec.Success == nil {
		return "running"
	}
	if *rec.Success {
		return "ok"
	}
	return "failed"
}
