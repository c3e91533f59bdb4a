package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"specred/internal/catalog"
	"specred/internal/exposure"
	"specred/internal/instrument"
	"specred/internal/logging"
	"specred/internal/reduce"
)

func newReduceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reduce <plan.toml>",
		Short: "Reduce one exposure: build and store its master calibration frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			plan, err := exposure.LoadPlan(args[0])
			if err != nil {
				return fmt.Errorf("load plan: %w", err)
			}

			ins, err := instrument.New(cfg.Instrument.Name)
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}

			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			pipeline, err := reduce.New(cfg, ins, store, logger)
			if err != nil {
				return err
			}

			result, err := pipeline.Run(cmd.Context(), plan)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Exposure: %s", result.Exposure.BaseName)
			if target := result.Exposure.Target; target != "" {
				fmt.Fprintf(out, " (%s)", target)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Run ID:   %s\n\n", result.RunID)

			rows := make([][]string, 0, len(result.Detectors))
			failed := 0
			for _, det := range result.Detectors {
				shape := "-"
				if det.NSpec > 0 && det.NSpat > 0 {
					shape = fmt.Sprintf("%dx%d", det.NSpec, det.NSpat)
				}
				detail := ""
				if det.Err != nil {
					failed++
					detail = truncateDetail(det.Err.Error(), 72)
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", det.Detector),
					formatStateLabel(string(det.State)),
					shape,
					formatDurationValue(det.Duration),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Detector", "State", "Shape", "Duration", "Error"},
				rows, 0, 3))

			if !result.Succeeded() {
				return fmt.Errorf("reduction failed for %d of %d detectors", failed, len(result.Detectors))
			}
			return nil
		},
	}
}

func truncateDetail(value string, limit int) string {
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
