package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"specred/internal/catalog"
	"specred/internal/frame"
)

func newMastersCommand(ctx *commandContext) *cobra.Command {
	mastersCmd := &cobra.Command{
		Use:   "masters",
		Short: "Inspect master calibration frames in the catalog",
	}

	mastersCmd.AddCommand(newMastersListCommand(ctx))
	mastersCmd.AddCommand(newMastersInfoCommand(ctx))

	return mastersCmd
}

func newMastersListCommand(ctx *commandContext) *cobra.Command {
	var exposureFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved masters",
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

			records, err := store.ListMasters(cmd.Context(), exposureFilter)
			if err != nil {
				return fmt.Errorf("list masters: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No masters recorded.")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.Name,
					formatStateLabel(rec.Kind),
					fmt.Sprintf("%d", rec.Detector),
					fmt.Sprintf("%dx%d", rec.NSpec, rec.NSpat),
					fmt.Sprintf("%d", rec.FrameCount),
					formatDisplayTime(rec.CreatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Name", "Kind", "Detector", "Shape", "Frames", "Created"},
				rows, 2, 4))
			return nil
		},
	}

	cmd.Flags().StringVar(&exposureFilter, "exposure", "", "Only list masters for this exposure base name")
	return cmd
}

func newMastersInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show one master's record and pixel statistics",
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

			name := args[0]
			rec, err := store.MasterByName(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("look up master: %w", err)
			}
			if rec == nil {
				return fmt.Errorf("master %q not found", name)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %s\n", "Name:", rec.Name)
			fmt.Fprintf(out, "%-10s %s\n", "Kind:", formatStateLabel(rec.Kind))
			fmt.Fprintf(out, "%-10s %s\n", "Exposure:", rec.Exposure)
			fmt.Fprintf(out, "%-10s %d\n", "Detector:", rec.Detector)
			fmt.Fprintf(out, "%-10s %dx%d\n", "Shape:", rec.NSpec, rec.NSpat)
			fmt.Fprintf(out, "%-10s %d\n", "Frames:", rec.FrameCount)
			fmt.Fprintf(out, "%-10s %s\n", "File:", rec.FilePath)
			fmt.Fprintf(out, "%-10s %s\n", "Created:", formatDisplayTime(rec.CreatedAt))

			pixels, _, err := store.LoadMaster(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("read master pixels: %w", err)
			}
			mean, stddev := frame.MeanStdDev(pixels)
			fmt.Fprintf(out, "%-10s mean=%.4g stddev=%.4g median=%.4g max=%.4g\n",
				"Pixels:", mean, stddev, frame.Median(pixels), frame.Max(pixels))
			return nil
		},
	}
}
