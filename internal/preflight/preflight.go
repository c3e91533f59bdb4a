package preflight

import (
	"context"

	"specred/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check that applies to the given config. planPath is
// optional; when empty the plan check is skipped.
func RunAll(ctx context.Context, cfg *config.Config, planPath string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Workspace directory", cfg.Paths.WorkspaceDir))

	// The raw directory is input-only; reductions never write there.
	if cfg.Paths.RawDir != "" {
		results = append(results, CheckReadableDirectory("Raw directory", cfg.Paths.RawDir))
	}

	results = append(results, CheckCatalog(ctx, cfg))
	results = append(results, CheckInstrument(cfg.Instrument.Name))

	if planPath != "" {
		results = append(results, CheckPlan(planPath))
	}

	return results
}

// Ready reports whether every check passed.
func Ready(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return len(results) > 0
}
