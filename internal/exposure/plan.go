// Package exposure models one science observation: the plan of raw frames
// selected for it, the configured source of each calibration role, and the
// identity under which its masters are saved.
package exposure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidPlan = errors.New("invalid reduction plan")

// Plan is the externally-resolved frame selection for one exposure, read
// from a TOML file. Relative paths resolve against the configured raw
// directory.
type Plan struct {
	Exposure PlanExposure `toml:"exposure"`
	Frames   PlanFrames   `toml:"frames"`
}

type PlanExposure struct {
	Target string `toml:"target"`
}

type PlanFrames struct {
	Science string   `toml:"science"`
	Arc     []string `toml:"arc"`
	Trace   []string `toml:"trace"`
	Bias    []string `toml:"bias"`
	Dark    []string `toml:"dark"`
	PixFlat []string `toml:"pixflat"`
	BlzFlat []string `toml:"blzflat"`
}

// LoadPlan parses and validates a plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	var plan Plan
	if err := toml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Validate checks the structural requirements: a science frame and no
// blank entries in any role list.
func (p *Plan) Validate() error {
	if p.Frames.Science == "" {
		return fmt.Errorf("%w: no science frame", ErrInvalidPlan)
	}
	for role, files := range map[string][]string{
		"arc":     p.Frames.Arc,
		"trace":   p.Frames.Trace,
		"bias":    p.Frames.Bias,
		"dark":    p.Frames.Dark,
		"pixflat": p.Frames.PixFlat,
		"blzflat": p.Frames.BlzFlat,
	} {
		for i, f := range files {
			if f == "" {
				return fmt.Errorf("%w: blank %s entry %d", ErrInvalidPlan, role, i)
			}
		}
	}
	return nil
}

func resolvePaths(rawDir string, files []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = resolvePath(rawDir, f)
	}
	return out
}

func resolvePath(rawDir, f string) string {
	if rawDir == "" || filepath.IsAbs(f) {
		return f
	}
	return filepath.Join(rawDir, f)
}
