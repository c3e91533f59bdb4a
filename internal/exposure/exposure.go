package exposure

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownSourceMode reports a use_* setting that matches no strategy for
// its role. Fatal, never retried.
var ErrUnknownSourceMode = errors.New("unknown source mode")

// OverscanMarker is the strategy marker stored in the bias slot when
// overscan subtraction stands in for a bias master.
const OverscanMarker = "overscan"

// Mode tells a pipeline step how to obtain its master.
type Mode string

const (
	// ModeBuild combines raw frames from the resolved file list.
	ModeBuild Mode = "build"
	// ModeOverscan records the overscan strategy marker instead of an
	// array master. Bias only.
	ModeOverscan Mode = "overscan"
	// ModeNone records the product as deliberately absent.
	ModeNone Mode = "none"
	// ModeNamed loads a previously saved master from the catalog.
	ModeNamed Mode = "named"
)

// Source is one calibration role's resolved origin.
type Source struct {
	Mode  Mode
	Files []string // ModeBuild
	Name  string   // ModeNamed
}

// Roles carries the configured use_* settings, exactly as written in the
// configuration file.
type Roles struct {
	Bias  string
	Arc   string
	Trace string
	Flat  string
}

// Exposure is one science frame's reduction context. Derived calibration
// state lives in the master store, not here; the exposure itself is
// discarded when the run ends.
type Exposure struct {
	Target      string
	SciencePath string
	ObsTime     time.Time
	BaseName    string

	Bias  Source
	Arc   Source
	Trace Source
	Flat  Source
}

// Resolve maps the plan's frame lists through the configured role sources.
// Every use_* keyword is checked here so the pipeline never sees an
// unresolved mode; an arbitrary string names a saved master.
func Resolve(plan *Plan, roles Roles, rawDir string) (*Exposure, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	ex := &Exposure{
		Target:      plan.Exposure.Target,
		SciencePath: resolvePath(rawDir, plan.Frames.Science),
	}

	switch roles.Bias {
	case "bias":
		ex.Bias = Source{Mode: ModeBuild, Files: resolvePaths(rawDir, plan.Frames.Bias)}
	case "dark":
		ex.Bias = Source{Mode: ModeBuild, Files: resolvePaths(rawDir, plan.Frames.Dark)}
	case OverscanMarker:
		ex.Bias = Source{Mode: ModeOverscan}
	case "none":
		ex.Bias = Source{Mode: ModeNone}
	case "":
		return nil, fmt.Errorf("%w: empty use_bias", ErrUnknownSourceMode)
	default:
		ex.Bias = Source{Mode: ModeNamed, Name: roles.Bias}
	}

	switch roles.Arc {
	case "arc":
		ex.Arc = Source{Mode: ModeBuild, Files: resolvePaths(rawDir, plan.Frames.Arc)}
	case "none":
		ex.Arc = Source{Mode: ModeNone}
	case "":
		return nil, fmt.Errorf("%w: empty use_arc", ErrUnknownSourceMode)
	default:
		ex.Arc = Source{Mode: ModeNamed, Name: roles.Arc}
	}

	switch roles.Trace {
	case "trace":
		ex.Trace = Source{Mode: ModeBuild, Files: resolvePaths(rawDir, plan.Frames.Trace)}
	case "blzflat":
		ex.Trace = Source{Mode: ModeBuild, Files: resolvePaths(rawDir, plan.Frames.BlzFlat)}
	case "science":
		return nil, fmt.Errorf("%w: tracing from the science frame is not supported", ErrUnknownSourceMode)
	case "none":
		ex.Trace = Source{Mode: ModeNone}
	case "":
		return nil, fmt.Errorf("%w: empty use_trace", ErrUnknownSourceMode)
	default:
		ex.Trace = Source{Mode: ModeNamed, Name: roles.Trace}
	}

	switch roles.Flat {
	case "pixflat":
		ex.Flat = Source{Mode: ModeBuild, Files: resolvePaths(rawDir, plan.Frames.PixFlat)}
	case "blzflat":
		ex.Flat = Source{Mode: ModeBuild, Files: resolvePaths(rawDir, plan.Frames.BlzFlat)}
	case "none":
		ex.Flat = Source{Mode: ModeNone}
	case "":
		return nil, fmt.Errorf("%w: empty use_flat", ErrUnknownSourceMode)
	default:
		ex.Flat = Source{Mode: ModeNamed, Name: roles.Flat}
	}

	return ex, nil
}

// SetObsTime records the science frame's observation time and derives the
// base name every saved master of this exposure carries.
func (ex *Exposure) SetObsTime(t time.Time) {
	ex.ObsTime = t
	ex.BaseName = FormatBaseName(t)
}

// FormatBaseName renders an observation time as the exposure base name:
// calendar date with abbreviated month, then the UT time of day.
func FormatBaseName(t time.Time) string {
	return t.UTC().Format("2006Jan02T150405")
}
