// Package geometry tracks the per-detector coordinate system of an exposure:
// which image axis carries the dispersion, whether the detector's frames
// have been transposed to the canonical orientation, and the physical
// layout parameters (gaps, pixel sizes, amplifier sections) that must flip
// together with the pixels.
package geometry

import (
	"errors"
	"fmt"

	"specred/internal/frame"
)

// Dispersion axis flags. After normalization the axis is always AxisRows.
const (
	AxisUnset = -1
	AxisRows  = 0
	AxisCols  = 1
)

var (
	ErrInvalidAxis       = errors.New("invalid dispersion axis")
	ErrAlreadyNormalized = errors.New("geometry already normalized")
	ErrBadDependent      = errors.New("dependent frame unusable for normalization")
)

// Geometry is one detector's coordinate state. Construct with New; mutate
// only through Normalize, after which the value is settled for the exposure.
type Geometry struct {
	XGap  float64
	YGap  float64
	YSize float64
	Amps  []AmpSection

	axis       int
	transposed bool
	normalized bool
	nspec      int
	nspat      int
}

// New seeds a geometry from the instrument's detector parameters. The axis
// starts unset and the pixel counts unknown until Normalize runs.
func New(xgap, ygap, ysize float64, amps []AmpSection) *Geometry {
	return &Geometry{
		XGap:  xgap,
		YGap:  ygap,
		YSize: ysize,
		Amps:  amps,
		axis:  AxisUnset,
	}
}

// Axis returns the current dispersion axis flag.
func (g *Geometry) Axis() int { return g.axis }

// Transposed reports whether normalization transposed this detector.
func (g *Geometry) Transposed() bool { return g.transposed }

// Normalized reports whether Normalize has run.
func (g *Geometry) Normalized() bool { return g.normalized }

// NSpec returns the spectral pixel count fixed by normalization.
func (g *Geometry) NSpec() int { return g.nspec }

// NSpat returns the spatial pixel count fixed by normalization.
func (g *Geometry) NSpat() int { return g.nspat }

// Dependents carries the store-resident frames whose orientation must stay
// consistent with the geometry. Nil members are absent and skipped; the
// detection frame is required and becomes the shape authority for the
// spectral and spatial pixel counts.
type Dependents struct {
	Detection *frame.Frame
	Bias      *frame.Frame
	Arc       *frame.Frame
	BadPixels *frame.Frame
}

// Normalize settles the detector on the canonical orientation where the
// dispersion runs along rows. An axis of AxisRows leaves every input
// unchanged; AxisCols transposes the detection frame and every present
// dependent, reverses the amplifier section rectangles, swaps the x/y gaps,
// and replaces the y pixel size with its reciprocal. The returned Dependents
// holds the (possibly transposed) frames.
//
// Normalize runs at most once per geometry; a second call fails with
// ErrAlreadyNormalized. Validation of the axis and of every dependent
// completes before the first mutation, so a failed call leaves both the
// geometry and the inputs untouched.
func (g *Geometry) Normalize(axis int, deps Dependents) (Dependents, error) {
	if g.normalized {
		return Dependents{}, ErrAlreadyNormalized
	}
	if axis != AxisRows && axis != AxisCols {
		return Dependents{}, fmt.Errorf("%w: %d", ErrInvalidAxis, axis)
	}
	if deps.Detection.Empty() {
		return Dependents{}, fmt.Errorf("%w: detection frame is empty", ErrBadDependent)
	}
	for _, d := range []struct {
		name string
		f    *frame.Frame
	}{
		{"bias", deps.Bias},
		{"arc", deps.Arc},
		{"bad pixel mask", deps.BadPixels},
	} {
		if d.f != nil && d.f.Empty() {
			return Dependents{}, fmt.Errorf("%w: %s frame is empty", ErrBadDependent, d.name)
		}
	}

	out := deps
	if axis == AxisCols {
		out.Detection = deps.Detection.Transpose()
		if deps.Bias != nil {
			out.Bias = deps.Bias.Transpose()
		}
		if deps.Arc != nil {
			out.Arc = deps.Arc.Transpose()
		}
		if deps.BadPixels != nil {
			out.BadPixels = deps.BadPixels.Transpose()
		}
		flipped := make([]AmpSection, len(g.Amps))
		for i, a := range g.Amps {
			flipped[i] = a.Transpose()
		}
		g.Amps = flipped
		g.XGap, g.YGap = g.YGap, g.XGap
		if g.YSize != 0 {
			g.YSize = 1 / g.YSize
		}
		g.transposed = true
	}
	g.axis = AxisRows
	g.nspec, g.nspat = out.Detection.Shape()
	g.normalized = true
	return out, nil
}

// AxisIsShorter reports whether the chosen dispersion axis runs along the
// geometrically shorter dimension of the image, which usually means the
// axis flag is wrong for the instrument.
func AxisIsShorter(axis int, rows, cols int) bool {
	switch axis {
	case AxisRows:
		return rows < cols
	case AxisCols:
		return cols < rows
	default:
		return false
	}
}
