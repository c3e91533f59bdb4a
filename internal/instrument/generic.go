package instrument

import (
	"fmt"

	"specred/internal/fits"
	"specred/internal/frame"
	"specred/internal/geometry"
)

func init() {
	Register("generic", func() Instrument { return NewGeneric() })
}

// Generic is a single-detector instrument with no special behavior: raw
// frames come from the primary HDU and the bad-pixel mask is empty. It is
// the baseline other instruments embed and override.
type Generic struct {
	name  string
	specs []DetectorSpec
}

// NewGeneric builds the generic instrument.
func NewGeneric() *Generic {
	return &Generic{
		name: "generic",
		specs: []DetectorSpec{{
			DataExt:       0,
			DispAxis:      geometry.AxisUnset,
			YSize:         1,
			Saturation:    65535,
			Nonlinear:     1,
			NumAmplifiers: 1,
			Gain:          1,
		}},
	}
}

func (g *Generic) Name() string              { return g.name }
func (g *Generic) Detectors() []DetectorSpec { return g.specs }

// BPM returns an all-clear mask: 0 marks a usable pixel, 1 a masked one.
func (g *Generic) BPM(det, rows, cols int) (*frame.Frame, error) {
	if _, err := Detector(g, det); err != nil {
		return nil, err
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("bad pixel mask needs a shape, got %dx%d", rows, cols)
	}
	return frame.New(rows, cols), nil
}

// LoadRaw reads the detector's configured data extension.
func (g *Generic) LoadRaw(path string, det int) (*frame.Frame, fits.Header, error) {
	spec, err := Detector(g, det)
	if err != nil {
		return nil, nil, err
	}
	return fits.ReadHDU(path, spec.DataExt)
}
