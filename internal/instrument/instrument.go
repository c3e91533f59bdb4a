// Package instrument abstracts the spectrograph-specific pieces of a
// reduction: detector layout parameters, raw-frame reading, and bad-pixel
// masks. Everything downstream works off this interface so a new
// spectrograph only needs a registry entry.
package instrument

import (
	"errors"
	"fmt"

	"specred/internal/fits"
	"specred/internal/frame"
	"specred/internal/geometry"
)

var ErrDetectorRange = errors.New("instrument has no such detector")

// DetectorSpec seeds one detector's geometry and limits.
type DetectorSpec struct {
	DataExt       int
	DispAxis      int // geometry.AxisUnset defers to detection
	XGap          float64
	YGap          float64
	YSize         float64
	PlateScale    float64
	DarkCurrent   float64
	Saturation    float64
	Nonlinear     float64
	NumAmplifiers int
	Gain          float64
	ReadNoise     float64
	Amps          []geometry.AmpSection
}

// NonlinearLimit is the count level above which the detector response can
// no longer be trusted as linear.
func (d DetectorSpec) NonlinearLimit() float64 {
	return d.Saturation * d.Nonlinear
}

// Geometry builds a fresh geometry state seeded from the detector layout.
func (d DetectorSpec) Geometry() *geometry.Geometry {
	amps := make([]geometry.AmpSection, len(d.Amps))
	copy(amps, d.Amps)
	return geometry.New(d.XGap, d.YGap, d.YSize, amps)
}

// Instrument is the capability surface a spectrograph provides to the
// pipeline. BPM returns the bad-pixel mask for the given detector and
// image shape; implementations must return the mask rather than squirrel
// it away in internal state. LoadRaw reads one detector's raw image as
// float64 pixels plus the observation header.
type Instrument interface {
	Name() string
	Detectors() []DetectorSpec
	BPM(det, rows, cols int) (*frame.Frame, error)
	LoadRaw(path string, det int) (*frame.Frame, fits.Header, error)
}

// Detector returns the 1-based detector's spec.
func Detector(ins Instrument, det int) (DetectorSpec, error) {
	specs := ins.Detectors()
	if det < 1 || det > len(specs) {
		return DetectorSpec{}, fmt.Errorf("%w: %d of %d on %s", ErrDetectorRange, det, len(specs), ins.Name())
	}
	return specs[det-1], nil
}
