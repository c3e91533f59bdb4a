package instrument

import (
	"fmt"

	"specred/internal/frame"
	"specred/internal/geometry"
)

func init() {
	Register("keck_nirspec", func() Instrument { return NewNIRSPEC() })
}

// NIRSPEC is the Keck near-infrared echelle spectrograph: one 1024x1024
// detector whose outer columns never see usable signal.
type NIRSPEC struct {
	Generic
}

// NewNIRSPEC builds the NIRSPEC instrument.
func NewNIRSPEC() *NIRSPEC {
	ins := &NIRSPEC{}
	ins.name = "keck_nirspec"
	ins.specs = []DetectorSpec{{
		DataExt:       0,
		DispAxis:      geometry.AxisRows,
		YSize:         1,
		PlateScale:    0.193,
		DarkCurrent:   0.8,
		Saturation:    65535,
		Nonlinear:     0.76,
		NumAmplifiers: 1,
		Gain:          5.8,
		ReadNoise:     23,
	}}
	return ins
}

// BPM masks the junk edge columns of the detector.
func (n *NIRSPEC) BPM(det, rows, cols int) (*frame.Frame, error) {
	if _, err := Detector(n, det); err != nil {
		return nil, err
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("bad pixel mask needs a shape, got %dx%d", rows, cols)
	}
	mask := frame.New(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c < 20 || c >= 1000 {
				mask.Set(r, c, 1)
			}
		}
	}
	return mask, nil
}
