package geometry

import (
	"errors"
	"fmt"
	"math"

	"specred/internal/frame"
)

// ErrAxisDetection reports that the automatic dispersion-axis detection
// could not make a call on the supplied image.
var ErrAxisDetection = errors.New("dispersion axis detection failed")

// AxisDetector examines an arc image and returns the dispersion axis flag.
// window is the central fraction of the image to examine, in (0, 1].
type AxisDetector func(img *frame.Frame, window float64) (int, error)

// ResolveAxis settles the dispersion axis for a detector: a configured value
// of AxisRows or AxisCols wins outright, AxisUnset defers to the detection
// routine, and anything else is rejected.
func ResolveAxis(configured int, img *frame.Frame, window float64, detect AxisDetector) (int, error) {
	switch configured {
	case AxisRows, AxisCols:
		return configured, nil
	case AxisUnset:
		if detect == nil {
			return AxisUnset, fmt.Errorf("%w: no detection routine supplied", ErrAxisDetection)
		}
		axis, err := detect(img, window)
		if err != nil {
			return AxisUnset, fmt.Errorf("%w: %w", ErrAxisDetection, err)
		}
		if axis != AxisRows && axis != AxisCols {
			return AxisUnset, fmt.Errorf("%w: routine returned %d", ErrAxisDetection, axis)
		}
		return axis, nil
	default:
		return AxisUnset, fmt.Errorf("%w: %d", ErrInvalidAxis, configured)
	}
}

// DetectDispersionAxis is the default AxisDetector. Arc emission lines run
// across the spatial direction, so collapsing the image perpendicular to
// the dispersion produces a strongly structured profile while collapsing
// along it stays flat. The axis whose collapsed profile shows the higher
// contrast is reported as the dispersion axis.
func DetectDispersionAxis(img *frame.Frame, window float64) (int, error) {
	if img.Empty() {
		return AxisUnset, errors.New("empty detection image")
	}
	if window <= 0 || window > 1 {
		return AxisUnset, fmt.Errorf("detection window %v outside (0, 1]", window)
	}
	rows, cols := img.Shape()
	r0, r1 := centerSpan(rows, window)
	c0, c1 := centerSpan(cols, window)
	if r1-r0 < 2 || c1-c0 < 2 {
		return AxisUnset, fmt.Errorf("detection window too small for %dx%d image", rows, cols)
	}

	rowProfile := make([]float64, r1-r0)
	colProfile := make([]float64, c1-c0)
	for r := r0; r < r1; r++ {
		for c := c0; c < c1; c++ {
			v := img.At(r, c)
			rowProfile[r-r0] += v
			colProfile[c-c0] += v
		}
	}

	rowContrast := contrast(rowProfile)
	colContrast := contrast(colProfile)
	switch {
	case rowContrast > colContrast:
		// Lines stack along rows: wavelength advances with the row index.
		return AxisRows, nil
	case colContrast > rowContrast:
		return AxisCols, nil
	default:
		return AxisUnset, errors.New("image shows no preferred direction")
	}
}

func centerSpan(n int, window float64) (int, int) {
	keep := int(float64(n) * window)
	if keep < 1 {
		keep = 1
	}
	lo := (n - keep) / 2
	return lo, lo + keep
}

// contrast measures profile structure as the mean absolute deviation from
// the profile mean, scaled by the mean level. Flat profiles score near zero.
func contrast(profile []float64) float64 {
	var sum float64
	for _, v := range profile {
		sum += v
	}
	mean := sum / float64(len(profile))
	scale := math.Abs(mean)
	if scale == 0 {
		return 0
	}
	var dev float64
	for _, v := range profile {
		dev += math.Abs(v - mean)
	}
	return dev / (float64(len(profile)) * scale)
}
