// Package flatnorm turns a combined flat-field master into its normalized
// form plus the blaze function that was divided out. The default here is a
// deliberately simple collapse-and-divide; richer response fitting can be
// injected in its place.
package flatnorm

import (
	"errors"
	"fmt"

	"specred/internal/frame"
)

var ErrDegenerateFlat = errors.New("flat field has no usable signal")

// Options tunes the normalization.
type Options struct {
	// SmoothWindow is the moving-average length, in spectral pixels,
	// applied to the collapsed blaze profile. Values below 2 disable
	// smoothing.
	SmoothWindow int
}

// Normalize splits the flat into a normalized pixel response and the blaze
// profile. The blaze is the spatially-collapsed mean at each spectral pixel,
// optionally smoothed; the normalized flat is the input divided by its row's
// blaze value. Rows where the blaze vanishes normalize to unity rather than
// exploding. Returns the normalized flat and the blaze as an NSpec x 1
// frame. The input is never mutated.
func Normalize(flat *frame.Frame, opts Options) (*frame.Frame, *frame.Frame, error) {
	if flat.Empty() {
		return nil, nil, fmt.Errorf("%w: empty frame", ErrDegenerateFlat)
	}
	nspec, nspat := flat.Shape()

	profile := make([]float64, nspec)
	for r := 0; r < nspec; r++ {
		var sum float64
		for c := 0; c < nspat; c++ {
			sum += flat.At(r, c)
		}
		profile[r] = sum / float64(nspat)
	}
	if opts.SmoothWindow > 1 {
		profile = movingAverage(profile, opts.SmoothWindow)
	}

	nonzero := false
	for _, v := range profile {
		if v != 0 {
			nonzero = true
			break
		}
	}
	if !nonzero {
		return nil, nil, fmt.Errorf("%w: blaze profile is identically zero", ErrDegenerateFlat)
	}

	norm := frame.New(nspec, nspat)
	blaze := frame.New(nspec, 1)
	for r := 0; r < nspec; r++ {
		blaze.Set(r, 0, profile[r])
		if profile[r] == 0 {
			for c := 0; c < nspat; c++ {
				norm.Set(r, c, 1)
			}
			continue
		}
		for c := 0; c < nspat; c++ {
			norm.Set(r, c, flat.At(r, c)/profile[r])
		}
	}
	return norm, blaze, nil
}

// movingAverage smooths with a centered window, clamping at the ends.
func movingAverage(in []float64, window int) []float64 {
	half := window / 2
	out := make([]float64, len(in))
	for i := range in {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > len(in)-1 {
			hi = len(in) - 1
		}
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += in[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}
