// Package combine builds a single master frame out of a stack of raw frames
// of the same kind. Combination is pure: inputs are never mutated and the
// same stack, weights, and policy always produce the same master.
package combine

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"specred/internal/frame"
)

// Statistic selects the per-pixel reduction applied across the stack.
type Statistic string

const (
	StatisticMean         Statistic = "mean"
	StatisticMedian       Statistic = "median"
	StatisticWeightedMean Statistic = "weightmean"
)

// Policy describes how a stack collapses into one frame. Sigma thresholds of
// zero disable clipping; clipping applies to the mean statistics only and is
// ignored for the median.
type Policy struct {
	Statistic     Statistic
	SigmaLow      float64
	SigmaHigh     float64
	MaxIterations int
}

// DefaultPolicy is a plain mean with 3-sigma symmetric clipping.
func DefaultPolicy() Policy {
	return Policy{
		Statistic:     StatisticMean,
		SigmaLow:      3,
		SigmaHigh:     3,
		MaxIterations: 5,
	}
}

var (
	ErrNoFrames         = errors.New("no frames to combine")
	ErrShapeMismatch    = errors.New("combine shape mismatch")
	ErrArityMismatch    = errors.New("combine weight count mismatch")
	ErrUnknownStatistic = errors.New("unknown combination statistic")
)

// Combine collapses the stack into one frame under the policy. weights may
// be nil for equal weighting; when given, it must have one entry per frame.
// The median statistic ignores weights.
func Combine(frames []*frame.Frame, weights []float64, policy Policy) (*frame.Frame, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	switch policy.Statistic {
	case StatisticMean, StatisticMedian, StatisticWeightedMean:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatistic, policy.Statistic)
	}
	first := frames[0]
	for i, f := range frames {
		if !f.SameShape(first) {
			return nil, fmt.Errorf("%w: frame %d is %dx%d, want %dx%d",
				ErrShapeMismatch, i, f.Rows(), f.Cols(), first.Rows(), first.Cols())
		}
	}
	if weights != nil && len(weights) != len(frames) {
		return nil, fmt.Errorf("%w: %d weights for %d frames",
			ErrArityMismatch, len(weights), len(frames))
	}
	if weights == nil {
		weights = make([]float64, len(frames))
		for i := range weights {
			weights[i] = 1
		}
	}

	rows, cols := first.Shape()
	out := frame.New(rows, cols)
	stacks := make([][]float64, len(frames))
	for i, f := range frames {
		stacks[i] = f.Data()
	}

	npix := rows * cols
	values := make([]float64, len(frames))
	clip := policy.Statistic != StatisticMedian &&
		(policy.SigmaLow > 0 || policy.SigmaHigh > 0) &&
		policy.MaxIterations > 0

	var kept []bool
	if clip {
		kept = make([]bool, len(frames))
	}
	dst := out.Data()
	for p := 0; p < npix; p++ {
		for i := range stacks {
			values[i] = stacks[i][p]
		}
		switch {
		case policy.Statistic == StatisticMedian:
			dst[p] = median(values)
		case clip:
			dst[p] = clippedMean(values, weights, kept, policy)
		default:
			dst[p] = weightedMean(values, weights, nil)
		}
	}
	return out, nil
}

// clippedMean iteratively rejects pixels outside mean ± sigma*stddev of the
// surviving sample, then returns the weighted mean of the survivors. The
// iteration mirrors kappa-sigma noise estimation: stop when a pass rejects
// nothing new or the iteration limit is reached. A pass that would leave
// fewer than two survivors is discarded.
func clippedMean(values, weights []float64, kept []bool, policy Policy) float64 {
	for i := range kept {
		kept[i] = true
	}
	survivors := len(values)
	for iter := 0; iter < policy.MaxIterations && survivors > 2; iter++ {
		mean, sigma := maskedMeanStdDev(values, kept)
		if sigma == 0 {
			break
		}
		lo := mean - policy.SigmaLow*sigma
		hi := mean + policy.SigmaHigh*sigma
		rejected := 0
		remaining := survivors
		for i, v := range values {
			if !kept[i] {
				continue
			}
			if (policy.SigmaLow > 0 && v < lo) || (policy.SigmaHigh > 0 && v > hi) {
				rejected++
				remaining--
			}
		}
		if rejected == 0 || remaining < 2 {
			break
		}
		for i, v := range values {
			if !kept[i] {
				continue
			}
			if (policy.SigmaLow > 0 && v < lo) || (policy.SigmaHigh > 0 && v > hi) {
				kept[i] = false
			}
		}
		survivors = remaining
	}
	return weightedMean(values, weights, kept)
}

func weightedMean(values, weights []float64, kept []bool) float64 {
	var sum, wsum float64
	for i, v := range values {
		if kept != nil && !kept[i] {
			continue
		}
		sum += weights[i] * v
		wsum += weights[i]
	}
	if wsum == 0 {
		return 0
	}
	return sum / wsum
}

func maskedMeanStdDev(values []float64, kept []bool) (float64, float64) {
	var sum float64
	n := 0
	for i, v := range values {
		if !kept[i] {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, 0
	}
	mean := sum / float64(n)
	var sse float64
	for i, v := range values {
		if !kept[i] {
			continue
		}
		d := v - mean
		sse += d * d
	}
	return mean, math.Sqrt(sse / float64(n))
}

// median sorts values in place; callers pass a scratch slice refilled per
// pixel.
func median(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return 0.5 * (values[n/2-1] + values[n/2])
}
