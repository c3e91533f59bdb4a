package frame

import (
	"math"
	"sort"
)

// MeanStdDev returns the mean and population standard deviation over all
// pixels. An empty frame yields (0, 0).
func MeanStdDev(f *Frame) (float64, float64) {
	if f.Empty() {
		return 0, 0
	}
	n := len(f.data)
	var sum float64
	for _, v := range f.data {
		sum += v
	}
	mean := sum / float64(n)
	var sse float64
	for _, v := range f.data {
		d := v - mean
		sse += d * d
	}
	return mean, math.Sqrt(sse / float64(n))
}

// Median returns the median pixel value. An empty frame yields 0.
func Median(f *Frame) float64 {
	if f.Empty() {
		return 0
	}
	vals := make([]float64, len(f.data))
	copy(vals, f.data)
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return 0.5 * (vals[n/2-1] + vals[n/2])
}

// Max returns the maximum pixel value. An empty frame yields 0.
func Max(f *Frame) float64 {
	if f.Empty() {
		return 0
	}
	max := f.data[0]
	for _, v := range f.data[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// CountAbove returns the number of pixels strictly greater than limit.
func CountAbove(f *Frame, limit float64) int {
	if f.Empty() {
		return 0
	}
	n := 0
	for _, v := range f.data {
		if v > limit {
			n++
		}
	}
	return n
}
