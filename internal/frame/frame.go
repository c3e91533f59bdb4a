// Package frame provides the dense 2-D pixel array type shared by every
// stage of the reduction: raw detector reads, combined masters, and masks.
package frame

import "fmt"

// Frame is a row-major float64 image. The zero value is empty and unusable;
// construct with New, Ones, or FromData.
type Frame struct {
	data []float64
	rows int
	cols int
}

// New returns a zero-filled frame of the given dimensions.
func New(rows, cols int) *Frame {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("frame: invalid dimensions %dx%d", rows, cols))
	}
	return &Frame{
		data: make([]float64, rows*cols),
		rows: rows,
		cols: cols,
	}
}

// Ones returns a frame of the given dimensions with every pixel set to 1.
func Ones(rows, cols int) *Frame {
	f := New(rows, cols)
	for i := range f.data {
		f.data[i] = 1
	}
	return f
}

// FromData wraps an existing row-major slice. The frame takes ownership of
// the slice; callers that need isolation should pass a copy.
func FromData(rows, cols int, data []float64) (*Frame, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("frame: invalid dimensions %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("frame: data length %d does not match %dx%d", len(data), rows, cols)
	}
	return &Frame{data: data, rows: rows, cols: cols}, nil
}

func (f *Frame) Rows() int { return f.rows }
func (f *Frame) Cols() int { return f.cols }

// Shape returns rows then columns.
func (f *Frame) Shape() (int, int) { return f.rows, f.cols }

// Empty reports whether the frame holds no pixels.
func (f *Frame) Empty() bool { return f == nil || f.data == nil || f.rows == 0 || f.cols == 0 }

// At returns the pixel at row r, column c.
func (f *Frame) At(r, c int) float64 { return f.data[r*f.cols+c] }

// Set assigns the pixel at row r, column c.
func (f *Frame) Set(r, c int, v float64) { f.data[r*f.cols+c] = v }

// Data returns the backing row-major slice.
func (f *Frame) Data() []float64 { return f.data }

// Clone returns a deep copy sharing no storage with the receiver.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	out := make([]float64, len(f.data))
	copy(out, f.data)
	return &Frame{data: out, rows: f.rows, cols: f.cols}
}

// SameShape reports whether both frames have identical dimensions.
func (f *Frame) SameShape(o *Frame) bool {
	return f != nil && o != nil && f.rows == o.rows && f.cols == o.cols
}

// Fill sets every pixel to v.
func (f *Frame) Fill(v float64) {
	for i := range f.data {
		f.data[i] = v
	}
}

// Transpose returns a new frame with rows and columns exchanged.
func (f *Frame) Transpose() *Frame {
	out := New(f.cols, f.rows)
	for r := 0; r < f.rows; r++ {
		off := r * f.cols
		for c := 0; c < f.cols; c++ {
			out.data[c*out.cols+r] = f.data[off+c]
		}
	}
	return out
}

// Sub subtracts o from the receiver in place.
func (f *Frame) Sub(o *Frame) error {
	if !f.SameShape(o) {
		return fmt.Errorf("frame: shape %dx%d does not match %dx%d", f.rows, f.cols, o.rows, o.cols)
	}
	for i := range f.data {
		f.data[i] -= o.data[i]
	}
	return nil
}

// Scale multiplies every pixel by v in place.
func (f *Frame) Scale(v float64) {
	for i := range f.data {
		f.data[i] *= v
	}
}

// Equal reports whether both frames have identical shape and pixel values.
func (f *Frame) Equal(o *Frame) bool {
	if !f.SameShape(o) {
		return false
	}
	for i := range f.data {
		if f.data[i] != o.data[i] {
			return false
		}
	}
	return true
}
