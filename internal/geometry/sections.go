package geometry

import "fmt"

// Span is a half-open pixel range [Lo, Hi).
type Span struct {
	Lo int
	Hi int
}

// Len returns the number of pixels covered.
func (s Span) Len() int { return s.Hi - s.Lo }

func (s Span) valid() bool { return s.Lo >= 0 && s.Hi >= s.Lo }

// Rect is an axis-aligned pixel rectangle in row/column spans.
type Rect struct {
	Rows Span
	Cols Span
}

// Transpose exchanges the row and column spans, matching a transpose of the
// underlying image.
func (r Rect) Transpose() Rect { return Rect{Rows: r.Cols, Cols: r.Rows} }

func (r Rect) valid() bool { return r.Rows.valid() && r.Cols.valid() }

func (r Rect) String() string {
	return fmt.Sprintf("[%d:%d,%d:%d]", r.Rows.Lo, r.Rows.Hi, r.Cols.Lo, r.Cols.Hi)
}

// AmpSection describes one amplifier's footprint on the detector: the region
// it reads out and its overscan region.
type AmpSection struct {
	Amp      int
	Data     Rect
	Overscan Rect
}

// Transpose flips both rectangles.
func (a AmpSection) Transpose() AmpSection {
	return AmpSection{
		Amp:      a.Amp,
		Data:     a.Data.Transpose(),
		Overscan: a.Overscan.Transpose(),
	}
}
