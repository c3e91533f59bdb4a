package geometry

import (
	"fmt"

	"specred/internal/frame"
)

// PixelMap holds the physical location and extent of every detector pixel
// in the normalized orientation: plane 0/1 are the spectral and spatial
// centers, plane 2/3 the sizes along each direction. Spectral pixels have
// unit size; spatial size follows the relative y pixel size.
type PixelMap struct {
	SpecCenter *frame.Frame
	SpatCenter *frame.Frame
	SpecSize   *frame.Frame
	SpatSize   *frame.Frame
}

// Shape returns the spectral and spatial pixel counts of the map.
func (p *PixelMap) Shape() (int, int) {
	return p.SpecCenter.Shape()
}

// GenPixLoc builds the pixel-location map for a normalized detector. Gaps
// widen the physical spacing between adjacent pixels; ysize scales the
// spatial pixel extent.
func GenPixLoc(nspec, nspat int, xgap, ygap, ysize float64) (*PixelMap, error) {
	if nspec <= 0 || nspat <= 0 {
		return nil, fmt.Errorf("pixel map needs positive dimensions, got %dx%d", nspec, nspat)
	}
	specCenters := make([]float64, nspec)
	for i := range specCenters {
		specCenters[i] = 0.5 + float64(i) + float64(i)*xgap
	}
	spatCenters := make([]float64, nspat)
	for j := range spatCenters {
		spatCenters[j] = ysize*(0.5+float64(j)) + float64(j)*ygap*ysize
	}

	m := &PixelMap{
		SpecCenter: frame.New(nspec, nspat),
		SpatCenter: frame.New(nspec, nspat),
		SpecSize:   frame.New(nspec, nspat),
		SpatSize:   frame.New(nspec, nspat),
	}
	for i := 0; i < nspec; i++ {
		for j := 0; j < nspat; j++ {
			m.SpecCenter.Set(i, j, specCenters[i])
			m.SpatCenter.Set(i, j, spatCenters[j])
			m.SpecSize.Set(i, j, 1)
			m.SpatSize.Set(i, j, ysize)
		}
	}
	return m, nil
}

// Flatten stacks the four planes vertically into one frame, in the order
// spectral centers, spatial centers, spectral sizes, spatial sizes, so the
// map can travel as a single image.
func (p *PixelMap) Flatten() *frame.Frame {
	nspec, nspat := p.Shape()
	out := frame.New(4*nspec, nspat)
	for pi, plane := range []*frame.Frame{p.SpecCenter, p.SpatCenter, p.SpecSize, p.SpatSize} {
		for i := 0; i < nspec; i++ {
			for j := 0; j < nspat; j++ {
				out.Set(pi*nspec+i, j, plane.At(i, j))
			}
		}
	}
	return out
}

// PixelMapFromFrame splits a vertically stacked four-plane frame back into
// a pixel map. The row count must divide evenly by four.
func PixelMapFromFrame(f *frame.Frame) (*PixelMap, error) {
	if f.Empty() {
		return nil, fmt.Errorf("pixel map frame is empty")
	}
	rows, nspat := f.Shape()
	if rows%4 != 0 {
		return nil, fmt.Errorf("pixel map frame has %d rows, want a multiple of 4", rows)
	}
	nspec := rows / 4
	planes := make([]*frame.Frame, 4)
	for pi := range planes {
		plane := frame.New(nspec, nspat)
		for i := 0; i < nspec; i++ {
			for j := 0; j < nspat; j++ {
				plane.Set(i, j, f.At(pi*nspec+i, j))
			}
		}
		planes[pi] = plane
	}
	return &PixelMap{
		SpecCenter: planes[0],
		SpatCenter: planes[1],
		SpecSize:   planes[2],
		SpatSize:   planes[3],
	}, nil
}
