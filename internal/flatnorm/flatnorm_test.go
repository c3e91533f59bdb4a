package flatnorm

import (
	"errors"
	"math"
	"testing"

	"specred/internal/frame"
)

func TestNormalizeDividesOutBlaze(t *testing.T) {
	// Each spectral row r holds the constant value 10*(r+1): the blaze is
	// exactly that profile and the normalized flat is unity everywhere.
	flat := frame.New(4, 6)
	for r := range 4 {
		for c := range 6 {
			flat.Set(r, c, 10*float64(r+1))
		}
	}

	norm, blaze, err := Normalize(flat, Options{})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if r, c := blaze.Shape(); r != 4 || c != 1 {
		t.Fatalf("blaze shape = %dx%d, want 4x1", r, c)
	}
	for r := range 4 {
		if got := blaze.At(r, 0); got != 10*float64(r+1) {
			t.Errorf("blaze[%d] = %v, want %v", r, got, 10*float64(r+1))
		}
		for c := range 6 {
			if math.Abs(norm.At(r, c)-1) > 1e-12 {
				t.Fatalf("norm[%d,%d] = %v, want 1", r, c, norm.At(r, c))
			}
		}
	}
	// The input flat is untouched.
	if flat.At(0, 0) != 10 {
		t.Fatal("input flat mutated")
	}
}

func TestNormalizeKeepsPixelStructure(t *testing.T) {
	flat := frame.New(2, 2)
	flat.Set(0, 0, 8)
	flat.Set(0, 1, 12) // row mean 10
	flat.Set(1, 0, 20)
	flat.Set(1, 1, 20) // row mean 20

	norm, _, err := Normalize(flat, Options{})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if norm.At(0, 0) != 0.8 || norm.At(0, 1) != 1.2 {
		t.Fatalf("row 0 normalized to %v,%v", norm.At(0, 0), norm.At(0, 1))
	}
	if norm.At(1, 0) != 1 || norm.At(1, 1) != 1 {
		t.Fatalf("row 1 normalized to %v,%v", norm.At(1, 0), norm.At(1, 1))
	}
}

func TestNormalizeZeroRowsFallBackToUnity(t *testing.T) {
	flat := frame.New(3, 2)
	flat.Set(1, 0, 6)
	flat.Set(1, 1, 6)

	norm, blaze, err := Normalize(flat, Options{})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if blaze.At(0, 0) != 0 || blaze.At(1, 0) != 6 {
		t.Fatalf("blaze = %v,%v", blaze.At(0, 0), blaze.At(1, 0))
	}
	if norm.At(0, 0) != 1 || norm.At(0, 1) != 1 {
		t.Fatal("zero-signal row must normalize to unity")
	}
}

func TestNormalizeSmoothing(t *testing.T) {
	flat := frame.New(3, 1)
	flat.Set(0, 0, 0)
	flat.Set(1, 0, 30)
	flat.Set(2, 0, 0)

	_, blaze, err := Normalize(flat, Options{SmoothWindow: 3})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	// Centered window of 3: ends average two samples, the middle three.
	if blaze.At(0, 0) != 15 || blaze.At(1, 0) != 10 || blaze.At(2, 0) != 15 {
		t.Fatalf("smoothed blaze = %v,%v,%v", blaze.At(0, 0), blaze.At(1, 0), blaze.At(2, 0))
	}
}

func TestNormalizeDegenerateInput(t *testing.T) {
	if _, _, err := Normalize(frame.New(2, 2), Options{}); !errors.Is(err, ErrDegenerateFlat) {
		t.Fatalf("error = %v, want ErrDegenerateFlat", err)
	}
}
