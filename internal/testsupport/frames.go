package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"specred/internal/fits"
	"specred/internal/frame"
)

// ConstantFrame returns a rows x cols frame filled with value.
func ConstantFrame(t testing.TB, rows, cols int, value float64) *frame.Frame {
	t.Helper()

	f := frame.New(rows, cols)
	f.Fill(value)
	return f
}

// WriteRawFrame persists a constant frame as a FITS file carrying the given
// observation time, creating parent directories as needed. Returns the path.
func WriteRawFrame(t testing.TB, dir, name string, rows, cols int, value float64, obs time.Time) string {
	t.Helper()

	f := ConstantFrame(t, rows, cols, value)
	return WriteFrame(t, dir, name, f, obs)
}

// WriteFrame persists an arbitrary frame as a FITS file with a DATE-OBS
// card. Returns the path.
func WriteFrame(t testing.TB, dir, name string, f *frame.Frame, obs time.Time) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	cards := []fits.Card{
		{Key: "DATE-OBS", Value: obs.UTC().Format("2006-01-02T15:04:05")},
	}
	if err := fits.Write(path, f, cards); err != nil {
		t.Fatalf("write frame %s: %v", path, err)
	}
	return path
}
