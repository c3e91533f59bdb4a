package instrument

import (
	"errors"
	"path/filepath"
	"testing"

	"specred/internal/fits"
	"specred/internal/frame"
)

func TestRegistryLookup(t *testing.T) {
	ins, err := New("generic")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ins.Name() != "generic" {
		t.Fatalf("Name = %q", ins.Name())
	}
	if _, err := New("hubble"); err == nil {
		t.Fatal("expected unknown instrument error")
	}

	names := Names()
	want := map[string]bool{"generic": false, "keck_nirspec": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, seen := range want {
		if !seen {
			t.Errorf("registry missing %q", n)
		}
	}
}

func TestGenericBPMIsClear(t *testing.T) {
	g := NewGeneric()
	mask, err := g.BPM(1, 8, 10)
	if err != nil {
		t.Fatalf("BPM: %v", err)
	}
	if r, c := mask.Shape(); r != 8 || c != 10 {
		t.Fatalf("mask shape = %dx%d", r, c)
	}
	if frame.CountAbove(mask, 0) != 0 {
		t.Fatal("generic mask must be all clear")
	}

	if _, err := g.BPM(2, 8, 10); !errors.Is(err, ErrDetectorRange) {
		t.Fatalf("error = %v, want ErrDetectorRange", err)
	}
}

func TestNIRSPECBPMMasksEdges(t *testing.T) {
	ins := NewNIRSPEC()
	mask, err := ins.BPM(1, 4, 1024)
	if err != nil {
		t.Fatalf("BPM: %v", err)
	}
	if mask.At(0, 0) != 1 || mask.At(3, 19) != 1 {
		t.Fatal("left edge columns not masked")
	}
	if mask.At(2, 1000) != 1 || mask.At(0, 1023) != 1 {
		t.Fatal("right edge columns not masked")
	}
	if mask.At(1, 20) != 0 || mask.At(1, 999) != 0 {
		t.Fatal("interior columns wrongly masked")
	}
	// The mask is the return value, never shared mutable state.
	again, _ := ins.BPM(1, 4, 1024)
	again.Set(1, 500, 1)
	check, _ := ins.BPM(1, 4, 1024)
	if check.At(1, 500) != 0 {
		t.Fatal("BPM returned shared state")
	}
}

func TestGenericLoadRaw(t *testing.T) {
	f := frame.New(2, 3)
	f.Fill(7)
	path := filepath.Join(t.TempDir(), "raw.fits")
	if err := fits.Write(path, f, []fits.Card{{Key: "DATE-OBS", Value: "2003-01-04T21:30:15"}}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	img, hdr, err := NewGeneric().LoadRaw(path, 1)
	if err != nil {
		t.Fatalf("LoadRaw: %v", err)
	}
	if !img.Equal(f) {
		t.Fatal("loaded frame differs")
	}
	if _, err := hdr.ObsTime(); err != nil {
		t.Fatalf("ObsTime: %v", err)
	}
}

func TestDetectorSpecLimits(t *testing.T) {
	spec := NewNIRSPEC().Detectors()[0]
	if got := spec.NonlinearLimit(); got != 65535*0.76 {
		t.Fatalf("NonlinearLimit = %v", got)
	}
	g := spec.Geometry()
	if g.Normalized() {
		t.Fatal("fresh geometry must not be normalized")
	}
}
