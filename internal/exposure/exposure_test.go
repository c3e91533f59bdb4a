package exposure

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testPlan() *Plan {
	return &Plan{
		Exposure: PlanExposure{Target: "HD 12345"},
		Frames: PlanFrames{
			Science: "sci_0042.fits",
			Arc:     []string{"arc_0001.fits"},
			Trace:   []string{"trc_0001.fits", "trc_0002.fits"},
			Bias:    []string{"bias_0001.fits"},
			Dark:    []string{"dark_0001.fits"},
			PixFlat: []string{"flat_0001.fits"},
			BlzFlat: []string{"blz_0001.fits"},
		},
	}
}

func TestResolveModes(t *testing.T) {
	tests := []struct {
		name      string
		roles     Roles
		check     func(t *testing.T, ex *Exposure)
		wantErr   bool
		errTarget error
	}{
		{
			name:  "standard roles build from their lists",
			roles: Roles{Bias: "bias", Arc: "arc", Trace: "trace", Flat: "pixflat"},
			check: func(t *testing.T, ex *Exposure) {
				if ex.Bias.Mode != ModeBuild || len(ex.Bias.Files) != 1 {
					t.Errorf("bias source = %+v", ex.Bias)
				}
				if ex.Trace.Mode != ModeBuild || len(ex.Trace.Files) != 2 {
					t.Errorf("trace source = %+v", ex.Trace)
				}
			},
		},
		{
			name:  "dark substitutes for bias",
			roles: Roles{Bias: "dark", Arc: "arc", Trace: "trace", Flat: "pixflat"},
			check: func(t *testing.T, ex *Exposure) {
				if ex.Bias.Mode != ModeBuild {
					t.Fatalf("bias mode = %v", ex.Bias.Mode)
				}
				if filepath.Base(ex.Bias.Files[0]) != "dark_0001.fits" {
					t.Errorf("bias files = %v, want the dark list", ex.Bias.Files)
				}
			},
		},
		{
			name:  "overscan and none strategies",
			roles: Roles{Bias: "overscan", Arc: "arc", Trace: "trace", Flat: "none"},
			check: func(t *testing.T, ex *Exposure) {
				if ex.Bias.Mode != ModeOverscan {
					t.Errorf("bias mode = %v", ex.Bias.Mode)
				}
				if ex.Flat.Mode != ModeNone {
					t.Errorf("flat mode = %v", ex.Flat.Mode)
				}
			},
		},
		{
			name:  "blzflat serves trace and flat",
			roles: Roles{Bias: "bias", Arc: "arc", Trace: "blzflat", Flat: "blzflat"},
			check: func(t *testing.T, ex *Exposure) {
				if filepath.Base(ex.Trace.Files[0]) != "blz_0001.fits" {
					t.Errorf("trace files = %v", ex.Trace.Files)
				}
				if filepath.Base(ex.Flat.Files[0]) != "blz_0001.fits" {
					t.Errorf("flat files = %v", ex.Flat.Files)
				}
			},
		},
		{
			name:  "arbitrary string names a saved master",
			roles: Roles{Bias: "2003Jan04T213015_bias_1", Arc: "arc", Trace: "trace", Flat: "pixflat"},
			check: func(t *testing.T, ex *Exposure) {
				if ex.Bias.Mode != ModeNamed || ex.Bias.Name != "2003Jan04T213015_bias_1" {
					t.Errorf("bias source = %+v", ex.Bias)
				}
			},
		},
		{
			name:      "science tracing rejected",
			roles:     Roles{Bias: "bias", Arc: "arc", Trace: "science", Flat: "pixflat"},
			wantErr:   true,
			errTarget: ErrUnknownSourceMode,
		},
		{
			name:      "empty mode rejected",
			roles:     Roles{Bias: "", Arc: "arc", Trace: "trace", Flat: "pixflat"},
			wantErr:   true,
			errTarget: ErrUnknownSourceMode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := Resolve(testPlan(), tt.roles, "/raw")
			if tt.wantErr {
				if !errors.Is(err, tt.errTarget) {
					t.Fatalf("error = %v, want %v", err, tt.errTarget)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			tt.check(t, ex)
		})
	}
}

func TestResolveJoinsRawDir(t *testing.T) {
	ex, err := Resolve(testPlan(), Roles{Bias: "bias", Arc: "arc", Trace: "trace", Flat: "pixflat"}, "/data/raw")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ex.SciencePath != filepath.Join("/data/raw", "sci_0042.fits") {
		t.Fatalf("science path = %q", ex.SciencePath)
	}
	if ex.Arc.Files[0] != filepath.Join("/data/raw", "arc_0001.fits") {
		t.Fatalf("arc path = %q", ex.Arc.Files[0])
	}

	// Absolute paths pass through untouched.
	plan := testPlan()
	plan.Frames.Science = "/elsewhere/sci.fits"
	ex, err = Resolve(plan, Roles{Bias: "bias", Arc: "arc", Trace: "trace", Flat: "pixflat"}, "/data/raw")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ex.SciencePath != "/elsewhere/sci.fits" {
		t.Fatalf("science path = %q", ex.SciencePath)
	}
}

func TestFormatBaseName(t *testing.T) {
	ts := time.Date(2003, time.January, 4, 21, 30, 15, 0, time.UTC)
	if got := FormatBaseName(ts); got != "2003Jan04T213015" {
		t.Fatalf("base name = %q", got)
	}

	var ex Exposure
	ex.SetObsTime(ts)
	if ex.BaseName != "2003Jan04T213015" {
		t.Fatalf("BaseName = %q", ex.BaseName)
	}
}

func TestLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.toml")
	body := `
[exposure]
target = "HD 12345"

[frames]
science = "sci_0042.fits"
arc = ["arc_0001.fits"]
bias = ["bias_0001.fits", "bias_0002.fits"]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	plan, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if plan.Exposure.Target != "HD 12345" {
		t.Fatalf("target = %q", plan.Exposure.Target)
	}
	if len(plan.Frames.Bias) != 2 {
		t.Fatalf("bias frames = %v", plan.Frames.Bias)
	}

	// A plan without a science frame is structurally invalid.
	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("[frames]\narc = [\"a.fits\"]\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadPlan(bad); !errors.Is(err, ErrInvalidPlan) {
		t.Fatalf("error = %v, want ErrInvalidPlan", err)
	}
}
