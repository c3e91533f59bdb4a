package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"specred/internal/testsupport"
)

func TestCheckDirectoryAccessOK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccessNotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccessNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCatalogOpensAndCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	result := CheckCatalog(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckCatalogReportsHeldLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MustOpenCatalog(t, cfg)

	result := CheckCatalog(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure while workspace lock is held")
	}
	if result.Detail != "workspace locked by another process" {
		t.Fatalf("detail = %q", result.Detail)
	}
}

func TestCheckInstrument(t *testing.T) {
	if result := CheckInstrument("generic"); !result.Passed {
		t.Fatalf("generic should be registered: %s", result.Detail)
	}
	if result := CheckInstrument("hubble"); result.Passed {
		t.Fatal("unregistered instrument should fail")
	}
	if result := CheckInstrument(""); result.Passed {
		t.Fatal("blank instrument should fail")
	}
}

func TestCheckPlan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.toml")
	payload := `
[exposure]
target = "HD 12345"

[frames]
science = "science.fits"
bias = ["bias-1.fits", "bias-2.fits"]
arc = ["arc-1.fits"]
`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	result := CheckPlan(path)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}

	if result := CheckPlan(filepath.Join(dir, "missing.toml")); result.Passed {
		t.Fatal("missing plan should fail")
	}
}

func TestRunAllCoversConfiguredChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if err := os.MkdirAll(cfg.Paths.RawDir, 0o755); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), cfg, "")
	if len(results) != 4 {
		t.Fatalf("got %d results: %+v", len(results), results)
	}
	if !Ready(results) {
		t.Fatalf("expected all checks to pass: %+v", results)
	}

	if Ready(nil) {
		t.Fatal("no checks means not ready")
	}
}
