package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"specred/internal/config"
)

func setTempHome(t *testing.T) string {
	t.Helper()
	tempHome := t.TempDir()
	t.Cleanup(func() { xdg.Reload() })
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_DATA_HOME", filepath.Join(tempHome, ".local", "share"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tempHome, ".config"))
	xdg.Reload()
	return tempHome
}

func TestLoadDefaultsExpandPathsUnderTempHome(t *testing.T) {
	tempHome := setTempHome(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWorkspace := filepath.Join(tempHome, ".local", "share", "specred", "workspace")
	if cfg.Paths.WorkspaceDir != wantWorkspace {
		t.Fatalf("unexpected workspace dir: got %q want %q", cfg.Paths.WorkspaceDir, wantWorkspace)
	}
	if cfg.Paths.RawDir != "" {
		t.Fatalf("expected raw dir empty by default, got %q", cfg.Paths.RawDir)
	}
	if cfg.Instrument.Name != "generic" {
		t.Fatalf("unexpected instrument: %q", cfg.Instrument.Name)
	}
	if cfg.Reduce.UseBias != "bias" || cfg.Reduce.UseArc != "arc" || cfg.Reduce.UseTrace != "trace" || cfg.Reduce.UseFlat != "pixflat" {
		t.Fatalf("unexpected source modes: %+v", cfg.Reduce)
	}
	if !cfg.Reduce.BadPixels {
		t.Fatal("expected bad-pixel masking enabled by default")
	}
	if !cfg.Reduce.FlatField {
		t.Fatal("expected flat-fielding enabled by default")
	}
	if cfg.Reduce.ArcMatch > 0 || cfg.Reduce.FlatMatch > 0 {
		t.Fatalf("expected sub-grouping disabled by default: %+v", cfg.Reduce)
	}
	if cfg.Reduce.DetectorWorkers != 1 {
		t.Fatalf("unexpected detector workers: %d", cfg.Reduce.DetectorWorkers)
	}
	if cfg.Geometry.DispersionAxis != -1 {
		t.Fatalf("expected axis detection by default, got %d", cfg.Geometry.DispersionAxis)
	}
	if cfg.Combine.Bias.Statistic != "mean" {
		t.Fatalf("unexpected bias statistic: %q", cfg.Combine.Bias.Statistic)
	}
	if cfg.Combine.Arc.Statistic != "weightmean" {
		t.Fatalf("unexpected arc statistic: %q", cfg.Combine.Arc.Statistic)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}

	if cfg.DatabasePath() != filepath.Join(wantWorkspace, "catalog.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.LockPath() != filepath.Join(wantWorkspace, "workspace.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkspaceDir, cfg.MastersDir(), cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "specred.toml")

	type payload struct {
		Paths struct {
			WorkspaceDir string `toml:"workspace_dir"`
			RawDir       string `toml:"raw_dir"`
		} `toml:"paths"`
		Instrument struct {
			Name string `toml:"name"`
		} `toml:"instrument"`
		Reduce struct {
			UseBias  string  `toml:"use_bias"`
			UseFlat  string  `toml:"use_flat"`
			ArcMatch float64 `toml:"arc_match"`
		} `toml:"reduce"`
		Geometry struct {
			DispersionAxis int `toml:"dispersion_axis"`
		} `toml:"geometry"`
		Combine struct {
			Bias struct {
				Statistic string `toml:"statistic"`
			} `toml:"bias"`
		} `toml:"combine"`
	}
	custom := payload{}
	custom.Paths.WorkspaceDir = filepath.Join(tempDir, "work")
	custom.Paths.RawDir = filepath.Join(tempDir, "raw")
	custom.Instrument.Name = "Keck_NIRSPEC"
	custom.Reduce.UseBias = "overscan"
	custom.Reduce.UseFlat = "MyFlat_2024"
	custom.Reduce.ArcMatch = 30
	custom.Geometry.DispersionAxis = 0
	custom.Combine.Bias.Statistic = "MEDIAN"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.WorkspaceDir != filepath.Join(tempDir, "work") {
		t.Fatalf("unexpected workspace dir: %q", cfg.Paths.WorkspaceDir)
	}
	if cfg.Instrument.Name != "keck_nirspec" {
		t.Fatalf("expected instrument name lowercased, got %q", cfg.Instrument.Name)
	}
	if cfg.Reduce.UseBias != "overscan" {
		t.Fatalf("expected overscan bias mode, got %q", cfg.Reduce.UseBias)
	}
	if cfg.Reduce.UseFlat != "MyFlat_2024" {
		t.Fatalf("expected master name to keep its case, got %q", cfg.Reduce.UseFlat)
	}
	if cfg.Reduce.UseArc != "arc" {
		t.Fatalf("expected default arc mode, got %q", cfg.Reduce.UseArc)
	}
	if cfg.Reduce.ArcMatch != 30 {
		t.Fatalf("expected arc match 30, got %v", cfg.Reduce.ArcMatch)
	}
	if cfg.Geometry.DispersionAxis != 0 {
		t.Fatalf("expected configured axis 0, got %d", cfg.Geometry.DispersionAxis)
	}
	if cfg.Combine.Bias.Statistic != "median" {
		t.Fatalf("expected statistic lowercased, got %q", cfg.Combine.Bias.Statistic)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "use_bias") {
		t.Fatalf("sample config missing reduce section: %s", contents)
	}

	// Validate it decodes and matches the shipped defaults.
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Reduce.UseBias != "bias" {
		t.Fatalf("unexpected sample use_bias: %q", cfg.Reduce.UseBias)
	}
	if cfg.Combine.Arc.Statistic != "weightmean" {
		t.Fatalf("unexpected sample arc statistic: %q", cfg.Combine.Arc.Statistic)
	}
	if cfg.Geometry.DispersionAxis != -1 {
		t.Fatalf("unexpected sample dispersion axis: %d", cfg.Geometry.DispersionAxis)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Geometry.DispersionAxis = 2
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range dispersion axis")
	}

	cfg = config.Default()
	cfg.Geometry.DetectionWindow = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for detection window above 1")
	}

	cfg = config.Default()
	cfg.Combine.Trace.Statistic = "sum"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown statistic")
	}
}

func TestLoadNormalizesBlankAndBogusValues(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "specred.toml")
	raw := `
[reduce]
use_bias = "  "
detector_workers = -3

[logging]
format = "fancy"
`
	if err := os.WriteFile(configPath, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Reduce.UseBias != "bias" {
		t.Fatalf("expected blank use_bias to fall back to default, got %q", cfg.Reduce.UseBias)
	}
	if cfg.Reduce.DetectorWorkers != 1 {
		t.Fatalf("expected non-positive workers to fall back to 1, got %d", cfg.Reduce.DetectorWorkers)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected unknown log format to fall back to console, got %q", cfg.Logging.Format)
	}
}
