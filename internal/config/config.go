package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains workspace and data directory configuration.
type Paths struct {
	WorkspaceDir string `toml:"workspace_dir"`
	RawDir       string `toml:"raw_dir"`
	LogDir       string `toml:"log_dir"`
}

// Instrument selects the spectrograph profile used to interpret raw frames.
type Instrument struct {
	Name string `toml:"name"`
}

// Reduce contains the per-role frame sources and pipeline switches.
//
// The use_* values name a source mode per calibration role: a raw-frame role
// to combine ("bias", "dark", "arc", "trace", "blzflat", "pixflat"),
// "overscan" (bias only), "none" to disable the master, or the name of a
// previously saved master in the catalog. arc_match and flat_match are
// proximity thresholds in seconds; values <= 0 disable sub-grouping.
type Reduce struct {
	UseBias          string  `toml:"use_bias"`
	UseArc           string  `toml:"use_arc"`
	UseTrace         string  `toml:"use_trace"`
	UseFlat          string  `toml:"use_flat"`
	BadPixels        bool    `toml:"bad_pixels"`
	FlatField        bool    `toml:"flat_field"`
	PixelLocations   string  `toml:"pixel_locations"`
	ArcMatch         float64 `toml:"arc_match"`
	FlatMatch        float64 `toml:"flat_match"`
	FlatSmoothWindow int     `toml:"flat_smooth_window"`
	DetectorWorkers  int     `toml:"detector_workers"`
}

// Geometry contains dispersion-axis handling configuration.
// dispersion_axis is 0 for along-rows, 1 for along-columns, or -1 to detect
// from an arc frame. detection_window is the central image fraction the
// detection routine inspects.
type Geometry struct {
	DispersionAxis  int     `toml:"dispersion_axis"`
	DetectionWindow float64 `toml:"detection_window"`
}

// CombineSpec configures the stack statistic for one master kind.
type CombineSpec struct {
	Statistic     string  `toml:"statistic"`
	SigmaLow      float64 `toml:"sigma_low"`
	SigmaHigh     float64 `toml:"sigma_high"`
	MaxIterations int     `toml:"max_iterations"`
}

// Combine groups the per-kind combination policies.
type Combine struct {
	Bias  CombineSpec `toml:"bias"`
	Arc   CombineSpec `toml:"arc"`
	Trace CombineSpec `toml:"trace"`
	Flat  CombineSpec `toml:"flat"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for specred.
//
// Configuration sections by subsystem:
//   - Paths: workspace, raw-frame, and log directories
//   - Instrument: registered spectrograph profile name
//   - Reduce: per-role frame sources, switches, and match thresholds
//   - Geometry: dispersion-axis selection and detection window
//   - Combine: per-kind stack statistics and sigma clipping
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Instrument Instrument `toml:"instrument"`
	Reduce     Reduce     `toml:"reduce"`
	Geometry   Geometry   `toml:"geometry"`
	Combine    Combine    `toml:"combine"`
	Logging    Logging    `toml:"logging"`
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("specred.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// DatabasePath returns the catalog database location inside the workspace.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.WorkspaceDir, "catalog.db")
}

// MastersDir returns the directory holding saved master FITS files.
func (c *Config) MastersDir() string {
	return filepath.Join(c.Paths.WorkspaceDir, "masters")
}

// LockPath returns the advisory lock file guarding the workspace.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkspaceDir, "workspace.lock")
}

// EnsureDirectories creates the directories a reduction run writes into.
// The raw directory is input-only and never created here.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkspaceDir, c.MastersDir(), c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
