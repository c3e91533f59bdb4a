package testsupport

import (
	"path/filepath"
	"testing"

	"specred/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkspaceDir = filepath.Join(base, "workspace")
	cfgVal.Paths.RawDir = filepath.Join(base, "raw")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithInstrument sets the instrument profile on the test config.
func WithInstrument(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Instrument.Name = name
	}
}

// WithSourceModes overrides the four per-role source modes at once. Empty
// strings keep the defaults.
func WithSourceModes(bias, arc, trace, flat string) ConfigOption {
	return func(b *configBuilder) {
		if bias != "" {
			b.cfg.Reduce.UseBias = bias
		}
		if arc != "" {
			b.cfg.Reduce.UseArc = arc
		}
		if trace != "" {
			b.cfg.Reduce.UseTrace = trace
		}
		if flat != "" {
			b.cfg.Reduce.UseFlat = flat
		}
	}
}

// WithDispersionAxis fixes the dispersion axis instead of detecting it.
func WithDispersionAxis(axis int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Geometry.DispersionAxis = axis
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkspaceDir)
}
