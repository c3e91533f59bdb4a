package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	defaultInstrumentName   = "generic"
	defaultUseBias          = "bias"
	defaultUseArc           = "arc"
	defaultUseTrace         = "trace"
	defaultUseFlat          = "pixflat"
	defaultMatchThreshold   = -1
	defaultFlatSmoothWindow = 5
	defaultDetectorWorkers  = 1
	defaultDetectionWindow  = 0.25
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultSigmaClip        = 3.0
	defaultClipIterations   = 5
)

func defaultWorkspaceDir() string {
	return filepath.Join(xdg.DataHome, "specred", "workspace")
}

func defaultLogDir() string {
	return filepath.Join(xdg.DataHome, "specred", "logs")
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath(filepath.Join(xdg.ConfigHome, "specred", "config.toml"))
}

func defaultCombineSpec(statistic string) CombineSpec {
	return CombineSpec{
		Statistic:     statistic,
		SigmaLow:      defaultSigmaClip,
		SigmaHigh:     defaultSigmaClip,
		MaxIterations: defaultClipIterations,
	}
}

// Default returns a Config populated with repository defaults. The arc,
// trace, and flat stacks weight by exposure level, so they default to the
// weighted mean; the bias stack is flat and uses the plain mean.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir(),
			LogDir:       defaultLogDir(),
		},
		Instrument: Instrument{
			Name: defaultInstrumentName,
		},
		Reduce: Reduce{
			UseBias:          defaultUseBias,
			UseArc:           defaultUseArc,
			UseTrace:         defaultUseTrace,
			UseFlat:          defaultUseFlat,
			BadPixels:        true,
			FlatField:        true,
			ArcMatch:         defaultMatchThreshold,
			FlatMatch:        defaultMatchThreshold,
			FlatSmoothWindow: defaultFlatSmoothWindow,
			DetectorWorkers:  defaultDetectorWorkers,
		},
		Geometry: Geometry{
			DispersionAxis:  -1,
			DetectionWindow: defaultDetectionWindow,
		},
		Combine: Combine{
			Bias:  defaultCombineSpec("mean"),
			Arc:   defaultCombineSpec("weightmean"),
			Trace: defaultCombineSpec("weightmean"),
			Flat:  defaultCombineSpec("weightmean"),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
