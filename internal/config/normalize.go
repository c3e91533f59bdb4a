package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeInstrument()
	c.normalizeReduce()
	c.normalizeGeometry()
	c.normalizeCombine()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		c.Paths.WorkspaceDir = defaultWorkspaceDir()
	}
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir()
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	// RawDir may stay empty: plan entries are then resolved as given.
	c.Paths.RawDir = strings.TrimSpace(c.Paths.RawDir)
	if c.Paths.RawDir != "" {
		if c.Paths.RawDir, err = expandPath(c.Paths.RawDir); err != nil {
			return fmt.Errorf("paths.raw_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeInstrument() {
	c.Instrument.Name = strings.ToLower(strings.TrimSpace(c.Instrument.Name))
	if c.Instrument.Name == "" {
		c.Instrument.Name = defaultInstrumentName
	}
}

func (c *Config) normalizeReduce() {
	// Source modes keep their case: anything that is not a recognized mode
	// keyword is the name of a saved master, and names are case-sensitive.
	c.Reduce.UseBias = strings.TrimSpace(c.Reduce.UseBias)
	if c.Reduce.UseBias == "" {
		c.Reduce.UseBias = defaultUseBias
	}
	c.Reduce.UseArc = strings.TrimSpace(c.Reduce.UseArc)
	if c.Reduce.UseArc == "" {
		c.Reduce.UseArc = defaultUseArc
	}
	c.Reduce.UseTrace = strings.TrimSpace(c.Reduce.UseTrace)
	if c.Reduce.UseTrace == "" {
		c.Reduce.UseTrace = defaultUseTrace
	}
	c.Reduce.UseFlat = strings.TrimSpace(c.Reduce.UseFlat)
	if c.Reduce.UseFlat == "" {
		c.Reduce.UseFlat = defaultUseFlat
	}
	c.Reduce.PixelLocations = strings.TrimSpace(c.Reduce.PixelLocations)
	if c.Reduce.FlatSmoothWindow < 0 {
		c.Reduce.FlatSmoothWindow = 0
	}
	if c.Reduce.DetectorWorkers <= 0 {
		c.Reduce.DetectorWorkers = defaultDetectorWorkers
	}
}

func (c *Config) normalizeGeometry() {
	if c.Geometry.DetectionWindow <= 0 {
		c.Geometry.DetectionWindow = defaultDetectionWindow
	}
}

func (c *Config) normalizeCombine() {
	for _, spec := range []*CombineSpec{&c.Combine.Bias, &c.Combine.Arc, &c.Combine.Trace, &c.Combine.Flat} {
		spec.Statistic = strings.ToLower(strings.TrimSpace(spec.Statistic))
		if spec.Statistic == "" {
			spec.Statistic = "mean"
		}
		if spec.SigmaLow < 0 {
			spec.SigmaLow = 0
		}
		if spec.SigmaHigh < 0 {
			spec.SigmaHigh = 0
		}
		if spec.MaxIterations <= 0 {
			spec.MaxIterations = defaultClipIterations
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
