package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateGeometry(); err != nil {
		return err
	}
	if err := c.validateCombine(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkspaceDir == "" {
		return errors.New("paths.workspace_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateGeometry() error {
	switch c.Geometry.DispersionAxis {
	case -1, 0, 1:
	default:
		return fmt.Errorf("geometry.dispersion_axis must be 0 (rows), 1 (columns), or -1 (detect); got %d", c.Geometry.DispersionAxis)
	}
	if c.Geometry.DetectionWindow <= 0 || c.Geometry.DetectionWindow > 1 {
		return fmt.Errorf("geometry.detection_window must be in (0, 1]; got %v", c.Geometry.DetectionWindow)
	}
	return nil
}

func (c *Config) validateCombine() error {
	for _, entry := range []struct {
		key  string
		spec CombineSpec
	}{
		{"combine.bias", c.Combine.Bias},
		{"combine.arc", c.Combine.Arc},
		{"combine.trace", c.Combine.Trace},
		{"combine.flat", c.Combine.Flat},
	} {
		switch entry.spec.Statistic {
		case "mean", "median", "weightmean":
		default:
			return fmt.Errorf("%s.statistic must be mean, median, or weightmean; got %q", entry.key, entry.spec.Statistic)
		}
	}
	return nil
}
