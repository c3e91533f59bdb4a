// Package config loads, normalizes, and validates specred configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from XDG-standard locations. The Config
// type centralizes every knob the reduction pipeline and CLI need: workspace
// and raw-frame directories, the instrument profile, per-role frame sources,
// dispersion-axis handling, and per-kind combination policies.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical mode strings, and clear validation errors.
package config
