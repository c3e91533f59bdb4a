// Package reduce drives one science exposure through the calibration
// sequence: bad-pixel mask, dispersion-axis normalization, pixel locations,
// then the combined bias, arc, trace, and flat masters.
//
// Each detector advances through a fixed state order and fails
// independently: a fatal error stops its own sequence and the sibling
// detectors keep going, with the run reported failed at the end. Every
// master-producing step checks the in-memory master store first and becomes
// a no-op when the product already exists. Built masters are written to the
// workspace and indexed in the catalog, which also keeps the per-detector
// state ledger of every run.
package reduce
