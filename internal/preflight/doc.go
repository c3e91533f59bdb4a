// Package preflight provides readiness checks for the paths, catalog, and
// configuration a reduction run depends on.
//
// The CLI "specred check" command surfaces the results as a table; a failed
// check there explains a doomed run before any frames are read. Each check
// stands alone so callers can run the subset they care about.
package preflight
