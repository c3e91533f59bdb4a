// Package catalog persists the reduction workspace in SQLite and on disk.
//
// The Store owns the workspace for its lifetime through an advisory file
// lock, writes saved master frames as FITS files under masters/, indexes
// them in the masters table, and keeps a per-run, per-detector state ledger
// in the runs and run_states tables. The pipeline records every state
// transition here and resolves named master sources through LoadMaster.
//
// The database is an index over workspace files, not an archive: deleting
// the workspace directory resets everything. Schema changes bump the
// version in schema.go; an old database must be deleted to rebuild.
package catalog
