package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"specred/internal/config"
	"specred/internal/fits"
	"specred/internal/frame"
)

// ErrMasterNotFound reports that no saved master carries the requested name.
var ErrMasterNotFound = errors.New("master not found")

// ErrWorkspaceLocked reports that another process holds the workspace.
var ErrWorkspaceLocked = errors.New("workspace is locked by another reduction")

// Store manages the reduction workspace: saved master frames on disk, their
// SQLite index, and the per-run state ledger. One Store owns the workspace
// exclusively for its lifetime via an advisory file lock.
type Store struct {
	db         *sql.DB
	path       string
	mastersDir string
	lock       *flock.Flock
}

// Open locks the workspace and initializes or connects to the catalog
// database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceLocked, cfg.LockPath())
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, mastersDir: cfg.MastersDir(), lock: lock}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return store, nil
}

// Close closes the database and releases the workspace lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var dbErr error
	if s.db != nil {
		dbErr = s.db.Close()
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && dbErr == nil {
			dbErr = fmt.Errorf("release workspace lock: %w", err)
		}
	}
	return dbErr
}

// DatabasePath returns the catalog database location.
func (s *Store) DatabasePath() string {
	return s.path
}

// SaveMaster writes the frame to the masters directory as FITS and upserts
// its index row. The canonical name derives from the exposure base, kind,
// and detector; saving the same identity twice overwrites both file and row.
func (s *Store) SaveMaster(ctx context.Context, exposure string, detector int, kind string, frameCount int, f *frame.Frame) (*MasterRecord, error) {
	if f == nil || f.Empty() {
		return nil, fmt.Errorf("save master %s %s det %d: empty frame", exposure, kind, detector)
	}
	name := MasterName(exposure, kind, detector)
	filePath := filepath.Join(s.mastersDir, name+".fits")
	rows, cols := f.Shape()

	cards := []fits.Card{
		{Key: "FRAMETYP", Value: kind},
		{Key: "DETNUM", Value: fmt.Sprint(detector)},
		{Key: "NCOMBINE", Value: fmt.Sprint(frameCount)},
	}
	if err := fits.Write(filePath, f, cards); err != nil {
		return nil, fmt.Errorf("write master %s: %w", name, err)
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO masters (name, exposure, detector, kind, nspec, nspat, frame_count, file_path, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET
             exposure = excluded.exposure,
             detector = excluded.detector,
             kind = excluded.kind,
             nspec = excluded.nspec,
             nspat = excluded.nspat,
             frame_count = excluded.frame_count,
             file_path = excluded.file_path,
             created_at = excluded.created_at`,
		name,
		exposure,
		detector,
		kind,
		rows,
		cols,
		frameCount,
		filePath,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("index master %s: %w", name, err)
	}

	rec, err := s.MasterByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("index master %s: row vanished after upsert", name)
	}
	return rec, nil
}

// LoadMaster reads a saved master back by name. A missing index row or a
// missing file both fail with ErrMasterNotFound.
func (s *Store) LoadMaster(ctx context.Context, name string) (*frame.Frame, *MasterRecord, error) {
	rec, err := s.MasterByName(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrMasterNotFound, name)
	}
	f, _, err := fits.Read(rec.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("read master %s: %w", name, err)
	}
	return f, rec, nil
}

// MasterByName fetches one index row, or nil when absent.
func (s *Store) MasterByName(ctx context.Context, name string) (*MasterRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+masterColumns+` FROM masters WHERE name = ?`, name)
	rec, err := scanMaster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get master: %w", err)
	}
	return rec, nil
}

// ListMasters returns index rows, optionally filtered to one exposure base,
// ordered by creation time.
func (s *Store) ListMasters(ctx context.Context, exposure string) ([]*MasterRecord, error) {
	query := `SELECT ` + masterColumns + ` FROM masters`
	args := []any{}
	if exposure != "" {
		query += ` WHERE exposure = ?`
		args = append(args, exposure)
	}
	query += ` ORDER BY created_at, name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list masters: %w", err)
	}
	defer rows.Close()

	var records []*MasterRecord
	for rows.Next() {
		rec, err := scanMaster(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// StartRun opens a run ledger entry and returns its record.
func (s *Store) StartRun(ctx context.Context, id, exposure, target, instrument string) (*RunRecord, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (id, exposure, target, instrument, started_at) VALUES (?, ?, ?, ?, ?)`,
		id,
		exposure,
		nullableString(target),
		instrument,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.RunByID(ctx, id)
}

// RecordState appends one detector state transition to a run's ledger.
func (s *Store) RecordState(ctx context.Context, runID string, detector int, state, errorMessage string, duration time.Duration) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO run_states (run_id, detector, state, error_message, duration_ms, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		runID,
		detector,
		state,
		nullableString(errorMessage),
		duration.Milliseconds(),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record state: %w", err)
	}
	return nil
}

// FinishRun stamps a run's outcome.
func (s *Store) FinishRun(ctx context.Context, runID string, success bool) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET finished_at = ?, success = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		boolToInt(success),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RunByID fetches one run ledger entry, or nil when absent.
func (s *Store) RunByID(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return rec, nil
}

// ListRuns returns run ledger entries newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RunStates returns a run's recorded transitions in insertion order.
func (s *Store) RunStates(ctx context.Context, runID string) ([]*StateRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT run_id, detector, state, error_message, duration_ms, created_at
         FROM run_states WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list run states: %w", err)
	}
	defer rows.Close()

	var records []*StateRecord
	for rows.Next() {
		var (
			rec        StateRecord
			errMsg     sql.NullString
			durationMS int64
			createdRaw string
		)
		if err := rows.Scan(&rec.RunID, &rec.Detector, &rec.State, &errMsg, &durationMS, &createdRaw); err != nil {
			return nil, err
		}
		rec.ErrorMessage = errMsg.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if created, err := parseTimeString(createdRaw); err == nil {
			rec.CreatedAt = created
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

const masterColumns = "id, name, exposure, detector, kind, nspec, nspat, frame_count, file_path, created_at"

const runColumns = "id, exposure, target, instrument, started_at, finished_at, success"

func scanMaster(scanner interface{ Scan(dest ...any) error }) (*MasterRecord, error) {
	var (
		rec        MasterRecord
		createdRaw string
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Exposure,
		&rec.Detector,
		&rec.Kind,
		&rec.NSpec,
		&rec.NSpat,
		&rec.FrameCount,
		&rec.FilePath,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	return &rec, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*RunRecord, error) {
	var (
		rec         RunRecord
		target      sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
		success     sql.NullInt64
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.Exposure,
		&target,
		&rec.Instrument,
		&startedRaw,
		&finishedRaw,
		&success,
	); err != nil {
		return nil, err
	}
	rec.Target = target.String
	if started, err := parseTimeString(startedRaw); err == nil {
		rec.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			rec.FinishedAt = &finished
		}
	}
	if success.Valid {
		v := success.Int64 != 0
		rec.Success = &v
	}
	return &rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
