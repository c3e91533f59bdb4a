package catalog_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"specred/internal/catalog"
	"specred/internal/frame"
	"specred/internal/testsupport"
)

func TestOpenInitializesSchemaAndLocksWorkspace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	records, err := store.ListMasters(ctx, "")
	if err != nil {
		t.Fatalf("ListMasters on fresh store failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty catalog, got %d records", len(records))
	}

	if _, err := catalog.Open(cfg); !errors.Is(err, catalog.ErrWorkspaceLocked) {
		t.Fatalf("expected ErrWorkspaceLocked from second open, got %v", err)
	}
}

func TestSaveAndLoadMasterRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	src := frame.New(4, 5)
	for r := 0; r < 4; r++ {
		for c := 0; c < 5; c++ {
			src.Set(r, c, float64(r*10+c))
		}
	}

	rec, err := store.SaveMaster(ctx, "2003Jan04T120000", 1, "bias", 3, src)
	if err != nil {
		t.Fatalf("SaveMaster failed: %v", err)
	}
	if rec.Name != "2003Jan04T120000_bias_1" {
		t.Fatalf("unexpected master name: %q", rec.Name)
	}
	if rec.NSpec != 4 || rec.NSpat != 5 {
		t.Fatalf("unexpected dimensions: %dx%d", rec.NSpec, rec.NSpat)
	}
	if rec.FrameCount != 3 {
		t.Fatalf("unexpected frame count: %d", rec.FrameCount)
	}
	if !strings.HasPrefix(rec.FilePath, cfg.MastersDir()) {
		t.Fatalf("master file %q outside masters dir %q", rec.FilePath, cfg.MastersDir())
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	loaded, loadedRec, err := store.LoadMaster(ctx, rec.Name)
	if err != nil {
		t.Fatalf("LoadMaster failed: %v", err)
	}
	if loadedRec.ID != rec.ID {
		t.Fatalf("expected same index row, got %d want %d", loadedRec.ID, rec.ID)
	}
	if !loaded.Equal(src) {
		t.Fatal("loaded master does not match saved frame")
	}

	// Saving the same identity again overwrites rather than duplicating.
	replacement := frame.New(4, 5)
	replacement.Fill(7)
	if _, err := store.SaveMaster(ctx, "2003Jan04T120000", 1, "bias", 5, replacement); err != nil {
		t.Fatalf("overwrite SaveMaster failed: %v", err)
	}
	records, err := store.ListMasters(ctx, "2003Jan04T120000")
	if err != nil {
		t.Fatalf("ListMasters failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one index row after overwrite, got %d", len(records))
	}
	if records[0].FrameCount != 5 {
		t.Fatalf("expected updated frame count 5, got %d", records[0].FrameCount)
	}
	reloaded, _, err := store.LoadMaster(ctx, rec.Name)
	if err != nil {
		t.Fatalf("LoadMaster after overwrite failed: %v", err)
	}
	if !reloaded.Equal(replacement) {
		t.Fatal("expected overwritten pixels")
	}
}

func TestLoadMasterMissingName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	_, _, err := store.LoadMaster(context.Background(), "no_such_master")
	if !errors.Is(err, catalog.ErrMasterNotFound) {
		t.Fatalf("expected ErrMasterNotFound, got %v", err)
	}
}

func TestListMastersFiltersByExposure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	f := frame.New(2, 2)
	f.Fill(1)
	for _, save := range []struct {
		exposure string
		detector int
		kind     string
	}{
		{"expA", 1, "bias"},
		{"expA", 2, "bias"},
		{"expB", 1, "arc"},
	} {
		if _, err := store.SaveMaster(ctx, save.exposure, save.detector, save.kind, 1, f); err != nil {
			t.Fatalf("SaveMaster %s det %d failed: %v", save.exposure, save.detector, err)
		}
	}

	all, err := store.ListMasters(ctx, "")
	if err != nil {
		t.Fatalf("ListMasters all failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}

	onlyA, err := store.ListMasters(ctx, "expA")
	if err != nil {
		t.Fatalf("ListMasters expA failed: %v", err)
	}
	if len(onlyA) != 2 {
		t.Fatalf("expected 2 expA records, got %d", len(onlyA))
	}
	for _, rec := range onlyA {
		if rec.Exposure != "expA" {
			t.Fatalf("unexpected exposure in filtered list: %q", rec.Exposure)
		}
	}
}

func TestRunLedgerRecordsStatesAndOutcome(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	run, err := store.StartRun(ctx, "run-0001", "2003Jan04T120000", "HD 12345", "generic")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run.FinishedAt != nil || run.Success != nil {
		t.Fatalf("expected open run, got %+v", run)
	}

	if err := store.RecordState(ctx, run.ID, 1, "bpm_ready", "", 120*time.Millisecond); err != nil {
		t.Fatalf("RecordState failed: %v", err)
	}
	if err := store.RecordState(ctx, run.ID, 1, "failed", "axis detection failed", 5*time.Millisecond); err != nil {
		t.Fatalf("RecordState failed: %v", err)
	}
	if err := store.FinishRun(ctx, run.ID, false); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	finished, err := store.RunByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("RunByID failed: %v", err)
	}
	if finished.FinishedAt == nil {
		t.Fatal("expected finished_at to be stamped")
	}
	if finished.Success == nil || *finished.Success {
		t.Fatalf("expected failed outcome, got %+v", finished.Success)
	}
	if finished.Target != "HD 12345" {
		t.Fatalf("unexpected target: %q", finished.Target)
	}

	states, err := store.RunStates(ctx, run.ID)
	if err != nil {
		t.Fatalf("RunStates failed: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 state rows, got %d", len(states))
	}
	if states[0].State != "bpm_ready" || states[0].Duration != 120*time.Millisecond {
		t.Fatalf("unexpected first state: %+v", states[0])
	}
	if states[1].State != "failed" || states[1].ErrorMessage != "axis detection failed" {
		t.Fatalf("unexpected second state: %+v", states[1])
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Fatalf("unexpected runs list: %+v", runs)
	}
}
