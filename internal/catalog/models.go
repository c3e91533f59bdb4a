package catalog

import (
	"fmt"
	"time"
)

// MasterRecord indexes one saved master frame. The pixels live in the FITS
// file at FilePath; the record carries everything needed to find and trust
// it without opening the file.
type MasterRecord struct {
	ID         int64
	Name       string
	Exposure   string
	Detector   int
	Kind       string
	NSpec      int
	NSpat      int
	FrameCount int
	FilePath   string
	CreatedAt  time.Time
}

// RunRecord is one reduction run's ledger header.
type RunRecord struct {
	ID         string
	Exposure   string
	Target     string
	Instrument string
	StartedAt  time.Time
	FinishedAt *time.Time
	Success    *bool
}

// StateRecord is one detector state transition within a run, appended as
// the pipeline advances.
type StateRecord struct {
	RunID        string
	Detector     int
	State        string
	ErrorMessage string
	Duration     time.Duration
	CreatedAt    time.Time
}

// MasterName renders the canonical saved-master name for an exposure base,
// kind, and detector.
func MasterName(exposure, kind string, detector int) string {
	return fmt.Sprintf("%s_%s_%d", exposure, kind, detector)
}
