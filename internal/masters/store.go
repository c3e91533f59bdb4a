// Package masters holds the per-exposure cache of derived calibration
// products, keyed by detector and kind. The store owns its frames: values
// pass in and out as deep copies unless a caller explicitly opts into
// sharing, so later pipeline steps cannot corrupt a finished master by
// accident.
package masters

import (
	"errors"
	"fmt"
	"sync"

	"specred/internal/frame"
)

var (
	ErrDetectorRange = errors.New("detector index out of range")
	ErrUnknownKind   = errors.New("unknown master kind")
	ErrNotFound      = errors.New("master not present")
	ErrNilFrame      = errors.New("nil master frame")
)

// slot holds either a frame or a strategy marker, never both. A marker
// records that the product is replaced by a named strategy (the bias slot
// carries "overscan" when overscan subtraction stands in for a bias array).
type slot struct {
	frame  *frame.Frame
	marker string
}

// Store is the per-exposure master cache. Detector indices are 1-based.
// Safe for concurrent use; detectors occupy disjoint slot sets.
type Store struct {
	mu    sync.RWMutex
	slots []map[Kind]slot
}

// NewStore creates a store for ndet detectors.
func NewStore(ndet int) (*Store, error) {
	if ndet < 1 {
		return nil, fmt.Errorf("store needs at least one detector, got %d", ndet)
	}
	slots := make([]map[Kind]slot, ndet)
	for i := range slots {
		slots[i] = make(map[Kind]slot)
	}
	return &Store{slots: slots}, nil
}

// Detectors returns the detector count.
func (s *Store) Detectors() int { return len(s.slots) }

func (s *Store) check(det int, kind Kind) error {
	if det < 1 || det > len(s.slots) {
		return fmt.Errorf("%w: %d of %d", ErrDetectorRange, det, len(s.slots))
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return nil
}

// Set stores f as the master for (det, kind), overwriting any previous
// frame or marker. Unless shared is true the store keeps a deep copy, so
// the caller's frame stays independent.
func (s *Store) Set(det int, kind Kind, f *frame.Frame, shared bool) error {
	if err := s.check(det, kind); err != nil {
		return err
	}
	if f == nil {
		return fmt.Errorf("%w: %s detector %d", ErrNilFrame, kind, det)
	}
	if !shared {
		f = f.Clone()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[det-1][kind] = slot{frame: f}
	return nil
}

// Get returns the master for (det, kind). Unless shared is true the caller
// receives a deep copy. A slot that is empty or holds only a strategy
// marker fails with ErrNotFound.
func (s *Store) Get(det int, kind Kind, shared bool) (*frame.Frame, error) {
	if err := s.check(det, kind); err != nil {
		return nil, err
	}
	s.mu.RLock()
	sl := s.slots[det-1][kind]
	s.mu.RUnlock()
	if sl.frame == nil {
		return nil, fmt.Errorf("%w: %s detector %d", ErrNotFound, kind, det)
	}
	if shared {
		return sl.frame, nil
	}
	return sl.frame.Clone(), nil
}

// SetMarker records a strategy marker for (det, kind), displacing any
// stored frame.
func (s *Store) SetMarker(det int, kind Kind, marker string) error {
	if err := s.check(det, kind); err != nil {
		return err
	}
	if marker == "" {
		return fmt.Errorf("empty marker for %s detector %d", kind, det)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[det-1][kind] = slot{marker: marker}
	return nil
}

// Marker returns the strategy marker for (det, kind), or "" when the slot
// holds a frame or nothing.
func (s *Store) Marker(det int, kind Kind) (string, error) {
	if err := s.check(det, kind); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[det-1][kind].marker, nil
}

// Exists reports whether (det, kind) holds a frame or a marker. It is the
// cache-hit test the pipeline uses to skip rebuilding a master. Invalid
// indices report false.
func (s *Store) Exists(det int, kind Kind) bool {
	if s.check(det, kind) != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl := s.slots[det-1][kind]
	return sl.frame != nil || sl.marker != ""
}

// HasFrame reports whether (det, kind) holds an array-valued master, as
// opposed to a marker or nothing. Bias subtraction keys off this.
func (s *Store) HasFrame(det int, kind Kind) bool {
	if s.check(det, kind) != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[det-1][kind].frame != nil
}

// Clear empties the slot for (det, kind).
func (s *Store) Clear(det int, kind Kind) error {
	if err := s.check(det, kind); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots[det-1], kind)
	return nil
}
