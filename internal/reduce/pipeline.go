package reduce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"specred/internal/catalog"
	"specred/internal/config"
	"specred/internal/exposure"
	"specred/internal/geometry"
	"specred/internal/instrument"
	"specred/internal/logging"
	"specred/internal/masters"
)

// Pipeline drives one exposure through the calibration sequence. Collaborators
// are injected once; Run builds a fresh master store and geometry per call, so
// a pipeline can serve multiple exposures in sequence.
type Pipeline struct {
	cfg     *config.Config
	ins     instrument.Instrument
	catalog *catalog.Store
	logger  *slog.Logger
	detect  geometry.AxisDetector
}

// New constructs a pipeline over the given collaborators.
func New(cfg *config.Config, ins instrument.Instrument, cat *catalog.Store, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("pipeline requires a configuration")
	}
	if ins == nil {
		return nil, errors.New("pipeline requires an instrument")
	}
	if cat == nil {
		return nil, errors.New("pipeline requires a catalog store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:     cfg,
		ins:     ins,
		catalog: cat,
		logger:  logging.NewComponentLogger(logger, "reduce"),
		detect:  geometry.DetectDispersionAxis,
	}, nil
}

// DetectorResult is one detector's outcome.
type DetectorResult struct {
	Detector int
	State    State
	Err      error
	Duration time.Duration
	NSpec    int
	NSpat    int
}

// Result is the outcome of one exposure run.
type Result struct {
	RunID     string
	Exposure  *exposure.Exposure
	Detectors []DetectorResult
}

// Succeeded reports whether every detector reached the done state.
func (r *Result) Succeeded() bool {
	for _, d := range r.Detectors {
		if d.State != StateDone {
			return false
		}
	}
	return len(r.Detectors) > 0
}

// Run calibrates every detector of the exposure described by plan. Failures
// inside a detector are isolated: siblings keep running and the per-detector
// outcome lands in the result. Run itself fails only when the exposure cannot
// be set up at all (unresolvable source modes, unreadable science frame,
// catalog trouble).
func (p *Pipeline) Run(ctx context.Context, plan *exposure.Plan) (*Result, error) {
	roles := exposure.Roles{
		Bias:  p.cfg.Reduce.UseBias,
		Arc:   p.cfg.Reduce.UseArc,
		Trace: p.cfg.Reduce.UseTrace,
		Flat:  p.cfg.Reduce.UseFlat,
	}
	ex, err := exposure.Resolve(plan, roles, p.cfg.Paths.RawDir)
	if err != nil {
		return nil, fmt.Errorf("resolve exposure: %w", err)
	}

	_, hdr, err := p.ins.LoadRaw(ex.SciencePath, 1)
	if err != nil {
		return nil, fmt.Errorf("read science frame: %w", err)
	}
	obsTime, err := hdr.ObsTime()
	if err != nil {
		return nil, fmt.Errorf("science frame observation time: %w", err)
	}
	ex.SetObsTime(obsTime)

	ndet := len(p.ins.Detectors())
	store, err := masters.NewStore(ndet)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if _, err := p.catalog.StartRun(ctx, runID, ex.BaseName, ex.Target, p.ins.Name()); err != nil {
		return nil, fmt.Errorf("start run ledger: %w", err)
	}

	runLogger := p.logger.With(
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldExposure, ex.BaseName),
	)
	runLogger.Info("reduction started",
		logging.String("target", ex.Target),
		logging.String("instrument", p.ins.Name()),
		logging.Int("detectors", ndet),
	)

	result := &Result{
		RunID:     runID,
		Exposure:  ex,
		Detectors: make([]DetectorResult, ndet),
	}

	workers := p.cfg.Reduce.DetectorWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > ndet {
		workers = ndet
	}

	dets := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for det := range dets {
				result.Detectors[det-1] = p.runDetector(ctx, runID, ex, store, det)
			}
		}()
	}
	for det := 1; det <= ndet; det++ {
		dets <- det
	}
	close(dets)
	wg.Wait()

	success := result.Succeeded()
	if err := p.catalog.FinishRun(ctx, runID, success); err != nil {
		runLogger.Warn("finish run ledger", logging.Error(err))
	}
	if success {
		runLogger.Info("reduction complete")
	} else {
		runLogger.Error("reduction finished with failed detectors")
	}
	return result, nil
}

// runDetector executes the step sequence for one detector and returns its
// outcome. Never returns an error: failures are folded into the result so
// sibling detectors stay unaffected.
func (p *Pipeline) runDetector(ctx context.Context, runID string, ex *exposure.Exposure, store *masters.Store, det int) DetectorResult {
	start := time.Now()

	spec, err := instrument.Detector(p.ins, det)
	if err != nil {
		return DetectorResult{Detector: det, State: StateFailed, Err: err, Duration: time.Since(start)}
	}

	detCtx := logging.WithRunID(ctx, runID)
	detCtx = logging.WithDetector(detCtx, det)
	d := &detectorRun{
		p:      p,
		ex:     ex,
		det:    det,
		spec:   spec,
		geom:   spec.Geometry(),
		store:  store,
		runID:  runID,
		logger: logging.WithContext(detCtx, p.logger),
	}
	res := d.execute(detCtx)
	res.Duration = time.Since(start)
	return res
}
