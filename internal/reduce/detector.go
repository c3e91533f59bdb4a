package reduce

import (
	"context"
	"log/slog"
	"time"

	"specred/internal/exposure"
	"specred/internal/geometry"
	"specred/internal/instrument"
	"specred/internal/logging"
	"specred/internal/masters"
)

// detectorRun carries one detector's working state through the step
// sequence. The geometry and pixel map are private to the detector; shared
// collaborators come from the pipeline.
type detectorRun struct {
	p      *Pipeline
	ex     *exposure.Exposure
	det    int
	spec   instrument.DetectorSpec
	geom   *geometry.Geometry
	store  *masters.Store
	runID  string
	logger *slog.Logger

	pixmap *geometry.PixelMap
}

// pipelineStep couples a step implementation to the state it advances the
// detector into. Steps report didWork=false when a cached product let them
// skip the build.
type pipelineStep struct {
	name  string
	state State
	run   func(context.Context) (bool, error)
}

func (d *detectorRun) steps() []pipelineStep {
	return []pipelineStep{
		{name: "bad pixel mask", state: StateBPMReady, run: d.badPixelMask},
		{name: "axis normalization", state: StateAxisNormalized, run: d.normalizeAxis},
		{name: "pixel locations", state: StatePixLocReady, run: d.pixelLocations},
		{name: "master bias", state: StateBiasReady, run: d.masterBias},
		{name: "master arc", state: StateArcReady, run: d.masterArc},
		{name: "master trace", state: StateTraceReady, run: d.masterTrace},
		{name: "master flat", state: StateFlatReady, run: d.masterFlat},
	}
}

// execute walks the detector through every step in order. The first failing
// step stops the detector, records the failed state, and pins the error to
// detector and step; completed steps record their state transitions in the
// run ledger.
func (d *detectorRun) execute(ctx context.Context) DetectorResult {
	for _, step := range d.steps() {
		stepLogger := d.logger.With(logging.String(logging.FieldStep, step.name))
		stepLogger.Debug("step started")

		start := time.Now()
		didWork, err := step.run(ctx)
		elapsed := time.Since(start)

		if err != nil {
			wrapped := Wrap(d.det, step.name, "", err)
			stepLogger.Error("step failed",
				logging.Error(err),
				logging.Duration("elapsed", elapsed),
			)
			d.recordState(ctx, StateFailed, wrapped.Error(), elapsed)
			return DetectorResult{
				Detector: d.det,
				State:    StateFailed,
				Err:      wrapped,
				NSpec:    d.geom.NSpec(),
				NSpat:    d.geom.NSpat(),
			}
		}

		stepLogger.Info("step complete",
			logging.Bool("did_work", didWork),
			logging.Duration("elapsed", elapsed),
		)
		d.recordState(ctx, step.state, "", elapsed)
	}

	d.recordState(ctx, StateDone, "", 0)
	d.logger.Info("detector complete",
		logging.Int("nspec", d.geom.NSpec()),
		logging.Int("nspat", d.geom.NSpat()),
	)
	return DetectorResult{
		Detector: d.det,
		State:    StateDone,
		NSpec:    d.geom.NSpec(),
		NSpat:    d.geom.NSpat(),
	}
}

// recordState appends a ledger row. The ledger observes the run rather than
// driving it, so persistence trouble degrades to a warning instead of
// failing the detector.
func (d *detectorRun) recordState(ctx context.Context, state State, errorMessage string, elapsed time.Duration) {
	if err := d.p.catalog.RecordState(ctx, d.runID, d.det, state.String(), errorMessage, elapsed); err != nil {
		d.logger.Warn("record run state",
			logging.String("state", state.String()),
			logging.Error(err),
		)
	}
}

// cached logs the no-op path every master-producing step takes when its
// product already sits in the store.
func (d *detectorRun) cached(kind masters.Kind) (bool, error) {
	d.logger.Info("master already exists", logging.String(logging.FieldKind, kind.String()))
	return false, nil
}
