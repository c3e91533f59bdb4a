package reduce

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"specred/internal/combine"
	"specred/internal/config"
	"specred/internal/exposure"
	"specred/internal/flatnorm"
	"specred/internal/frame"
	"specred/internal/geometry"
	"specred/internal/group"
	"specred/internal/logging"
	"specred/internal/masters"
)

// absentMarker is stored when a role is configured off, so later steps and
// cache checks see a settled slot rather than a product that never arrived.
const absentMarker = "none"

// pixLocKind is the catalog kind under which flattened pixel maps are
// saved. Pixel maps live outside the master store, so the kind exists only
// in the catalog index.
const pixLocKind = "pixloc"

// badPixelMask derives the detector's bad-pixel mask from the instrument,
// shaped after the first raw bias frame. Without raw bias frames or with
// mask generation disabled the step is advisory: it logs, stores nothing,
// and the detector continues maskless.
func (d *detectorRun) badPixelMask(_ context.Context) (bool, error) {
	if d.store.Exists(d.det, masters.KindBadPixels) {
		return d.cached(masters.KindBadPixels)
	}
	if !d.p.cfg.Reduce.BadPixels {
		d.logger.Info("bad pixel mask generation disabled, continuing without a mask")
		return false, nil
	}
	if d.ex.Bias.Mode != exposure.ModeBuild || len(d.ex.Bias.Files) == 0 {
		d.logger.Warn("no raw bias frames selected, skipping the bad pixel mask")
		return false, nil
	}

	raw, _, err := d.p.ins.LoadRaw(d.ex.Bias.Files[0], d.det)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", filepath.Base(d.ex.Bias.Files[0]), err)
	}
	rows, cols := raw.Shape()
	mask, err := d.p.ins.BPM(d.det, rows, cols)
	if err != nil {
		return false, err
	}
	if err := d.store.Set(d.det, masters.KindBadPixels, mask, true); err != nil {
		return false, err
	}
	d.logger.Info("bad pixel mask ready",
		logging.Int("rows", rows),
		logging.Int("cols", cols),
		logging.Int("masked", frame.CountAbove(mask, 0)),
	)
	return true, nil
}

// normalizeAxis settles the dispersion direction and rotates every frame
// already in the store into the canonical orientation. The detection image
// doubles as the shape authority for the detector's pixel counts.
func (d *detectorRun) normalizeAxis(_ context.Context) (bool, error) {
	detection, err := d.detectionFrame()
	if err != nil {
		return false, err
	}

	configured := d.p.cfg.Geometry.DispersionAxis
	if configured == geometry.AxisUnset {
		configured = d.spec.DispAxis
	}
	axis, err := geometry.ResolveAxis(configured, detection, d.p.cfg.Geometry.DetectionWindow, d.p.detect)
	if err != nil {
		return false, err
	}
	rows, cols := detection.Shape()
	if geometry.AxisIsShorter(axis, rows, cols) {
		d.logger.Warn("dispersion axis runs along the shorter image dimension",
			logging.Int("axis", axis),
			logging.Int("rows", rows),
			logging.Int("cols", cols),
		)
	}

	deps := geometry.Dependents{Detection: detection}
	if d.store.HasFrame(d.det, masters.KindBias) {
		if deps.Bias, err = d.store.Get(d.det, masters.KindBias, true); err != nil {
			return false, err
		}
	}
	if d.store.HasFrame(d.det, masters.KindArc) {
		if deps.Arc, err = d.store.Get(d.det, masters.KindArc, true); err != nil {
			return false, err
		}
	}
	if d.store.HasFrame(d.det, masters.KindBadPixels) {
		if deps.BadPixels, err = d.store.Get(d.det, masters.KindBadPixels, true); err != nil {
			return false, err
		}
	}

	out, err := d.geom.Normalize(axis, deps)
	if err != nil {
		return false, err
	}
	if deps.Bias != nil {
		if err := d.store.Set(d.det, masters.KindBias, out.Bias, true); err != nil {
			return false, err
		}
	}
	if deps.Arc != nil {
		if err := d.store.Set(d.det, masters.KindArc, out.Arc, true); err != nil {
			return false, err
		}
	}
	if deps.BadPixels != nil {
		if err := d.store.Set(d.det, masters.KindBadPixels, out.BadPixels, true); err != nil {
			return false, err
		}
	}

	d.logger.Info("geometry normalized",
		logging.Bool("transposed", d.geom.Transposed()),
		logging.Int("nspec", d.geom.NSpec()),
		logging.Int("nspat", d.geom.NSpat()),
	)
	return true, nil
}

// detectionFrame picks the image that settles the dispersion axis and the
// pixel counts: an arc master already in the store, else the first raw arc
// frame, else the science frame itself.
func (d *detectorRun) detectionFrame() (*frame.Frame, error) {
	if d.store.HasFrame(d.det, masters.KindArc) {
		return d.store.Get(d.det, masters.KindArc, true)
	}
	path := d.ex.SciencePath
	if d.ex.Arc.Mode == exposure.ModeBuild && len(d.ex.Arc.Files) > 0 {
		path = d.ex.Arc.Files[0]
	}
	f, _, err := d.p.ins.LoadRaw(path, d.det)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return f, nil
}

// pixelLocations fixes the physical pixel map: generated from the
// normalized geometry, or loaded from a named catalog master.
func (d *detectorRun) pixelLocations(ctx context.Context) (bool, error) {
	named := d.p.cfg.Reduce.PixelLocations
	if named == "" {
		m, err := geometry.GenPixLoc(d.geom.NSpec(), d.geom.NSpat(), d.geom.XGap, d.geom.YGap, d.geom.YSize)
		if err != nil {
			return false, err
		}
		d.pixmap = m
		rec, err := d.p.catalog.SaveMaster(ctx, d.ex.BaseName, d.det, pixLocKind, 0, m.Flatten())
		if err != nil {
			return false, fmt.Errorf("save pixel locations: %w", err)
		}
		d.logger.Info("pixel locations generated", logging.String("name", rec.Name))
		return true, nil
	}

	f, _, err := d.p.catalog.LoadMaster(ctx, named)
	if err != nil {
		return false, fmt.Errorf("load pixel locations %q: %w", named, err)
	}
	m, err := geometry.PixelMapFromFrame(f)
	if err != nil {
		return false, fmt.Errorf("pixel locations %q: %w", named, err)
	}
	if nspec, nspat := m.Shape(); nspec != d.geom.NSpec() || nspat != d.geom.NSpat() {
		return false, fmt.Errorf("pixel locations %q shaped %dx%d, detector is %dx%d",
			named, nspec, nspat, d.geom.NSpec(), d.geom.NSpat())
	}
	d.pixmap = m
	d.logger.Info("pixel locations loaded from catalog", logging.String("name", named))
	return true, nil
}

func (d *detectorRun) masterBias(ctx context.Context) (bool, error) {
	if d.store.Exists(d.det, masters.KindBias) {
		return d.cached(masters.KindBias)
	}
	src := d.ex.Bias
	switch src.Mode {
	case exposure.ModeOverscan:
		if err := d.store.SetMarker(d.det, masters.KindBias, exposure.OverscanMarker); err != nil {
			return false, err
		}
		d.logger.Info("overscan subtraction stands in for the bias master")
		return true, nil
	case exposure.ModeNone:
		return true, d.recordAbsent(masters.KindBias)
	case exposure.ModeNamed:
		return true, d.loadNamed(ctx, masters.KindBias, src.Name)
	case exposure.ModeBuild:
		master, n, err := d.buildStack(src.Files, policyFor(d.p.cfg.Combine.Bias), 0, false)
		if err != nil {
			return false, err
		}
		return true, d.finishMaster(ctx, masters.KindBias, master, n)
	default:
		return false, fmt.Errorf("%w: %q", exposure.ErrUnknownSourceMode, src.Mode)
	}
}

func (d *detectorRun) masterArc(ctx context.Context) (bool, error) {
	if d.store.Exists(d.det, masters.KindArc) {
		return d.cached(masters.KindArc)
	}
	src := d.ex.Arc
	switch src.Mode {
	case exposure.ModeNone:
		return true, d.recordAbsent(masters.KindArc)
	case exposure.ModeNamed:
		return true, d.loadNamed(ctx, masters.KindArc, src.Name)
	case exposure.ModeBuild:
		master, n, err := d.buildStack(src.Files, policyFor(d.p.cfg.Combine.Arc), matchThreshold(d.p.cfg.Reduce.ArcMatch), true)
		if err != nil {
			return false, err
		}
		return true, d.finishMaster(ctx, masters.KindArc, master, n)
	default:
		return false, fmt.Errorf("%w: %q", exposure.ErrUnknownSourceMode, src.Mode)
	}
}

func (d *detectorRun) masterTrace(ctx context.Context) (bool, error) {
	if d.store.Exists(d.det, masters.KindTrace) {
		return d.cached(masters.KindTrace)
	}
	src := d.ex.Trace
	switch src.Mode {
	case exposure.ModeNone:
		return true, d.recordAbsent(masters.KindTrace)
	case exposure.ModeNamed:
		return true, d.loadNamed(ctx, masters.KindTrace, src.Name)
	case exposure.ModeBuild:
		master, n, err := d.buildStack(src.Files, policyFor(d.p.cfg.Combine.Trace), 0, true)
		if err != nil {
			return false, err
		}
		return true, d.finishMaster(ctx, masters.KindTrace, master, n)
	default:
		return false, fmt.Errorf("%w: %q", exposure.ErrUnknownSourceMode, src.Mode)
	}
}

// masterFlat builds the combined flat and derives its normalized form plus
// the blaze profile. With flat fielding disabled, unit flats take the place
// of both products so downstream division stays a no-op.
func (d *detectorRun) masterFlat(ctx context.Context) (bool, error) {
	if !d.p.cfg.Reduce.FlatField {
		ones := frame.Ones(d.geom.NSpec(), d.geom.NSpat())
		if err := d.store.Set(d.det, masters.KindPixFlat, ones, false); err != nil {
			return false, err
		}
		if err := d.store.Set(d.det, masters.KindNormPixFlat, ones, false); err != nil {
			return false, err
		}
		d.logger.Warn("flat fielding disabled, storing unit flats")
		return true, nil
	}

	if d.store.HasFrame(d.det, masters.KindPixFlat) {
		if d.store.Exists(d.det, masters.KindNormPixFlat) {
			return d.cached(masters.KindPixFlat)
		}
		// The combined flat survived without its normalization; redo
		// just that part.
		flat, err := d.store.Get(d.det, masters.KindPixFlat, true)
		if err != nil {
			return false, err
		}
		d.logger.Info("renormalizing existing flat")
		return true, d.normalizeFlat(ctx, flat, 0)
	}
	if d.store.Exists(d.det, masters.KindPixFlat) {
		// Marker slot: keep the normalized slot consistent with it.
		if !d.store.Exists(d.det, masters.KindNormPixFlat) {
			marker, err := d.store.Marker(d.det, masters.KindPixFlat)
			if err != nil {
				return false, err
			}
			if err := d.store.SetMarker(d.det, masters.KindNormPixFlat, marker); err != nil {
				return false, err
			}
		}
		return d.cached(masters.KindPixFlat)
	}

	src := d.ex.Flat
	switch src.Mode {
	case exposure.ModeNone:
		if err := d.recordAbsent(masters.KindPixFlat); err != nil {
			return false, err
		}
		return true, d.recordAbsent(masters.KindNormPixFlat)
	case exposure.ModeNamed:
		if err := d.loadNamed(ctx, masters.KindPixFlat, src.Name); err != nil {
			return false, err
		}
		flat, err := d.store.Get(d.det, masters.KindPixFlat, true)
		if err != nil {
			return false, err
		}
		return true, d.normalizeFlat(ctx, flat, 0)
	case exposure.ModeBuild:
		master, n, err := d.buildStack(src.Files, policyFor(d.p.cfg.Combine.Flat), matchThreshold(d.p.cfg.Reduce.FlatMatch), true)
		if err != nil {
			return false, err
		}
		if err := d.finishMaster(ctx, masters.KindPixFlat, master, n); err != nil {
			return false, err
		}
		return true, d.normalizeFlat(ctx, master, n)
	default:
		return false, fmt.Errorf("%w: %q", exposure.ErrUnknownSourceMode, src.Mode)
	}
}

// normalizeFlat derives the normalized flat and blaze profile from a
// combined flat and persists both under this exposure.
func (d *detectorRun) normalizeFlat(ctx context.Context, flat *frame.Frame, frames int) error {
	norm, blaze, err := flatnorm.Normalize(flat, flatnorm.Options{SmoothWindow: d.p.cfg.Reduce.FlatSmoothWindow})
	if err != nil {
		return err
	}
	if err := d.store.Set(d.det, masters.KindNormPixFlat, norm, true); err != nil {
		return err
	}
	if err := d.store.Set(d.det, masters.KindBlaze, blaze, true); err != nil {
		return err
	}
	if _, err := d.p.catalog.SaveMaster(ctx, d.ex.BaseName, d.det, masters.KindNormPixFlat.String(), frames, norm); err != nil {
		return fmt.Errorf("save %s master: %w", masters.KindNormPixFlat, err)
	}
	if _, err := d.p.catalog.SaveMaster(ctx, d.ex.BaseName, d.det, masters.KindBlaze.String(), frames, blaze); err != nil {
		return fmt.Errorf("save %s master: %w", masters.KindBlaze, err)
	}
	d.logger.Info("flat normalized", logging.Int("nspec", norm.Rows()))
	return nil
}

// buildStack loads one role's raw frames, applies the detector orientation
// and bias subtraction, and combines them under the policy. A positive
// match threshold first partitions the stack by observation-time proximity,
// builds one sub-master per group, then combines the sub-masters weighted
// by group size.
func (d *detectorRun) buildStack(files []string, policy combine.Policy, threshold time.Duration, subtractBias bool) (*frame.Frame, int, error) {
	if len(files) == 0 {
		return nil, 0, combine.ErrNoFrames
	}

	var bias *frame.Frame
	if subtractBias && d.store.HasFrame(d.det, masters.KindBias) {
		b, err := d.store.Get(d.det, masters.KindBias, true)
		if err != nil {
			return nil, 0, err
		}
		bias = b
	}

	frames := make([]*frame.Frame, len(files))
	times := make([]time.Time, len(files))
	for i, path := range files {
		f, hdr, err := d.p.ins.LoadRaw(path, d.det)
		if err != nil {
			return nil, 0, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		if d.geom.Transposed() {
			f = f.Transpose()
		}
		if bias != nil {
			if err := f.Sub(bias); err != nil {
				return nil, 0, fmt.Errorf("subtract bias from %s: %w", filepath.Base(path), err)
			}
		}
		frames[i] = f
		if threshold > 0 {
			t, err := hdr.ObsTime()
			if err != nil {
				return nil, 0, fmt.Errorf("observation time of %s: %w", filepath.Base(path), err)
			}
			times[i] = t
		}
	}

	groups := group.ByTime(times, threshold)
	if len(groups) <= 1 {
		master, err := combine.Combine(frames, nil, policy)
		if err != nil {
			return nil, 0, err
		}
		return master, len(frames), nil
	}

	d.logger.Debug("combining in observation-time groups", logging.Int("groups", len(groups)))
	subs := make([]*frame.Frame, len(groups))
	weights := make([]float64, len(groups))
	for gi, g := range groups {
		members := make([]*frame.Frame, g.Size())
		for j, idx := range g.Indices {
			members[j] = frames[idx]
		}
		sub, err := combine.Combine(members, nil, policy)
		if err != nil {
			return nil, 0, err
		}
		subs[gi] = sub
		weights[gi] = float64(g.Size())
	}
	master, err := combine.Combine(subs, weights, policy)
	if err != nil {
		return nil, 0, err
	}
	return master, len(frames), nil
}

// finishMaster slots a freshly built master and persists it to the
// workspace through the catalog.
func (d *detectorRun) finishMaster(ctx context.Context, kind masters.Kind, master *frame.Frame, frames int) error {
	if limit := d.spec.NonlinearLimit(); limit > 0 {
		if n := frame.CountAbove(master, limit); n > 0 {
			d.logger.Warn("combined master exceeds the nonlinear response limit",
				logging.String(logging.FieldKind, kind.String()),
				logging.Int("pixels", n),
				logging.Float64("limit", limit),
			)
		}
	}
	if err := d.store.Set(d.det, kind, master, true); err != nil {
		return err
	}
	rec, err := d.p.catalog.SaveMaster(ctx, d.ex.BaseName, d.det, kind.String(), frames, master)
	if err != nil {
		return fmt.Errorf("save %s master: %w", kind, err)
	}
	d.logger.Info("master saved",
		logging.String(logging.FieldKind, kind.String()),
		logging.String("name", rec.Name),
		logging.Int("frames", frames),
	)
	return nil
}

// loadNamed pulls a previously saved master out of the catalog and slots it
// for this detector. Saved masters carry the normalized orientation, so the
// shape must match the detector's settled pixel counts.
func (d *detectorRun) loadNamed(ctx context.Context, kind masters.Kind, name string) error {
	f, rec, err := d.p.catalog.LoadMaster(ctx, name)
	if err != nil {
		return fmt.Errorf("load master %q: %w", name, err)
	}
	if f.Rows() != d.geom.NSpec() || f.Cols() != d.geom.NSpat() {
		return fmt.Errorf("master %q shaped %dx%d, detector is %dx%d",
			name, f.Rows(), f.Cols(), d.geom.NSpec(), d.geom.NSpat())
	}
	if err := d.store.Set(d.det, kind, f, true); err != nil {
		return err
	}
	d.logger.Info("master loaded from catalog",
		logging.String(logging.FieldKind, kind.String()),
		logging.String("name", rec.Name),
	)
	return nil
}

// recordAbsent stores the explicit-absence marker for a role configured off.
func (d *detectorRun) recordAbsent(kind masters.Kind) error {
	if err := d.store.SetMarker(d.det, kind, absentMarker); err != nil {
		return err
	}
	d.logger.Info("master deliberately absent", logging.String(logging.FieldKind, kind.String()))
	return nil
}

func policyFor(spec config.CombineSpec) combine.Policy {
	return combine.Policy{
		Statistic:     combine.Statistic(spec.Statistic),
		SigmaLow:      spec.SigmaLow,
		SigmaHigh:     spec.SigmaHigh,
		MaxIterations: spec.MaxIterations,
	}
}

// matchThreshold converts the configured match window, in seconds, to a
// duration. Zero or negative disables sub-grouping.
func matchThreshold(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
