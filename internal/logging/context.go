package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	detectorKey contextKey = "detector"
)

// WithRunID stores a reduction run identifier on the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext retrieves the run identifier, if set.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	runID, ok := ctx.Value(runIDKey).(string)
	return runID, ok && runID != ""
}

// WithDetector stores a one-based detector index on the context.
func WithDetector(ctx context.Context, detector int) context.Context {
	if detector <= 0 {
		return ctx
	}
	return context.WithValue(ctx, detectorKey, detector)
}

// DetectorFromContext retrieves the detector index, if set.
func DetectorFromContext(ctx context.Context) (int, bool) {
	if ctx == nil {
		return 0, false
	}
	detector, ok := ctx.Value(detectorKey).(int)
	return detector, ok && detector > 0
}

// ContextFields extracts the run and detector attributes carried by ctx.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	var attrs []Attr
	if runID, ok := RunIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldRunID, runID))
	}
	if detector, ok := DetectorFromContext(ctx); ok {
		attrs = append(attrs, Int(FieldDetector, detector))
	}
	return attrs
}

// WithContext returns a child logger annotated with any run or detector
// values present on ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	attrs := ContextFields(ctx)
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(Args(attrs...)...)
}
