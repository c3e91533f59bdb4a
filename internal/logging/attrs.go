package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so call sites avoid importing slog directly.
type Attr = slog.Attr

// Value aliases slog.Value.
type Value = slog.Value

// Shared field keys.
const (
	FieldComponent = "component"
	FieldExposure  = "exposure"
	FieldDetector  = "detector"
	FieldStep      = "step"
	FieldKind      = "kind"
	FieldRunID     = "run_id"
)

// Any builds an attribute with arbitrary value.
func Any(key string, value any) Attr { return slog.Any(key, value) }

// Bool builds a bool attribute.
func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

// Duration builds a duration attribute.
func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Float64 builds a float attribute.
func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

// Int builds an int attribute.
func Int(key string, value int) Attr { return slog.Int(key, value) }

// Int64 builds an int64 attribute.
func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

// String builds a string attribute.
func String(key, value string) Attr { return slog.String(key, value) }

// Group builds a grouped attribute.
func Group(key string, args ...any) Attr { return slog.Group(key, args...) }

// Error builds an attribute holding an error value.
func Error(err error) Attr { return slog.Any("error", err) }

// Args converts attributes to the variadic any form expected by slog methods.
func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

// NewNop returns a logger that discards all records.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger tags a child logger with a component name.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// NoopHandler drops every record.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }
func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler        { return NoopHandler{} }
func (NoopHandler) WithGroup(string) slog.Handler             { return NoopHandler{} }
