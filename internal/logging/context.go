package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. "cycle_complete").
	FieldEventType = "event_type"
	// FieldErrorHint tells an operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldCycleID correlates every line emitted by one reconciliation cycle.
	FieldCycleID = "cycle_id"
	// FieldRecordID is the OCR record identifier.
	FieldRecordID = "record_id"
	// FieldPath is an artifact or stored file path.
	FieldPath = "path"
	// FieldTrigger records whether a cycle was scheduled or manual.
	FieldTrigger = "trigger"
)

type contextKey int

const (
	cycleIDKey contextKey = iota
	triggerKey
)

// WithCycleID attaches a reconciliation cycle identifier to ctx.
func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleIDKey, id)
}

// CycleIDFromContext returns the cycle identifier stored in ctx, if any.
func CycleIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(cycleIDKey).(string)
	return id, ok && id != ""
}

// WithTrigger records what started the current cycle.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey, trigger)
}

// TriggerFromContext returns the cycle trigger stored in ctx, if any.
func TriggerFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	trigger, ok := ctx.Value(triggerKey).(string)
	return trigger, ok && trigger != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := CycleIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCycleID, id))
	}
	if trigger, ok := TriggerFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTrigger, trigger))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
