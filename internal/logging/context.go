package logging

import (
	"context"
	"log/slog"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldQueryURL is the URL under resolution.
	FieldQueryURL = "query_url"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType names the decision being logged (exact_match, fuzzy_score, ...).
	FieldDecisionType = "decision_type"
	// FieldDecisionResult holds the decision status.
	FieldDecisionResult = "decision_result"
	// FieldDecisionReason holds the human-readable decision reason.
	FieldDecisionReason = "decision_reason"
	// FieldEntryID is a catalog entry identifier.
	FieldEntryID = "entry_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	if u, ok := services.QueryURLFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldQueryURL, u))
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
