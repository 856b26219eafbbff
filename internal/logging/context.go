package logging

import (
	"context"
	"log/slog"

	"doodlecast/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies a single generation run.
	FieldRunID = "run_id"
	// FieldSceneID identifies the scene being processed.
	FieldSceneID = "scene_id"
	// FieldAssetKind is either image or audio.
	FieldAssetKind = "asset_kind"
	// FieldFingerprint is the cache fingerprint of the artifact being resolved.
	FieldFingerprint = "fingerprint"
	// FieldProducer names the producer that served or failed an artifact.
	FieldProducer = "producer"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType names the decision recorded by DecisionAttrs.
	FieldDecisionType   = "decision_type"
	FieldDecisionResult = "decision_result"
	FieldDecisionReason = "decision_reason"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if id, ok := services.SceneIDFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldSceneID, id))
	}
	if kind, ok := services.AssetKindFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldAssetKind, kind))
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
	return logger.With(toArgs(fields)...)
}
