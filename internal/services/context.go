package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	sceneIDKey   contextKey = "scene_id"
	assetKindKey contextKey = "asset_kind"
)

// WithRunID annotates context with the generation run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the generation run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSceneID annotates context with the scene being processed.
func WithSceneID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, sceneIDKey, id)
}

// SceneIDFromContext extracts the scene identifier if present.
func SceneIDFromContext(ctx context.Context) (int, bool) {
	switch val := ctx.Value(sceneIDKey).(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithAssetKind annotates context with the artifact kind (image or audio).
func WithAssetKind(ctx context.Context, kind string) context.Context {
	if kind == "" {
		return ctx
	}
	return context.WithValue(ctx, assetKindKey, kind)
}

// AssetKindFromContext returns the artifact kind if present.
func AssetKindFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(assetKindKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
