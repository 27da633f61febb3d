package services

import "context"

type contextKey string

const (
	assetIDKey   contextKey = "asset_id"
	dispatchKey  contextKey = "dispatch_id"
	componentKey contextKey = "component"
)

// WithAssetID annotates context with the asset record identifier.
func WithAssetID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, assetIDKey, id)
}

// AssetIDFromContext extracts the asset identifier if present.
func AssetIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(assetIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithDispatchID annotates context with the dispatch identifier.
func WithDispatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, dispatchKey, id)
}

// DispatchIDFromContext extracts the dispatch identifier if present.
func DispatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(dispatchKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithComponent annotates context with the worker or sweep name.
func WithComponent(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, componentKey, name)
}

// ComponentFromContext returns the component name if present.
func ComponentFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(componentKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
