package services

import "context"

type contextKey string

const (
	workItemIDKey contextKey = "work_item_id"
	requestIDKey  contextKey = "request_id"
)

// WithWorkItemID annotates context with the TFS work item identifier.
func WithWorkItemID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, workItemIDKey, id)
}

// WorkItemIDFromContext extracts the work item identifier if present.
func WorkItemIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(workItemIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
