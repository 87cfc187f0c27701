package store

import "context"

type contextKey string

const (
	// UsernameKey is the context key for the verified username.
	UsernameKey contextKey = "mcpgate_username"
	// RequestIDKey is the context key for the per-request correlation ID.
	RequestIDKey contextKey = "mcpgate_request_id"
)

// WithUsername returns a new context carrying the verified username.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, UsernameKey, username)
}

// UsernameFromContext extracts the username from context. Returns "" if not set.
func UsernameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(UsernameKey).(string); ok {
		return v
	}
	return ""
}

// WithRequestID returns a new context with the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestIDFromContext extracts the request ID from context. Returns "" if not set.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}
