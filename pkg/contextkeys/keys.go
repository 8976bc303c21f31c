// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// ActorKey contains the authenticated *auth.User, or is absent for
	// anonymous requests.
	// Set by: middleware.Authenticator (pkg/middleware/auth.go)
	// Required by: policy checks and every handler that stamps authorship
	ActorKey Key = "actor"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: httputil.LoggingMiddleware
	// Used by: Logger
	RequestIDKey Key = "request_id"
)

// WithActor adds the authenticated user to the context.
func WithActor(ctx context.Context, actor interface{}) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID returns the request ID from the context, or "" if unset.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}
