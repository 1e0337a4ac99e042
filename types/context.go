package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyRequestID contextKey = "request_id"
	keyClientID  contextKey = "client_id"
	keyUserID    contextKey = "user_id"
)

// WithRequestID adds the request ID to context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// RequestID extracts the request ID from context.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)
	return v, ok && v != ""
}

// WithClientID adds the resolved client identity (used as rate-limit key).
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, keyClientID, clientID)
}

// ClientID extracts the client identity from context.
func ClientID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyClientID).(string)
	return v, ok && v != ""
}

// WithUserID adds the authenticated subject to context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

// UserID extracts the authenticated subject from context.
func UserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyUserID).(string)
	return v, ok && v != ""
}
