package types

import "context"

// Context keys are unexported to prevent collisions with other packages.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	voterIDKey   contextKey = "voter_id"
)

// WithRequestID stores the request correlation ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request correlation ID from the context.
// Returns an empty string if none has been set.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithVoterID stores the effective voter identity in the context. Middleware
// derives it from the X-Voter-Id header, falling back to the remote address,
// so vote deduplication has a stable key per client.
func WithVoterID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, voterIDKey, id)
}

// GetVoterID retrieves the effective voter identity from the context.
func GetVoterID(ctx context.Context) string {
	id, _ := ctx.Value(voterIDKey).(string)
	return id
}
