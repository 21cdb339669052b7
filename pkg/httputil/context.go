package httputil

import "context"

type ContextKey string

const (
	RequestIDCtxKey ContextKey = "RequestID"
	AttemptCtxKey   ContextKey = "Attempt"
)

const RequestIDHeader = "X-Request-Id"

// WithRequestID returns a context whose requests carry reqID in X-Request-Id
// instead of a freshly generated one.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, RequestIDCtxKey, reqID)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) (string, bool) {
	reqID, ok := ctx.Value(RequestIDCtxKey).(string)
	return reqID, ok && reqID != ""
}

func withAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, AttemptCtxKey, attempt)
}

func attemptFrom(ctx context.Context) int {
	if n, ok := ctx.Value(AttemptCtxKey).(int); ok {
		return n
	}
	return 1
}
