package logger

import "context"

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

var contextFields = []string{FieldTraceID, FieldRequestID, FieldRecordID}

// ContextWithRequestID stores an HTTP request id for WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey(FieldRequestID), id)
}

// ContextWithRecordID stores the id of the record being processed.
func ContextWithRecordID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey(FieldRecordID), id)
}

// ContextWithTraceID stores a trace id for WithContext.
func ContextWithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey(FieldTraceID), id)
}

// RequestIDFromContext returns the request id stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(contextKey(FieldRequestID)).(string); ok {
		return v
	}
	return ""
}
