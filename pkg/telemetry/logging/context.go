package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// EndpointKey is the context key for the declared endpoint group of an
	// authenticated request.
	EndpointKey contextKey = "endpoint"

	// WorkloadKey is the context key for the admitted workload cost.
	WorkloadKey contextKey = "workload"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithEndpoint adds an endpoint group name to the context.
func WithEndpoint(ctx context.Context, endpoint string) context.Context {
	return context.WithValue(ctx, EndpointKey, endpoint)
}

// GetEndpoint retrieves the endpoint group name from the context.
func GetEndpoint(ctx context.Context) string {
	if endpoint, ok := ctx.Value(EndpointKey).(string); ok {
		return endpoint
	}
	return ""
}

// WithWorkload adds the admitted workload cost to the context.
func WithWorkload(ctx context.Context, workload float64) context.Context {
	return context.WithValue(ctx, WorkloadKey, workload)
}

// GetWorkload retrieves the admitted workload cost from the context.
// The second return reports whether a workload was recorded.
func GetWorkload(ctx context.Context) (float64, bool) {
	workload, ok := ctx.Value(WorkloadKey).(float64)
	return workload, ok
}

// ContextAttrs extracts the common log fields present in the context.
// The result is suitable for logger.With or slog.LogAttrs.
func ContextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if requestID := GetRequestID(ctx); requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	if endpoint := GetEndpoint(ctx); endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", endpoint))
	}
	if workload, ok := GetWorkload(ctx); ok {
		attrs = append(attrs, slog.Float64("workload", workload))
	}

	return attrs
}

// FromContext returns the default logger enriched with every common field
// the context carries. Handlers use this to keep per-request log lines
// correlated without threading a logger through every call.
func FromContext(ctx context.Context) *slog.Logger {
	attrs := ContextAttrs(ctx)
	if len(attrs) == 0 {
		return slog.Default()
	}
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, a)
	}
	return slog.Default().With(args...)
}
