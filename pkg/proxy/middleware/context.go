package middleware

// contextKey keeps middleware context values out of other packages' key
// spaces.
type contextKey string

const (
	// RequestIDKey carries the request id attached by RequestIDMiddleware;
	// every log line and error envelope for the request reads it.
	RequestIDKey contextKey = "request_id"

	// StartTimeKey carries the arrival time the access log measures
	// latency from.
	StartTimeKey contextKey = "start_time"
)
