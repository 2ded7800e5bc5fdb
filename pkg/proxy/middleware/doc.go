// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// This package implements middleware functions applied to every request on
// the proxy listener: panic recovery, structured request logging, request ID
// propagation, Prometheus request metrics, and request-signature
// verification.
//
// # Middleware Chain
//
// Middleware functions are chained in a specific order:
//
//	handler = Recovery(RequestID(Metrics(Logging(Auth(handler)))))
//
// Order (innermost to outermost):
//  1. Auth: Verify the router's request signature (skipped when unsecured)
//  2. Logging: Log request/response details
//  3. Metrics: Record request counters, latency, and in-flight gauge
//  4. RequestID: Assign and propagate the request ID
//  5. Recovery: Recover from panics
//
// Recovery sits outermost so that a panic anywhere below it, middleware
// included, still produces a well-formed 500 response. RequestID sits
// outside Logging so that every request log line carries the ID, and Auth
// sits innermost so that rejected requests still appear in the request log
// and the metrics. Auth wraps the traffic route only, not the liveness
// probe, which arrives unsigned.
//
// # Request ID
//
// RequestIDMiddleware honors a caller-provided X-Request-ID header and
// generates a UUID v4 otherwise. The ID is stored in the request context,
// echoed in the response headers, and included in every log line and error
// body for correlation with the fleet control plane.
//
// # Logging
//
// LoggingMiddleware uses structured logging (log/slog) to record request
// details:
//
//	{
//	  "time": "2026-03-09T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "path": "/v1/completions",
//	  "status": 200,
//	  "latency_ms": 1250,
//	  "request_id": "550e8400-e29b-41d4-a716-446655440000"
//	}
//
// The response writer wrapper used for status capture passes http.Flusher
// through, so streamed backend responses keep flushing chunk by chunk.
//
// # Metrics
//
// MetricsMiddleware feeds the telemetry collector: requests by method and
// status class, request duration, streamed response bytes, and the
// in-flight gauge. A nil collector turns the middleware into a plain
// pass-through, which is how a disabled metrics endpoint is expressed.
//
// # Recovery
//
// RecoveryMiddleware catches panics in handlers and converts them to HTTP
// 500 errors in the proxy error envelope. The panic stack trace is logged
// but not exposed to clients.
//
// # Auth
//
// AuthMiddleware verifies the RSA signature the fleet router attaches to
// every dispatched request. An invalid or missing signature is refused with
// 401 before any admission accounting happens. The middleware is left out
// of the chain entirely when the worker runs unsecured.
package middleware
