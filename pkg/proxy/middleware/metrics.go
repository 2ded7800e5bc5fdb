package middleware

import (
	"net/http"
	"time"

	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

// MetricsMiddleware records per-request Prometheus metrics: a counter by
// method and status class, a latency histogram, streamed response bytes,
// and an in-flight gauge. A nil collector disables recording.
//
// Example usage:
//
//	handler = MetricsMiddleware(collector)(handler)
func MetricsMiddleware(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			collector.IncInFlight()
			defer collector.DecInFlight()

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			collector.RecordHTTPRequest(r.Method, rw.statusCode, time.Since(start), rw.bytes)
		})
	}
}
