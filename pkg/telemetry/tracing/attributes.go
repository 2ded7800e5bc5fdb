package tracing

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for worker spans. HTTP-level attributes follow the
// OpenTelemetry semantic conventions; everything specific to admission
// and calibration lives under the "ganymede.*" namespace.
const (
	// Request attributes
	AttrRequestID = "ganymede.request_id"
	AttrCost      = "ganymede.cost"

	// Admission attributes
	AttrDecision      = "ganymede.decision"
	AttrProjectedWait = "ganymede.projected_wait_ms"

	// Gate attributes
	AttrGateWait = "ganymede.gate_wait_ms"

	// Backend attributes
	AttrBackendStatus = "ganymede.backend.status"

	// Calibration attributes
	AttrBenchmark  = "ganymede.calibration.benchmark"
	AttrThroughput = "ganymede.calibration.throughput"
)

// SetRequestAttributes records the request id and its declared cost.
func SetRequestAttributes(span trace.Span, requestID string, cost float64) {
	span.SetAttributes(
		attribute.String(AttrRequestID, requestID),
		attribute.Float64(AttrCost, cost),
	)
}

// SetDecision records the admission outcome and the queue wait projected
// at decision time.
func SetDecision(span trace.Span, decision string, projectedWait time.Duration) {
	span.SetAttributes(
		attribute.String(AttrDecision, decision),
		attribute.Int64(AttrProjectedWait, projectedWait.Milliseconds()),
	)
}

// SetGateWait records how long an admitted request waited for a backend
// slot.
func SetGateWait(span trace.Span, wait time.Duration) {
	span.SetAttributes(attribute.Int64(AttrGateWait, wait.Milliseconds()))
}

// SetBackendStatus records the HTTP status the backend returned.
func SetBackendStatus(span trace.Span, status int) {
	span.SetAttributes(attribute.Int(AttrBackendStatus, status))
}

// SetCalibrationAttributes records the benchmark a calibration ran and the
// throughput it measured.
func SetCalibrationAttributes(span trace.Span, benchmark string, throughput float64) {
	span.SetAttributes(
		attribute.String(AttrBenchmark, benchmark),
		attribute.Float64(AttrThroughput, throughput),
	)
}

// SetError records err on the span and marks the span status as error.
// A nil err is a no-op.
func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
