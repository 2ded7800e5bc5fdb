package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Trace context crosses process boundaries as W3C Trace Context headers
// (https://www.w3.org/TR/trace-context/): traceparent carries the trace id,
// parent span id, and sampling flag; tracestate carries vendor data. The
// proxy extracts them from the inbound request and injects them into the
// request it builds for the backend, so a dispatcher-side trace continues
// through the worker into the model server.

// Propagator returns the globally registered text map propagator. After
// New has run with tracing enabled this is the composite TraceContext +
// Baggage propagator; before that it is a noop.
func Propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// Extract returns a context carrying any trace context found in the
// headers. Called at the proxy boundary on the inbound request:
//
//	ctx := tracing.Extract(r.Context(), r.Header)
//	ctx, span := tracing.StartSpan(ctx, "proxy.request")
//
// Headers without trace context leave ctx unchanged.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject writes the trace context from ctx into the headers as
// traceparent and tracestate. Called on the outbound backend request.
func Inject(ctx context.Context, headers http.Header) {
	Propagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
