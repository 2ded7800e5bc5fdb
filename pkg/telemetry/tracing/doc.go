// Package tracing provides OpenTelemetry distributed tracing for the
// worker.
//
// # Overview
//
// The package owns the tracer provider lifecycle and exports spans over
// OTLP gRPC. Tracing is disabled by default; a disabled tracer wraps a
// noop provider and adds nothing to the request path. The worker emits
// two kinds of spans:
//
//   - proxy.request: one span per proxied request, carrying the request
//     id, declared cost, admission decision, projected wait, gate wait,
//     and the backend's HTTP status
//   - capacity.calibrate: one span per calibration run, carrying the
//     benchmark name and the measured throughput
//
// # Trace Context Propagation
//
// Trace context crosses process boundaries as W3C Trace Context headers
// (https://www.w3.org/TR/trace-context/):
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// The proxy extracts the headers from the inbound request and injects
// them into the outbound backend request, so a trace started on the
// dispatcher continues through the worker into the model server.
//
// # Sampling
//
// Sampling is ratio based: 1.0 samples everything, 0.0 nothing, values
// in between hash the trace ID for a consistent per-trace decision. The
// sampler is parent based, so requests arriving with a sampled parent
// stay sampled regardless of the local ratio.
//
// # Usage
//
//	tracer, err := tracing.New(cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracing.StartSpan(ctx, "proxy.request")
//	defer span.End()
//	tracing.SetRequestAttributes(span, requestID, cost)
//
// New registers the provider globally, so call sites use the package
// level StartSpan instead of threading a *Tracer through constructors.
// Before New runs the global provider is a noop and StartSpan is free.
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: otel-collector:4317
//	    insecure: true
//	    sample_ratio: 0.1
//	    service_name: ganymede
package tracing
