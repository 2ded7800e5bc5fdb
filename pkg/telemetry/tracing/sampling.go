package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newSampler builds the sampler from the configured ratio.
//
// The ratio doubles as the strategy: 1.0 samples every trace, 0.0 samples
// none, and anything in between hashes the trace ID so the same trace gets
// the same decision on every worker that sees it.
//
// The base sampler is wrapped in ParentBased, so when a request arrives
// with a sampled (or unsampled) parent context the parent's decision wins
// and the trace stays whole across services.
func newSampler(ratio float64) (sdktrace.Sampler, error) {
	if ratio < 0.0 || ratio > 1.0 {
		return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
	}

	var base sdktrace.Sampler
	switch {
	case ratio >= 1.0:
		base = sdktrace.AlwaysSample()
	case ratio == 0.0:
		base = sdktrace.NeverSample()
	default:
		base = sdktrace.TraceIDRatioBased(ratio)
	}

	return sdktrace.ParentBased(base), nil
}
