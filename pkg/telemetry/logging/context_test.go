package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"mercator-hq/ganymede/pkg/config"
)

// swapDefault installs a logger as the process default and returns a restore
// function.
func swapDefault(l *slog.Logger) func() {
	prev := slog.Default()
	slog.SetDefault(l)
	return func() { slog.SetDefault(prev) }
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()

	if got := GetRequestID(ctx); got != "" {
		t.Errorf("expected empty request id on bare context, got %q", got)
	}

	ctx = WithRequestID(ctx, "req-42")
	if got := GetRequestID(ctx); got != "req-42" {
		t.Errorf("expected request id %q, got %q", "req-42", got)
	}
}

func TestEndpointRoundTrip(t *testing.T) {
	ctx := WithEndpoint(context.Background(), "completions")
	if got := GetEndpoint(ctx); got != "completions" {
		t.Errorf("expected endpoint %q, got %q", "completions", got)
	}
}

func TestWorkloadRoundTrip(t *testing.T) {
	ctx := context.Background()

	if _, ok := GetWorkload(ctx); ok {
		t.Error("expected no workload on bare context")
	}

	ctx = WithWorkload(ctx, 250.0)
	workload, ok := GetWorkload(ctx)
	if !ok || workload != 250.0 {
		t.Errorf("expected workload 250.0, got %v (ok=%v)", workload, ok)
	}
}

func TestContextAttrs(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-7")
	ctx = WithEndpoint(ctx, "rerank")
	ctx = WithWorkload(ctx, 12.5)

	attrs := ContextAttrs(ctx)
	if len(attrs) != 3 {
		t.Fatalf("expected 3 attrs, got %d", len(attrs))
	}

	keys := map[string]bool{}
	for _, a := range attrs {
		keys[a.Key] = true
	}
	for _, want := range []string{"request_id", "endpoint", "workload"} {
		if !keys[want] {
			t.Errorf("expected attr %q in %v", want, keys)
		}
	}
}

func TestContextAttrs_EmptyContext(t *testing.T) {
	if attrs := ContextAttrs(context.Background()); len(attrs) != 0 {
		t.Errorf("expected no attrs on bare context, got %v", attrs)
	}
}

func TestFromContext_IncludesFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	// FromContext derives from the process default; swap it in for the
	// duration of the test.
	restore := swapDefault(logger)
	defer restore()

	ctx := WithRequestID(context.Background(), "req-99")
	FromContext(ctx).Info("relaying response")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse output %q: %v", buf.String(), err)
	}
	if entry["request_id"] != "req-99" {
		t.Errorf("expected request_id in output, got %v", entry)
	}
}
