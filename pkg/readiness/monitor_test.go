package readiness

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/config"
)

// fakeSource feeds scripted events to the monitor.
type fakeSource struct {
	events chan Event
	err    error
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan Event, 8)}
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Events(ctx context.Context) (<-chan Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

// fakeHistory is a scripted journal lookup.
type fakeHistory struct {
	ready bool
	err   error
}

func (h *fakeHistory) WasReady(ctx context.Context) (bool, error) {
	return h.ready, h.err
}

func budgets(initial, resume time.Duration) config.ReadinessConfig {
	return config.ReadinessConfig{
		InitialTimeout: initial,
		ResumeTimeout:  resume,
	}
}

// ============================================================================
// Await outcomes
// ============================================================================

func TestAwait_ReturnsOnLoaded(t *testing.T) {
	source := newFakeSource()
	source.events <- Event{Kind: KindProgress, Detail: "Downloading shard 1 of 4", At: time.Now()}
	source.events <- Event{Kind: KindLoaded, Detail: "Application startup complete", At: time.Now()}

	monitor := NewMonitor(source, budgets(time.Minute, time.Minute))

	result, err := monitor.Await(context.Background(), Initial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != "fake" {
		t.Errorf("expected source %q, got %q", "fake", result.Source)
	}
	if result.Detail != "Application startup complete" {
		t.Errorf("unexpected detail %q", result.Detail)
	}
	if result.TimeToReady < 0 {
		t.Errorf("expected non-negative time to ready, got %v", result.TimeToReady)
	}
}

func TestAwait_FatalMarkerAborts(t *testing.T) {
	source := newFakeSource()
	source.events <- Event{Kind: KindFatal, Detail: "CUDA out of memory", At: time.Now()}

	monitor := NewMonitor(source, budgets(time.Minute, time.Minute))

	_, err := monitor.Await(context.Background(), Initial)
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected *FatalError, got %v", err)
	}
	if fatal.Detail != "CUDA out of memory" {
		t.Errorf("unexpected detail %q", fatal.Detail)
	}
}

func TestAwait_InitialBudgetExceeded(t *testing.T) {
	monitor := NewMonitor(newFakeSource(), budgets(20*time.Millisecond, time.Hour))

	_, err := monitor.Await(context.Background(), Initial)
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if timeout.Mode != Initial {
		t.Errorf("expected initial mode, got %s", timeout.Mode)
	}
	if timeout.Budget != 20*time.Millisecond {
		t.Errorf("expected budget 20ms, got %v", timeout.Budget)
	}
}

func TestAwait_ResumeUsesItsOwnBudget(t *testing.T) {
	monitor := NewMonitor(newFakeSource(), budgets(time.Hour, 20*time.Millisecond))

	start := time.Now()
	_, err := monitor.Await(context.Background(), Resume)
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if timeout.Mode != Resume {
		t.Errorf("expected resume mode, got %s", timeout.Mode)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("resume wait used the wrong budget, took %v", elapsed)
	}
}

func TestAwait_CallerCancellationIsNotATimeout(t *testing.T) {
	monitor := NewMonitor(newFakeSource(), budgets(time.Hour, time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := monitor.Await(ctx, Initial)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		t.Error("shutdown must not be reported as a readiness timeout")
	}
}

func TestAwait_SourceStartFailure(t *testing.T) {
	source := newFakeSource()
	source.err = errors.New("log directory missing")

	monitor := NewMonitor(source, budgets(time.Minute, time.Minute))

	if _, err := monitor.Await(context.Background(), Initial); err == nil {
		t.Fatal("expected error when the source cannot start")
	}
}

func TestAwait_SourceStoppedEarly(t *testing.T) {
	source := newFakeSource()
	close(source.events)

	monitor := NewMonitor(source, budgets(time.Minute, time.Minute))

	if _, err := monitor.Await(context.Background(), Initial); err == nil {
		t.Fatal("expected error when the source stops before ready")
	}
}

// ============================================================================
// Start mode resolution
// ============================================================================

func TestResolveMode(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		history History
		want    Mode
	}{
		{"explicit initial ignores history", "initial", &fakeHistory{ready: true}, Initial},
		{"explicit resume without history", "resume", nil, Resume},
		{"auto without history", "auto", nil, Initial},
		{"auto with prior ready", "auto", &fakeHistory{ready: true}, Resume},
		{"auto without prior ready", "auto", &fakeHistory{ready: false}, Initial},
		{"auto with history error", "auto", &fakeHistory{err: errors.New("db locked")}, Initial},
		{"empty start behaves as auto", "", &fakeHistory{ready: true}, Resume},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.ReadinessConfig{Start: tt.start}
			if got := ResolveMode(context.Background(), cfg, tt.history); got != tt.want {
				t.Errorf("ResolveMode() = %s, want %s", got, tt.want)
			}
		})
	}
}

// ============================================================================
// Source selection
// ============================================================================

func TestNewSource(t *testing.T) {
	backendWithLog := config.BackendConfig{
		URL:        "http://127.0.0.1:8000",
		HealthPath: "/health",
		LogPath:    "/var/log/backend.log",
	}
	backendNoLog := config.BackendConfig{
		URL:        "http://127.0.0.1:8000",
		HealthPath: "/health",
	}
	readinessCfg := func(source string) config.ReadinessConfig {
		return config.ReadinessConfig{
			Source:       source,
			PollInterval: time.Second,
			Markers:      testMarkers(),
		}
	}

	tests := []struct {
		name      string
		cfg       config.ReadinessConfig
		backend   config.BackendConfig
		wantName  string
		expectErr bool
	}{
		{"explicit log", readinessCfg("log"), backendWithLog, "log", false},
		{"explicit poll", readinessCfg("poll"), backendNoLog, "poll", false},
		{"auto prefers log", readinessCfg("auto"), backendWithLog, "log", false},
		{"auto falls back to poll", readinessCfg("auto"), backendNoLog, "poll", false},
		{"empty behaves as auto", readinessCfg(""), backendNoLog, "poll", false},
		{"log without path", readinessCfg("log"), backendNoLog, "", true},
		{"unknown source", readinessCfg("dbus"), backendWithLog, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := NewSource(tt.cfg, tt.backend)
			if tt.expectErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if source.Name() != tt.wantName {
				t.Errorf("expected source %q, got %q", tt.wantName, source.Name())
			}
		})
	}
}
