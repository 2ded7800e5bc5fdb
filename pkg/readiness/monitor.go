package readiness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/ganymede/pkg/config"
)

// Mode selects the start budget.
type Mode int

const (
	// Initial is a cold start: the budget must cover model download and
	// load.
	Initial Mode = iota

	// Resume is a warm start: the model is already on local disk.
	Resume
)

// String returns the mode name for logs.
func (m Mode) String() string {
	switch m {
	case Initial:
		return "initial"
	case Resume:
		return "resume"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// History answers whether a previous run on this volume reached ready.
// Implemented by the journal.
type History interface {
	WasReady(ctx context.Context) (bool, error)
}

// ResolveMode picks the start mode. Explicit configuration wins; "auto"
// resumes only when the journal proves a previous run loaded the model on
// this volume. Cold start is the safe default: its budget is the longer
// one.
func ResolveMode(ctx context.Context, cfg config.ReadinessConfig, history History) Mode {
	switch cfg.Start {
	case "initial":
		return Initial
	case "resume":
		return Resume
	}

	if history == nil {
		return Initial
	}
	ready, err := history.WasReady(ctx)
	if err != nil {
		slog.Default().Warn("failed to read readiness history, assuming cold start",
			"error", err,
		)
		return Initial
	}
	if ready {
		return Resume
	}
	return Initial
}

// Result describes a completed wait for backend readiness.
type Result struct {
	// TimeToReady is how long the backend took from the start of the wait.
	TimeToReady time.Duration

	// Source is the name of the source that reported loaded.
	Source string

	// Detail is the log line or probe observation that completed the wait.
	Detail string
}

// Monitor waits for the backend to become ready.
type Monitor struct {
	source Source
	cfg    config.ReadinessConfig
	logger *slog.Logger
}

// NewMonitor creates a monitor over the given source.
func NewMonitor(source Source, cfg config.ReadinessConfig) *Monitor {
	return &Monitor{
		source: source,
		cfg:    cfg,
		logger: slog.Default().With("component", "readiness.monitor"),
	}
}

// Await blocks until the backend reports loaded, a fatal marker fires, or
// the mode's budget runs out. Budget exhaustion returns a *TimeoutError and
// a fatal marker a *FatalError; both are terminal for the worker.
func (m *Monitor) Await(ctx context.Context, mode Mode) (*Result, error) {
	budget := m.cfg.InitialTimeout
	if mode == Resume {
		budget = m.cfg.ResumeTimeout
	}

	waitCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	events, err := m.source.Events(waitCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to start readiness source: %w", err)
	}

	m.logger.Info("waiting for backend",
		"source", m.source.Name(),
		"mode", mode.String(),
		"budget", budget,
	)
	start := time.Now()

	for {
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				// The caller is shutting down, not the budget expiring.
				return nil, ctx.Err()
			}
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				return nil, &TimeoutError{
					Mode:   mode,
					Budget: budget,
					Source: m.source.Name(),
				}
			}
			return nil, waitCtx.Err()

		case event, ok := <-events:
			if !ok {
				return nil, fmt.Errorf("readiness source %s stopped before the backend was ready", m.source.Name())
			}

			switch event.Kind {
			case KindLoaded:
				waited := time.Since(start)
				m.logger.Info("backend ready",
					"source", m.source.Name(),
					"time_to_ready", waited.Round(time.Millisecond),
					"detail", event.Detail,
				)
				return &Result{
					TimeToReady: waited,
					Source:      m.source.Name(),
					Detail:      event.Detail,
				}, nil

			case KindFatal:
				m.logger.Error("backend startup failed",
					"source", m.source.Name(),
					"detail", event.Detail,
				)
				return nil, &FatalError{
					Detail: event.Detail,
					Source: m.source.Name(),
				}

			case KindProgress:
				m.logger.Info("backend startup progress",
					"detail", event.Detail,
				)
			}
		}
	}
}
