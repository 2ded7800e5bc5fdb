package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// PollSource polls the backend health endpoint until it answers 2xx.
// Connection refused and 5xx both mean "still starting"; the budget in the
// monitor decides when waiting stops being acceptable.
type PollSource struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   *slog.Logger
}

// NewPollSource creates a health-poll source for the backend at backendURL.
func NewPollSource(backendURL, healthPath string, interval time.Duration) (*PollSource, error) {
	if backendURL == "" {
		return nil, fmt.Errorf("poll source requires a backend URL")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("poll source requires a positive interval")
	}
	return &PollSource{
		url:      strings.TrimSuffix(backendURL, "/") + healthPath,
		interval: interval,
		client:   &http.Client{Timeout: interval},
		logger:   slog.Default().With("component", "readiness.poll"),
	}, nil
}

// Name implements Source.
func (s *PollSource) Name() string { return "poll" }

// Events implements Source. The first probe fires immediately; afterwards
// probes run on the configured interval. A change in the observed failure
// is surfaced as a progress event, so the monitor log shows "connection
// refused" turning into "status 503" when the server socket opens.
func (s *PollSource) Events(ctx context.Context) (<-chan Event, error) {
	events := make(chan Event, 1)
	go s.run(ctx, events)

	s.logger.Info("polling backend health",
		"url", s.url,
		"interval", s.interval,
	)
	return events, nil
}

func (s *PollSource) run(ctx context.Context, events chan<- Event) {
	defer close(events)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var lastObservation string
	for {
		observation, ready := s.probe(ctx)
		if ready {
			select {
			case events <- Event{Kind: KindLoaded, Detail: observation, At: time.Now()}:
			case <-ctx.Done():
			}
			return
		}

		if observation != lastObservation {
			lastObservation = observation
			select {
			case events <- Event{Kind: KindProgress, Detail: observation, At: time.Now()}:
			case <-ctx.Done():
				return
			}
		} else {
			s.logger.Debug("backend not ready", "observation", observation)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// probe issues one health check. The bool is true when the backend answered
// 2xx.
func (s *PollSource) probe(ctx context.Context) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Sprintf("invalid health request: %v", err), false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Sprintf("health probe failed: %v", err), false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return fmt.Sprintf("health endpoint answered %d", resp.StatusCode), true
	}
	return fmt.Sprintf("health endpoint answered %d", resp.StatusCode), false
}
