package readiness

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/ganymede/pkg/config"
)

// Kind classifies a readiness event.
type Kind int

const (
	// KindProgress is a benign signal that startup is advancing. Progress
	// events are logged and otherwise ignored.
	KindProgress Kind = iota

	// KindLoaded means the backend finished loading and can serve.
	KindLoaded

	// KindFatal means the backend reported an unrecoverable startup
	// failure.
	KindFatal
)

// String returns the kind name for logs.
func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindLoaded:
		return "loaded"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one readiness signal from a source.
type Event struct {
	// Kind classifies the event.
	Kind Kind

	// Detail is the log line or probe observation that produced the
	// event.
	Detail string

	// At is when the source observed the signal.
	At time.Time
}

// Source produces readiness events for one backend.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string

	// Events starts the source and returns its event channel. The source
	// runs until ctx is cancelled; the channel is closed on shutdown.
	Events(ctx context.Context) (<-chan Event, error)
}

// NewSource builds the configured readiness source. The "auto" source
// prefers the log file when one is configured: model servers announce
// readiness in their logs before their HTTP surface stabilizes.
func NewSource(cfg config.ReadinessConfig, backend config.BackendConfig) (Source, error) {
	source := cfg.Source
	if source == "" || source == "auto" {
		if backend.LogPath != "" {
			source = "log"
		} else {
			source = "poll"
		}
	}

	switch source {
	case "log":
		return NewLogSource(backend.LogPath, cfg.Markers)
	case "poll":
		return NewPollSource(backend.URL, backend.HealthPath, cfg.PollInterval)
	default:
		return nil, fmt.Errorf("unknown readiness source %q", cfg.Source)
	}
}
