package readiness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"mercator-hq/ganymede/pkg/config"
)

// fallbackTick bounds how long a log append can go unnoticed when fsnotify
// misses an event. Network and overlay filesystems drop events; the backend
// log often lives on one.
const fallbackTick = time.Second

// LogSource tails the backend log file and classifies appended lines by
// configured substring markers.
//
// The tail starts at the current end of file: lines from a previous backend
// run must not satisfy this run's readiness. A file that does not exist yet
// is read from the beginning once it appears. Truncation or rotation resets
// the tail to the new start.
type LogSource struct {
	path    string
	markers config.MarkerConfig
	tick    time.Duration
	logger  *slog.Logger

	// Tail state, owned by the run goroutine.
	offset  int64
	pending string
}

// NewLogSource creates a log-tail source for the file at path.
func NewLogSource(path string, markers config.MarkerConfig) (*LogSource, error) {
	if path == "" {
		return nil, fmt.Errorf("log source requires a backend log path")
	}
	if len(markers.Loaded) == 0 {
		return nil, fmt.Errorf("log source requires at least one loaded marker")
	}
	return &LogSource{
		path:    path,
		markers: markers,
		tick:    fallbackTick,
		logger:  slog.Default().With("component", "readiness.log"),
	}, nil
}

// Name implements Source.
func (s *LogSource) Name() string { return "log" }

// Events implements Source. It watches the log file's directory so that a
// file created after startup, or swapped in by rotation, is still seen.
func (s *LogSource) Events(ctx context.Context) (<-chan Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch log directory %q: %w", dir, err)
	}

	// Existing content belongs to a previous run; skip it.
	if info, err := os.Stat(s.path); err == nil {
		s.offset = info.Size()
	}

	events := make(chan Event, 8)
	go s.run(ctx, watcher, events)

	s.logger.Info("tailing backend log",
		"path", s.path,
		"from_offset", s.offset,
	)
	return events, nil
}

func (s *LogSource) run(ctx context.Context, watcher *fsnotify.Watcher, events chan<- Event) {
	defer close(events)
	defer watcher.Close()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !s.drain(ctx, events) {
				return
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			// The fallback tick keeps the tail alive.
			s.logger.Warn("log watcher error", "error", err)

		case <-ticker.C:
			if !s.drain(ctx, events) {
				return
			}
		}
	}
}

// drain reads everything appended since the last offset and emits an event
// per matching line. Returns false when ctx ended mid-send.
func (s *LogSource) drain(ctx context.Context, events chan<- Event) bool {
	info, err := os.Stat(s.path)
	if err != nil {
		// Not created yet, or rotated away; wait for the next signal.
		return true
	}

	if info.Size() < s.offset {
		s.logger.Info("backend log truncated, tailing from start")
		s.offset = 0
		s.pending = ""
	}
	if info.Size() == s.offset {
		return true
	}

	file, err := os.Open(s.path)
	if err != nil {
		s.logger.Warn("failed to open backend log", "error", err)
		return true
	}
	defer file.Close()

	if _, err := file.Seek(s.offset, io.SeekStart); err != nil {
		s.logger.Warn("failed to seek backend log", "error", err)
		return true
	}

	buf := make([]byte, 64*1024)
	for {
		n, err := file.Read(buf)
		if n > 0 {
			s.offset += int64(n)
			if !s.scan(ctx, string(buf[:n]), events) {
				return false
			}
		}
		if err != nil {
			return true
		}
	}
}

// scan appends a chunk to the pending partial line and classifies every
// completed line in it.
func (s *LogSource) scan(ctx context.Context, chunk string, events chan<- Event) bool {
	s.pending += chunk
	lines := strings.Split(s.pending, "\n")
	s.pending = lines[len(lines)-1]

	for _, line := range lines[:len(lines)-1] {
		kind, ok := s.classify(line)
		if !ok {
			continue
		}
		select {
		case events <- Event{Kind: kind, Detail: line, At: time.Now()}:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// classify matches a line against the configured markers. Loaded wins over
// fatal so an error-looking line that also carries the ready marker cannot
// kill a startup that just succeeded.
func (s *LogSource) classify(line string) (Kind, bool) {
	if matchesAny(line, s.markers.Loaded) {
		return KindLoaded, true
	}
	if matchesAny(line, s.markers.Error) {
		return KindFatal, true
	}
	if matchesAny(line, s.markers.Progress) {
		return KindProgress, true
	}
	return 0, false
}

func matchesAny(line string, markers []string) bool {
	for _, marker := range markers {
		if marker != "" && strings.Contains(line, marker) {
			return true
		}
	}
	return false
}
