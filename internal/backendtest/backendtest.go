// Package backendtest provides a fake model-serving backend for tests.
//
// The server speaks just enough of the completion surface for the proxy,
// the calibration benchmark, and the readiness poller to run against it:
// a JSON completion endpoint on every POST path, SSE streaming when the
// request body asks for it, and a GET /health endpoint with a
// configurable warm-up. All knobs may be flipped while the server is
// handling requests.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Server is a fake model server. Create one with New and stop it with
// Close; the zero value is not usable.
type Server struct {
	httpSrv *httptest.Server

	mu           sync.Mutex
	text         string
	tokens       int
	delay        time.Duration
	stalled      bool
	failStatus   int
	failBody     string
	healthyAfter int64

	completions  atomic.Int64
	healthProbes atomic.Int64
}

// New starts a fake backend that is healthy immediately and answers every
// completion with a fixed text and token count.
func New() *Server {
	s := &Server{
		text:   "the quick brown fox jumps over the lazy dog",
		tokens: 32,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleCompletion)
	s.httpSrv = httptest.NewServer(mux)
	return s
}

// URL returns the backend base URL.
func (s *Server) URL() string { return s.httpSrv.URL }

// Close shuts the backend down. Stalled requests are only released when
// their client gives up, so cancel outstanding requests before closing.
func (s *Server) Close() { s.httpSrv.Close() }

// SetCompletion changes the completion text and the reported token count.
func (s *Server) SetCompletion(text string, tokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
	s.tokens = tokens
}

// SetDelay makes every completion take at least d.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// SetStalled makes completions hang until the client abandons the
// request. Used to provoke backend timeouts.
func (s *Server) SetStalled(stalled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stalled = stalled
}

// SetFailure makes completions answer the given status and body. A zero
// status restores normal answers.
func (s *Server) SetFailure(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
	s.failBody = body
}

// HealthyAfter makes the first n health probes answer 503. Zero restores
// immediate health.
func (s *Server) HealthyAfter(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthyAfter = n
}

// NeverHealthy makes every health probe answer 503.
func (s *Server) NeverHealthy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthyAfter = -1
}

// Completions returns how many completion requests arrived.
func (s *Server) Completions() int64 { return s.completions.Load() }

// HealthProbes returns how many health probes arrived.
func (s *Server) HealthProbes() int64 { return s.healthProbes.Load() }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	probe := s.healthProbes.Add(1)

	s.mu.Lock()
	after := s.healthyAfter
	s.mu.Unlock()

	if after < 0 || probe <= after {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	s.completions.Add(1)

	s.mu.Lock()
	text := s.text
	tokens := s.tokens
	delay := s.delay
	stalled := s.stalled
	failStatus := s.failStatus
	failBody := s.failBody
	s.mu.Unlock()

	if stalled {
		<-r.Context().Done()
		return
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if failStatus != 0 {
		http.Error(w, failBody, failStatus)
		return
	}

	var req struct {
		Stream bool `json:"stream"`
	}
	// A missing or non-JSON body is a plain completion request.
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.Stream {
		s.streamCompletion(w, text)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":      "cmpl-backendtest",
		"object":  "text_completion",
		"choices": []map[string]any{{"text": text}},
		"usage":   map[string]any{"completion_tokens": tokens},
	})
}

// streamCompletion answers as an SSE stream: one data frame per word,
// flushed as it is written, closed by the [DONE] sentinel.
func (s *Server) streamCompletion(w http.ResponseWriter, text string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for _, word := range strings.Fields(text) {
		chunk, err := json.Marshal(map[string]any{
			"object":  "text_completion",
			"choices": []map[string]any{{"text": word + " "}},
		})
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", chunk)
		flusher.Flush()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}
