package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/ganymede/pkg/admission"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/report"
)

// StatusSource builds the report served on /statusz. Implemented by
// report.Builder; Build never advances the delivery watermark, so reading
// the status here cannot interfere with the reporter.
type StatusSource interface {
	Build() *report.StatusReport
}

// VersionInfo contains build and version information served on /version.
type VersionInfo struct {
	// Version is the semantic version (e.g., "1.0.0")
	Version string `json:"version"`

	// Commit is the git commit hash
	Commit string `json:"commit"`

	// BuildTime is when the binary was built
	BuildTime string `json:"build_time"`

	// GoVersion is the Go version used to build
	GoVersion string `json:"go_version"`
}

// CheckResult is one readiness condition in the /readyz response.
type CheckResult struct {
	// Status is "ok" or "waiting"
	Status string `json:"status"`

	// Message provides additional context for a waiting check
	Message string `json:"message,omitempty"`
}

// ReadyStatus is the /readyz response body.
type ReadyStatus struct {
	// Status is "ready" once every check passes, "starting" before that
	Status string `json:"status"`

	// Checks contains the state of each readiness condition
	Checks map[string]CheckResult `json:"checks"`

	// Timestamp is when the probe was answered
	Timestamp time.Time `json:"timestamp"`
}

// OpsServer is the operational listener beside the traffic port: Prometheus
// metrics, liveness and readiness probes, the current status report, and
// build information. These paths stay off the proxy port so the catch-all
// forwarding rule there never competes with operational routes.
//
// The server starts before the backend is ready; /readyz answers 503 until
// MarkBackendReady has been called and a capacity estimate exists.
type OpsServer struct {
	config         config.MetricsConfig
	metricsHandler http.Handler
	status         StatusSource
	capacity       admission.CapacitySource
	version        VersionInfo
	logger         *slog.Logger

	backendReady atomic.Bool

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	isRunning  bool
}

// NewOpsServer creates the ops listener. metricsHandler serves /metrics and
// may be a 404 handler when metrics are disabled; status and caps feed
// /statusz and the calibration readiness check.
func NewOpsServer(cfg config.MetricsConfig, metricsHandler http.Handler, status StatusSource, caps admission.CapacitySource, version VersionInfo) *OpsServer {
	if version.GoVersion == "" {
		version.GoVersion = runtime.Version()
	}
	return &OpsServer{
		config:         cfg,
		metricsHandler: metricsHandler,
		status:         status,
		capacity:       caps,
		version:        version,
		logger:         slog.Default().With("component", "proxy.ops"),
	}
}

// MarkBackendReady flips the backend readiness check. Called once the
// readiness monitor confirms the backend accepts traffic.
func (s *OpsServer) MarkBackendReady() {
	s.backendReady.Store(true)
}

// Start binds the listen address and begins serving in the background. The
// bind happens synchronously so an unusable port fails startup instead of
// surfacing later in a log line.
func (s *OpsServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("ops server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("binding ops listener: %w", err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.isRunning = true

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("ops server error", "error", err)
		}
	}()

	s.logger.Info("ops server started",
		"address", ln.Addr().String(),
		"metrics_path", s.config.Path,
	)
	return nil
}

// Shutdown stops the ops listener. In-flight scrapes and probes get until
// ctx expires to finish.
func (s *OpsServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}
	s.isRunning = false

	err := s.httpServer.Shutdown(ctx)
	s.logger.Info("ops server stopped")
	return err
}

// Addr returns the bound listen address, useful when the configured port
// was 0. Empty before Start.
func (s *OpsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *OpsServer) routes() http.Handler {
	mux := http.NewServeMux()

	metricsPath := s.config.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	mux.Handle(metricsPath, s.metricsHandler)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	mux.HandleFunc("/statusz", s.handleStatusz)
	mux.HandleFunc("/version", s.handleVersion)

	return mux
}

// handleHealthz is the liveness probe: the process is up and serving.
func (s *OpsServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now(),
		})
	}
}

// handleReadyz answers 200 only when the backend accepts traffic and a
// capacity estimate exists; until then the worker refuses every request,
// and the probe says so with 503.
func (s *OpsServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	checks := map[string]CheckResult{
		"backend":     {Status: "ok"},
		"calibration": {Status: "ok"},
	}
	if !s.backendReady.Load() {
		checks["backend"] = CheckResult{Status: "waiting", Message: "backend not ready"}
	}
	if !s.calibrated() {
		checks["calibration"] = CheckResult{Status: "waiting", Message: "no capacity estimate yet"}
	}

	status := ReadyStatus{
		Status:    "ready",
		Checks:    checks,
		Timestamp: time.Now(),
	}
	for _, check := range checks {
		if check.Status != "ok" {
			status.Status = "starting"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status.Status != "ready" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(status)
	}
}

func (s *OpsServer) calibrated() bool {
	if s.capacity == nil {
		return false
	}
	_, ok := s.capacity.Current()
	return ok
}

// handleStatusz serves the report the autoscaler would receive right now.
func (s *OpsServer) handleStatusz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.status == nil {
		http.Error(w, "status source not configured", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(s.status.Build())
	}
}

func (s *OpsServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(s.version)
	}
}
