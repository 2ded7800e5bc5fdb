package config

import "time"

// Config is the root configuration structure for the Ganymede worker.
// It contains all configuration sections for the proxy listener, the local
// backend, admission control, capacity calibration, readiness detection,
// status reporting, the journal, and telemetry.
type Config struct {
	// Worker contains the identity of this worker instance.
	Worker WorkerConfig `yaml:"worker"`

	// Backend describes the model-serving process this worker fronts.
	Backend BackendConfig `yaml:"backend"`

	// Proxy contains the HTTP listener configuration for proxied traffic.
	Proxy ProxyConfig `yaml:"proxy"`

	// Admission contains the projected-wait admission ceiling and the
	// default-cost override.
	Admission AdmissionConfig `yaml:"admission"`

	// Capacity selects and tunes the throughput calibration benchmark.
	Capacity CapacityConfig `yaml:"capacity"`

	// Readiness configures backend startup detection.
	Readiness ReadinessConfig `yaml:"readiness"`

	// Routing contains the blocked-path patterns.
	Routing RoutingConfig `yaml:"routing"`

	// Reporting configures status reports sent to the fleet autoscaler.
	Reporting ReportingConfig `yaml:"reporting"`

	// Security contains request-signature verification and TLS settings.
	Security SecurityConfig `yaml:"security"`

	// Journal configures the embedded operational journal.
	Journal JournalConfig `yaml:"journal"`

	// Telemetry contains logging, metrics, and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// WorkerConfig identifies this worker instance to the fleet.
type WorkerConfig struct {
	// ID is the worker identity reported to the autoscaler. When empty a
	// random id is generated at startup.
	ID string `yaml:"id"`

	// ExternalURL is the address under which the fleet router reaches this
	// worker. Reported verbatim in every status report.
	ExternalURL string `yaml:"external_url"`

	// DataDir is the directory holding model data downloaded by the backend.
	// Its size is reported as additional disk usage.
	// Default: "data"
	DataDir string `yaml:"data_dir"`
}

// BackendConfig describes the local model-serving backend.
type BackendConfig struct {
	// URL is the base URL all traffic is forwarded to.
	// Default: "http://127.0.0.1:8000"
	URL string `yaml:"url"`

	// HealthPath is the backend health endpoint used by poll-based
	// readiness detection.
	// Default: "/health"
	HealthPath string `yaml:"health_path"`

	// LogPath is the backend log file used by log-based readiness
	// detection. Empty disables the log source.
	LogPath string `yaml:"log_path"`

	// AllowParallel reports whether the backend can process overlapping
	// requests. When false, all forwarding is serialized through a
	// single-slot gate.
	// Default: false
	AllowParallel bool `yaml:"allow_parallel"`

	// MaxConcurrent bounds in-flight forwarded requests when AllowParallel
	// is true. Zero means unbounded.
	// Default: 0
	MaxConcurrent int `yaml:"max_concurrent"`

	// RequestTimeout is the per-request ceiling for one forwarded request,
	// measured from dispatch until the response body is fully relayed.
	// Default: 10m
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Pool contains connection-pool limits for the backend transport.
	Pool PoolConfig `yaml:"pool"`
}

// PoolConfig contains connection-pool limits for the backend transport.
type PoolConfig struct {
	// MaxIdleConns is the total idle connection cap.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost is the per-host idle connection cap.
	// Default: 32
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// MaxConnsPerHost limits total connections per host. Zero means
	// unbounded.
	// Default: 0
	MaxConnsPerHost int `yaml:"max_conns_per_host"`

	// IdleConnTimeout is how long an idle connection is kept open.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// ProxyConfig contains the HTTP listener configuration for proxied traffic.
// There is deliberately no write timeout: streamed backend responses stay
// open for as long as the backend produces chunks.
type ProxyConfig struct {
	// ListenAddress is the address and port the proxy listens on.
	// Default: ":3000"
	ListenAddress string `yaml:"listen_address"`

	// ReadHeaderTimeout bounds reading of request headers.
	// Default: 10s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown before in-flight requests are aborted.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes caps request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// AdmissionConfig contains the admission-control parameters.
type AdmissionConfig struct {
	// MaxWaitTime is the projected-queue-wait ceiling: a request is
	// rejected when (cur_load + cost) / max_throughput exceeds it.
	// Default: 10m
	MaxWaitTime time.Duration `yaml:"max_wait_time"`

	// DefaultCost is substituted for any declared cost <= 1 (costs of 0
	// or 1 signal the caller set no meaningful cost). Zero disables the
	// override.
	// Default: 0
	DefaultCost float64 `yaml:"default_cost"`
}

// CapacityConfig selects and tunes the calibration benchmark.
type CapacityConfig struct {
	// Benchmark is the registered benchmark name.
	// Default: "completion-tokens"
	Benchmark string `yaml:"benchmark"`

	// Endpoint is the backend path the completion benchmark posts to.
	// Default: "/v1/completions"
	Endpoint string `yaml:"endpoint"`

	// Model is the model name sent in benchmark requests. Empty omits the
	// field.
	Model string `yaml:"model"`

	// Prompt is the benchmark prompt text.
	Prompt string `yaml:"prompt"`

	// MaxTokens is the completion length requested per benchmark call.
	// Default: 256
	MaxTokens int `yaml:"max_tokens"`

	// Runs is how many benchmark rounds are executed; the published
	// throughput averages over all of them.
	// Default: 3
	Runs int `yaml:"runs"`

	// Concurrency is how many benchmark requests each round issues in
	// parallel. Keep at 1 for backends that serialize.
	// Default: 1
	Concurrency int `yaml:"concurrency"`

	// Timeout bounds one whole calibration attempt.
	// Default: 2m
	Timeout time.Duration `yaml:"timeout"`

	// FixedThroughput is the throughput published by the "fixed"
	// benchmark, in workload units per second.
	FixedThroughput float64 `yaml:"fixed_throughput"`

	// RecalibrateSchedule is a standard 5-field cron expression for
	// periodic recalibration. Empty disables scheduled recalibration.
	RecalibrateSchedule string `yaml:"recalibrate_schedule"`

	// RetryInterval is how often a failed startup calibration is retried
	// until the first success.
	// Default: 30s
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// ReadinessConfig configures backend startup detection.
type ReadinessConfig struct {
	// Source selects the readiness signal: "log" tails the backend log
	// file, "poll" polls the health endpoint, "auto" picks log when
	// backend.log_path is set and poll otherwise.
	// Default: "auto"
	Source string `yaml:"source"`

	// Start selects the timeout budget: "initial" (cold start), "resume"
	// (model already on local disk), or "auto" (resume when the journal
	// holds a prior ready record).
	// Default: "auto"
	Start string `yaml:"start"`

	// InitialTimeout is the cold-start budget covering model download and
	// load.
	// Default: 2h
	InitialTimeout time.Duration `yaml:"initial_timeout"`

	// ResumeTimeout is the warm-resume budget.
	// Default: 10m
	ResumeTimeout time.Duration `yaml:"resume_timeout"`

	// PollInterval is the health-endpoint polling interval.
	// Default: 2s
	PollInterval time.Duration `yaml:"poll_interval"`

	// Markers contains the log substrings matched by the log source.
	Markers MarkerConfig `yaml:"markers"`
}

// MarkerConfig lists the log-line substrings the log source matches.
type MarkerConfig struct {
	// Loaded marks successful model load; any match completes readiness.
	Loaded []string `yaml:"loaded"`

	// Error marks a fatal backend failure; any match aborts startup.
	Error []string `yaml:"error"`

	// Progress marks benign progress lines, logged but otherwise ignored.
	Progress []string `yaml:"progress"`
}

// RoutingConfig contains the blocked-path patterns.
type RoutingConfig struct {
	// BlockedPaths is a list of glob patterns matched against the full
	// request path; '*' matches any run of characters including '/',
	// '?' matches exactly one character. Matching requests receive 403
	// before admission is consulted. The GANYMEDE_ROUTING_BLOCKED_PATHS
	// environment form is comma-separated.
	BlockedPaths []string `yaml:"blocked_paths"`
}

// ReportingConfig configures status reports sent to the autoscaler.
type ReportingConfig struct {
	// URL is the autoscaler report endpoint. Empty logs reports locally
	// instead of sending them (development only).
	URL string `yaml:"url"`

	// AuthToken is the master token issued to this worker, echoed in
	// every report.
	AuthToken string `yaml:"auth_token"`

	// Interval is the heartbeat period between unprompted reports.
	// Default: 10s
	Interval time.Duration `yaml:"interval"`

	// SendTimeout bounds one report delivery.
	// Default: 5s
	SendTimeout time.Duration `yaml:"send_timeout"`

	// DiskUsageInterval is how often the data-dir size probe refreshes.
	// Default: 5m
	DiskUsageInterval time.Duration `yaml:"disk_usage_interval"`
}

// SecurityConfig contains request authentication and TLS settings.
type SecurityConfig struct {
	// Unsecured disables request-signature verification. Development
	// only; the worker logs a prominent warning at startup.
	// Default: false
	Unsecured bool `yaml:"unsecured"`

	// PublicKeyFile is a PEM file holding the fleet router's RSA public
	// key used to verify request signatures.
	PublicKeyFile string `yaml:"public_key_file"`

	// PublicKey is the same key inline, for environments without a
	// mounted file. PublicKeyFile wins when both are set.
	PublicKey string `yaml:"public_key"`

	// TLS configures certificate-based transport security on the proxy
	// listener.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS settings for the proxy listener.
type TLSConfig struct {
	// Enabled controls whether the listener serves TLS.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM private key.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum accepted TLS version, "1.2" or "1.3".
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ReloadInterval is how often the certificate files are checked for
	// rotation. Fleet-issued certificates are replaced on disk; the
	// listener picks them up without a restart.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// JournalConfig configures the embedded operational journal.
type JournalConfig struct {
	// Disabled turns the journal off entirely. With the journal off,
	// readiness start "auto" always uses the initial budget.
	// Default: false
	Disabled bool `yaml:"disabled"`

	// Path is the SQLite database file.
	// Default: "data/ganymede.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// Retention bounds journal growth.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig bounds journal growth.
type RetentionConfig struct {
	// Days is the age cutoff; older records are pruned. Zero disables
	// age-based pruning.
	// Default: 7
	Days int `yaml:"days"`

	// MaxRecords caps each table; the oldest surplus is pruned. Zero
	// disables count-based pruning.
	// Default: 10000
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a standard 5-field cron expression for scheduled
	// pruning. Empty disables the schedule.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains logging, metrics, and tracing configuration.
type TelemetryConfig struct {
	// Logging configures the slog handler.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint on the ops listener.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configures the OpenTelemetry exporter.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// Output is "stderr" or "stdout".
	// Default: "stderr"
	Output string `yaml:"output"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Disabled turns the ops listener off entirely.
	// Default: false
	Disabled bool `yaml:"disabled"`

	// ListenAddress is the ops listener address. Kept separate from the
	// proxy listener so that every non-blocked proxy path still reaches
	// the backend.
	// Default: ":9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the Prometheus metric namespace.
	// Default: "mercator"
	Namespace string `yaml:"namespace"`

	// Subsystem is the Prometheus metric subsystem.
	// Default: "ganymede"
	Subsystem string `yaml:"subsystem"`
}

// TracingConfig configures the OpenTelemetry exporter.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint (host:port).
	Endpoint string `yaml:"endpoint"`

	// Insecure disables transport security on the exporter connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the trace sampling ratio in [0.0, 1.0].
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is the reported service name.
	// Default: "ganymede"
	ServiceName string `yaml:"service_name"`
}
