package config

import "time"

// Default values for configuration fields.
const (
	// Worker defaults
	DefaultDataDir = "data"

	// Backend defaults
	DefaultBackendURL              = "http://127.0.0.1:8000"
	DefaultBackendHealthPath       = "/health"
	DefaultBackendRequestTimeout   = 10 * time.Minute
	DefaultPoolMaxIdleConns        = 100
	DefaultPoolMaxIdleConnsPerHost = 32
	DefaultPoolIdleConnTimeout     = 90 * time.Second

	// Proxy defaults
	DefaultListenAddress     = ":3000"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultMaxHeaderBytes    = 1048576 // 1MB

	// Admission defaults
	DefaultMaxWaitTime = 10 * time.Minute

	// Capacity defaults
	DefaultBenchmark         = "completion-tokens"
	DefaultBenchmarkEndpoint = "/v1/completions"
	DefaultBenchmarkPrompt   = "Write a detailed account of a long sea voyage."
	DefaultBenchmarkTokens   = 256
	DefaultBenchmarkRuns     = 3
	DefaultBenchmarkParallel = 1
	DefaultBenchmarkTimeout  = 2 * time.Minute
	DefaultCalibrationRetry  = 30 * time.Second

	// Readiness defaults
	DefaultReadinessSource = "auto"
	DefaultReadinessStart  = "auto"
	DefaultInitialTimeout  = 2 * time.Hour
	DefaultResumeTimeout   = 10 * time.Minute
	DefaultPollInterval    = 2 * time.Second

	// Reporting defaults
	DefaultReportInterval    = 10 * time.Second
	DefaultReportSendTimeout = 5 * time.Second
	DefaultDiskUsageInterval = 5 * time.Minute

	// Security defaults
	DefaultTLSMinVersion     = "1.3"
	DefaultTLSReloadInterval = 5 * time.Minute

	// Journal defaults
	DefaultJournalPath         = "data/ganymede.db"
	DefaultJournalBusyTimeout  = 5 * time.Second
	DefaultRetentionDays       = 7
	DefaultRetentionMaxRecords = int64(10000)
	DefaultRetentionSchedule   = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultLoggingOutput    = "stderr"
	DefaultMetricsListen    = ":9090"
	DefaultPrometheusPath   = "/metrics"
	DefaultMetricsNamespace = "mercator"
	DefaultMetricsSubsystem = "ganymede"
	DefaultTracingSampling  = 1.0
	DefaultTracingService   = "ganymede"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Worker defaults
	if cfg.Worker.DataDir == "" {
		cfg.Worker.DataDir = DefaultDataDir
	}

	// Backend defaults
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = DefaultBackendURL
	}
	if cfg.Backend.HealthPath == "" {
		cfg.Backend.HealthPath = DefaultBackendHealthPath
	}
	if cfg.Backend.RequestTimeout == 0 {
		cfg.Backend.RequestTimeout = DefaultBackendRequestTimeout
	}
	if cfg.Backend.Pool.MaxIdleConns == 0 {
		cfg.Backend.Pool.MaxIdleConns = DefaultPoolMaxIdleConns
	}
	if cfg.Backend.Pool.MaxIdleConnsPerHost == 0 {
		cfg.Backend.Pool.MaxIdleConnsPerHost = DefaultPoolMaxIdleConnsPerHost
	}
	if cfg.Backend.Pool.IdleConnTimeout == 0 {
		cfg.Backend.Pool.IdleConnTimeout = DefaultPoolIdleConnTimeout
	}

	// Proxy defaults
	if cfg.Proxy.ListenAddress == "" {
		cfg.Proxy.ListenAddress = DefaultListenAddress
	}
	if cfg.Proxy.ReadHeaderTimeout == 0 {
		cfg.Proxy.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if cfg.Proxy.IdleTimeout == 0 {
		cfg.Proxy.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Proxy.ShutdownTimeout == 0 {
		cfg.Proxy.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Proxy.MaxHeaderBytes == 0 {
		cfg.Proxy.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Admission defaults
	if cfg.Admission.MaxWaitTime == 0 {
		cfg.Admission.MaxWaitTime = DefaultMaxWaitTime
	}

	// Capacity defaults
	if cfg.Capacity.Benchmark == "" {
		cfg.Capacity.Benchmark = DefaultBenchmark
	}
	if cfg.Capacity.Endpoint == "" {
		cfg.Capacity.Endpoint = DefaultBenchmarkEndpoint
	}
	if cfg.Capacity.Prompt == "" {
		cfg.Capacity.Prompt = DefaultBenchmarkPrompt
	}
	if cfg.Capacity.MaxTokens == 0 {
		cfg.Capacity.MaxTokens = DefaultBenchmarkTokens
	}
	if cfg.Capacity.Runs == 0 {
		cfg.Capacity.Runs = DefaultBenchmarkRuns
	}
	if cfg.Capacity.Concurrency == 0 {
		cfg.Capacity.Concurrency = DefaultBenchmarkParallel
	}
	if cfg.Capacity.Timeout == 0 {
		cfg.Capacity.Timeout = DefaultBenchmarkTimeout
	}
	if cfg.Capacity.RetryInterval == 0 {
		cfg.Capacity.RetryInterval = DefaultCalibrationRetry
	}

	// Readiness defaults
	if cfg.Readiness.Source == "" {
		cfg.Readiness.Source = DefaultReadinessSource
	}
	if cfg.Readiness.Start == "" {
		cfg.Readiness.Start = DefaultReadinessStart
	}
	if cfg.Readiness.InitialTimeout == 0 {
		cfg.Readiness.InitialTimeout = DefaultInitialTimeout
	}
	if cfg.Readiness.ResumeTimeout == 0 {
		cfg.Readiness.ResumeTimeout = DefaultResumeTimeout
	}
	if cfg.Readiness.PollInterval == 0 {
		cfg.Readiness.PollInterval = DefaultPollInterval
	}

	// Reporting defaults
	if cfg.Reporting.Interval == 0 {
		cfg.Reporting.Interval = DefaultReportInterval
	}
	if cfg.Reporting.SendTimeout == 0 {
		cfg.Reporting.SendTimeout = DefaultReportSendTimeout
	}
	if cfg.Reporting.DiskUsageInterval == 0 {
		cfg.Reporting.DiskUsageInterval = DefaultDiskUsageInterval
	}

	// Security defaults
	if cfg.Security.TLS.MinVersion == "" {
		cfg.Security.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Security.TLS.ReloadInterval == 0 {
		cfg.Security.TLS.ReloadInterval = DefaultTLSReloadInterval
	}

	// Journal defaults
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = DefaultJournalPath
	}
	if cfg.Journal.BusyTimeout == 0 {
		cfg.Journal.BusyTimeout = DefaultJournalBusyTimeout
	}
	if cfg.Journal.Retention.Days == 0 {
		cfg.Journal.Retention.Days = DefaultRetentionDays
	}
	if cfg.Journal.Retention.MaxRecords == 0 {
		cfg.Journal.Retention.MaxRecords = DefaultRetentionMaxRecords
	}
	if cfg.Journal.Retention.PruneSchedule == "" {
		cfg.Journal.Retention.PruneSchedule = DefaultRetentionSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Logging.Output == "" {
		cfg.Telemetry.Logging.Output = DefaultLoggingOutput
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListen
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampling
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
}
