package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// An empty path skips the file entirely and starts from defaults, which is
// how workers configured purely through the environment run. The returned
// configuration has defaults applied and is validated.
func LoadConfig(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention GANYMEDE_SECTION_FIELD (e.g., GANYMEDE_BACKEND_URL) and always
// take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file (optional)
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
//
// Validation runs only on the final configuration so that required fields
// (such as the signature public key) may arrive via environment alone.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile reads and parses the YAML file (if any) and applies defaults.
// Validation is left to the callers so they can layer overrides first.
func loadFile(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(&cfg)

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format GANYMEDE_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Worker overrides
	if val := os.Getenv("GANYMEDE_WORKER_ID"); val != "" {
		cfg.Worker.ID = val
	}
	if val := os.Getenv("GANYMEDE_WORKER_EXTERNAL_URL"); val != "" {
		cfg.Worker.ExternalURL = val
	}
	if val := os.Getenv("GANYMEDE_WORKER_DATA_DIR"); val != "" {
		cfg.Worker.DataDir = val
	}

	// Backend overrides
	if val := os.Getenv("GANYMEDE_BACKEND_URL"); val != "" {
		cfg.Backend.URL = val
	}
	if val := os.Getenv("GANYMEDE_BACKEND_HEALTH_PATH"); val != "" {
		cfg.Backend.HealthPath = val
	}
	if val := os.Getenv("GANYMEDE_BACKEND_LOG_PATH"); val != "" {
		cfg.Backend.LogPath = val
	}
	if val := os.Getenv("GANYMEDE_BACKEND_ALLOW_PARALLEL"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Backend.AllowParallel = b
		}
	}
	if val := os.Getenv("GANYMEDE_BACKEND_MAX_CONCURRENT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Backend.MaxConcurrent = i
		}
	}
	if val := os.Getenv("GANYMEDE_BACKEND_REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Backend.RequestTimeout = d
		}
	}

	// Proxy overrides
	if val := os.Getenv("GANYMEDE_PROXY_LISTEN_ADDRESS"); val != "" {
		cfg.Proxy.ListenAddress = val
	}
	if val := os.Getenv("GANYMEDE_PROXY_READ_HEADER_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Proxy.ReadHeaderTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_PROXY_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Proxy.IdleTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_PROXY_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Proxy.ShutdownTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_PROXY_MAX_HEADER_BYTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Proxy.MaxHeaderBytes = i
		}
	}

	// Admission overrides
	if val := os.Getenv("GANYMEDE_ADMISSION_MAX_WAIT_TIME"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Admission.MaxWaitTime = d
		}
	}
	if val := os.Getenv("GANYMEDE_ADMISSION_DEFAULT_COST"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Admission.DefaultCost = f
		}
	}

	// Capacity overrides
	if val := os.Getenv("GANYMEDE_CAPACITY_BENCHMARK"); val != "" {
		cfg.Capacity.Benchmark = val
	}
	if val := os.Getenv("GANYMEDE_CAPACITY_ENDPOINT"); val != "" {
		cfg.Capacity.Endpoint = val
	}
	if val := os.Getenv("GANYMEDE_CAPACITY_MODEL"); val != "" {
		cfg.Capacity.Model = val
	}
	if val := os.Getenv("GANYMEDE_CAPACITY_MAX_TOKENS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Capacity.MaxTokens = i
		}
	}
	if val := os.Getenv("GANYMEDE_CAPACITY_RUNS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Capacity.Runs = i
		}
	}
	if val := os.Getenv("GANYMEDE_CAPACITY_CONCURRENCY"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Capacity.Concurrency = i
		}
	}
	if val := os.Getenv("GANYMEDE_CAPACITY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Capacity.Timeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_CAPACITY_FIXED_THROUGHPUT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Capacity.FixedThroughput = f
		}
	}
	if val := os.Getenv("GANYMEDE_CAPACITY_RECALIBRATE_SCHEDULE"); val != "" {
		cfg.Capacity.RecalibrateSchedule = val
	}
	if val := os.Getenv("GANYMEDE_CAPACITY_RETRY_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Capacity.RetryInterval = d
		}
	}

	// Readiness overrides
	if val := os.Getenv("GANYMEDE_READINESS_SOURCE"); val != "" {
		cfg.Readiness.Source = val
	}
	if val := os.Getenv("GANYMEDE_READINESS_START"); val != "" {
		cfg.Readiness.Start = val
	}
	if val := os.Getenv("GANYMEDE_READINESS_INITIAL_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Readiness.InitialTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_READINESS_RESUME_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Readiness.ResumeTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_READINESS_POLL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Readiness.PollInterval = d
		}
	}
	if val := os.Getenv("GANYMEDE_READINESS_MARKERS_LOADED"); val != "" {
		cfg.Readiness.Markers.Loaded = splitList(val)
	}
	if val := os.Getenv("GANYMEDE_READINESS_MARKERS_ERROR"); val != "" {
		cfg.Readiness.Markers.Error = splitList(val)
	}
	if val := os.Getenv("GANYMEDE_READINESS_MARKERS_PROGRESS"); val != "" {
		cfg.Readiness.Markers.Progress = splitList(val)
	}

	// Routing overrides
	if val := os.Getenv("GANYMEDE_ROUTING_BLOCKED_PATHS"); val != "" {
		cfg.Routing.BlockedPaths = splitList(val)
	}

	// Reporting overrides
	if val := os.Getenv("GANYMEDE_REPORTING_URL"); val != "" {
		cfg.Reporting.URL = val
	}
	if val := os.Getenv("GANYMEDE_REPORTING_AUTH_TOKEN"); val != "" {
		cfg.Reporting.AuthToken = val
	}
	if val := os.Getenv("GANYMEDE_REPORTING_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Reporting.Interval = d
		}
	}
	if val := os.Getenv("GANYMEDE_REPORTING_SEND_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Reporting.SendTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_REPORTING_DISK_USAGE_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Reporting.DiskUsageInterval = d
		}
	}

	// Security overrides
	if val := os.Getenv("GANYMEDE_SECURITY_UNSECURED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Security.Unsecured = b
		}
	}
	if val := os.Getenv("GANYMEDE_SECURITY_PUBLIC_KEY_FILE"); val != "" {
		cfg.Security.PublicKeyFile = val
	}
	if val := os.Getenv("GANYMEDE_SECURITY_PUBLIC_KEY"); val != "" {
		cfg.Security.PublicKey = val
	}
	if val := os.Getenv("GANYMEDE_SECURITY_TLS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Security.TLS.Enabled = b
		}
	}
	if val := os.Getenv("GANYMEDE_SECURITY_TLS_CERT_FILE"); val != "" {
		cfg.Security.TLS.CertFile = val
	}
	if val := os.Getenv("GANYMEDE_SECURITY_TLS_KEY_FILE"); val != "" {
		cfg.Security.TLS.KeyFile = val
	}

	// Journal overrides
	if val := os.Getenv("GANYMEDE_JOURNAL_DISABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Journal.Disabled = b
		}
	}
	if val := os.Getenv("GANYMEDE_JOURNAL_PATH"); val != "" {
		cfg.Journal.Path = val
	}
	if val := os.Getenv("GANYMEDE_JOURNAL_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Journal.Retention.Days = i
		}
	}
	if val := os.Getenv("GANYMEDE_JOURNAL_RETENTION_MAX_RECORDS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Journal.Retention.MaxRecords = i
		}
	}
	if val := os.Getenv("GANYMEDE_JOURNAL_RETENTION_PRUNE_SCHEDULE"); val != "" {
		cfg.Journal.Retention.PruneSchedule = val
	}

	// Telemetry overrides
	if val := os.Getenv("GANYMEDE_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_METRICS_DISABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Disabled = b
		}
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

// splitList splits a comma-separated environment value into a clean list.
func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
