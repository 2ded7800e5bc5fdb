package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "backend.url").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateBackend(&cfg.Backend)...)
	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateAdmission(&cfg.Admission)...)
	errs = append(errs, validateCapacity(&cfg.Capacity)...)
	errs = append(errs, validateReadiness(cfg)...)
	errs = append(errs, validateRouting(&cfg.Routing)...)
	errs = append(errs, validateReporting(&cfg.Reporting)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)
	errs = append(errs, validateJournal(&cfg.Journal)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateBackend validates backend configuration.
func validateBackend(cfg *BackendConfig) []FieldError {
	var errs []FieldError

	if cfg.URL == "" {
		errs = append(errs, FieldError{
			Field:   "backend.url",
			Message: "backend URL is required",
		})
	} else if u, err := url.Parse(cfg.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "backend.url",
			Message: fmt.Sprintf("invalid URL %q: scheme and host are required", cfg.URL),
		})
	}

	if cfg.HealthPath != "" && cfg.HealthPath[0] != '/' {
		errs = append(errs, FieldError{
			Field:   "backend.health_path",
			Message: "health path must start with /",
		})
	}
	if cfg.MaxConcurrent < 0 {
		errs = append(errs, FieldError{
			Field:   "backend.max_concurrent",
			Message: "max concurrent must be non-negative",
		})
	}
	if cfg.RequestTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "backend.request_timeout",
			Message: "request timeout must be positive",
		})
	}
	if cfg.Pool.MaxIdleConns < 0 || cfg.Pool.MaxIdleConnsPerHost < 0 || cfg.Pool.MaxConnsPerHost < 0 {
		errs = append(errs, FieldError{
			Field:   "backend.pool",
			Message: "connection pool limits must be non-negative",
		})
	}

	return errs
}

// validateProxy validates proxy listener configuration.
func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "proxy.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadHeaderTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.read_header_timeout",
			Message: "read header timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "proxy.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	return errs
}

// validateAdmission validates admission-control configuration.
func validateAdmission(cfg *AdmissionConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxWaitTime <= 0 {
		errs = append(errs, FieldError{
			Field:   "admission.max_wait_time",
			Message: "max wait time must be positive",
		})
	}
	if cfg.DefaultCost < 0 {
		errs = append(errs, FieldError{
			Field:   "admission.default_cost",
			Message: "default cost must be non-negative",
		})
	}

	return errs
}

// validateCapacity validates calibration configuration.
func validateCapacity(cfg *CapacityConfig) []FieldError {
	var errs []FieldError

	if cfg.Benchmark == "" {
		errs = append(errs, FieldError{
			Field:   "capacity.benchmark",
			Message: "benchmark name is required",
		})
	}
	if cfg.Benchmark == "fixed" && cfg.FixedThroughput <= 0 {
		errs = append(errs, FieldError{
			Field:   "capacity.fixed_throughput",
			Message: "fixed throughput must be positive when benchmark is 'fixed'",
		})
	}
	if cfg.Endpoint != "" && cfg.Endpoint[0] != '/' {
		errs = append(errs, FieldError{
			Field:   "capacity.endpoint",
			Message: "endpoint must start with /",
		})
	}
	if cfg.MaxTokens < 1 {
		errs = append(errs, FieldError{
			Field:   "capacity.max_tokens",
			Message: "max tokens must be at least 1",
		})
	}
	if cfg.Runs < 1 {
		errs = append(errs, FieldError{
			Field:   "capacity.runs",
			Message: "runs must be at least 1",
		})
	}
	if cfg.Concurrency < 1 {
		errs = append(errs, FieldError{
			Field:   "capacity.concurrency",
			Message: "concurrency must be at least 1",
		})
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "capacity.timeout",
			Message: "timeout must be positive",
		})
	}
	if cfg.RetryInterval <= 0 {
		errs = append(errs, FieldError{
			Field:   "capacity.retry_interval",
			Message: "retry interval must be positive",
		})
	}

	return errs
}

// validateReadiness validates readiness configuration. It needs the whole
// config because the log source depends on backend.log_path.
func validateReadiness(cfg *Config) []FieldError {
	var errs []FieldError
	r := &cfg.Readiness

	validSources := map[string]bool{"auto": true, "log": true, "poll": true}
	if !validSources[r.Source] {
		errs = append(errs, FieldError{
			Field:   "readiness.source",
			Message: fmt.Sprintf("invalid source %q: must be 'auto', 'log', or 'poll'", r.Source),
		})
	}

	validStarts := map[string]bool{"auto": true, "initial": true, "resume": true}
	if !validStarts[r.Start] {
		errs = append(errs, FieldError{
			Field:   "readiness.start",
			Message: fmt.Sprintf("invalid start %q: must be 'auto', 'initial', or 'resume'", r.Start),
		})
	}

	if r.InitialTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "readiness.initial_timeout",
			Message: "initial timeout must be positive",
		})
	}
	if r.ResumeTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "readiness.resume_timeout",
			Message: "resume timeout must be positive",
		})
	}
	if r.PollInterval <= 0 {
		errs = append(errs, FieldError{
			Field:   "readiness.poll_interval",
			Message: "poll interval must be positive",
		})
	}

	if r.Source == "log" {
		if cfg.Backend.LogPath == "" {
			errs = append(errs, FieldError{
				Field:   "backend.log_path",
				Message: "log path is required when readiness source is 'log'",
			})
		}
		if len(r.Markers.Loaded) == 0 {
			errs = append(errs, FieldError{
				Field:   "readiness.markers.loaded",
				Message: "at least one loaded marker is required when readiness source is 'log'",
			})
		}
	}

	return errs
}

// validateRouting validates the blocked-path patterns compile.
func validateRouting(cfg *RoutingConfig) []FieldError {
	var errs []FieldError

	for i, pattern := range cfg.BlockedPaths {
		if pattern == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("routing.blocked_paths[%d]", i),
				Message: "pattern must not be empty",
			})
			continue
		}
		if _, err := glob.Compile(pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("routing.blocked_paths[%d]", i),
				Message: fmt.Sprintf("invalid glob pattern %q: %v", pattern, err),
			})
		}
	}

	return errs
}

// validateReporting validates reporting configuration.
func validateReporting(cfg *ReportingConfig) []FieldError {
	var errs []FieldError

	if cfg.URL != "" {
		if u, err := url.Parse(cfg.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   "reporting.url",
				Message: fmt.Sprintf("invalid URL %q: scheme and host are required", cfg.URL),
			})
		}
	}
	if cfg.Interval <= 0 {
		errs = append(errs, FieldError{
			Field:   "reporting.interval",
			Message: "interval must be positive",
		})
	}
	if cfg.SendTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "reporting.send_timeout",
			Message: "send timeout must be positive",
		})
	}
	if cfg.DiskUsageInterval <= 0 {
		errs = append(errs, FieldError{
			Field:   "reporting.disk_usage_interval",
			Message: "disk usage interval must be positive",
		})
	}

	return errs
}

// validateSecurity validates security configuration.
func validateSecurity(cfg *SecurityConfig) []FieldError {
	var errs []FieldError

	if !cfg.Unsecured && cfg.PublicKeyFile == "" && cfg.PublicKey == "" {
		errs = append(errs, FieldError{
			Field:   "security.public_key_file",
			Message: "a signature public key is required unless security.unsecured is set",
		})
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{
				Field:   "security.tls.cert_file",
				Message: "TLS certificate file is required when TLS is enabled",
			})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{
				Field:   "security.tls.key_file",
				Message: "TLS key file is required when TLS is enabled",
			})
		}
		switch cfg.TLS.MinVersion {
		case "", "1.2", "1.3":
		default:
			errs = append(errs, FieldError{
				Field:   "security.tls.min_version",
				Message: fmt.Sprintf("must be \"1.2\" or \"1.3\", got %q", cfg.TLS.MinVersion),
			})
		}
		if cfg.TLS.ReloadInterval < 0 {
			errs = append(errs, FieldError{
				Field:   "security.tls.reload_interval",
				Message: "reload interval must be non-negative",
			})
		}
	}

	return errs
}

// validateJournal validates journal configuration.
func validateJournal(cfg *JournalConfig) []FieldError {
	var errs []FieldError

	if cfg.Disabled {
		return errs
	}

	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "journal.path",
			Message: "journal path is required unless journal.disabled is set",
		})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "journal.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "journal.retention.max_records",
			Message: "retention max records must be non-negative",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	validOutputs := map[string]bool{"stderr": true, "stdout": true}
	if !validOutputs[cfg.Logging.Output] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.output",
			Message: fmt.Sprintf("invalid logging output %q: must be 'stderr' or 'stdout'", cfg.Logging.Output),
		})
	}

	if !cfg.Metrics.Disabled {
		if cfg.Metrics.ListenAddress == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.listen_address",
				Message: "metrics listen address is required unless metrics are disabled",
			})
		}
		if cfg.Metrics.Path == "" || cfg.Metrics.Path[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with /",
			})
		}
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}
