package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	configPath := writeConfigFile(t, `
worker:
  id: "worker-7"
  external_url: "https://worker-7.fleet.example.com:3000"

backend:
  url: "http://127.0.0.1:5001"
  log_path: "/var/log/backend.log"
  allow_parallel: true
  max_concurrent: 4

admission:
  max_wait_time: "5m"
  default_cost: 100

routing:
  blocked_paths:
    - "/admin/*"
    - "/v?/internal"

security:
  unsecured: true

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Worker.ID != "worker-7" {
		t.Errorf("expected worker id %q, got %q", "worker-7", cfg.Worker.ID)
	}
	if cfg.Backend.URL != "http://127.0.0.1:5001" {
		t.Errorf("expected backend URL %q, got %q", "http://127.0.0.1:5001", cfg.Backend.URL)
	}
	if !cfg.Backend.AllowParallel {
		t.Error("expected allow_parallel to be true")
	}
	if cfg.Backend.MaxConcurrent != 4 {
		t.Errorf("expected max concurrent 4, got %d", cfg.Backend.MaxConcurrent)
	}
	if cfg.Admission.MaxWaitTime != 5*time.Minute {
		t.Errorf("expected max wait time %v, got %v", 5*time.Minute, cfg.Admission.MaxWaitTime)
	}
	if cfg.Admission.DefaultCost != 100 {
		t.Errorf("expected default cost 100, got %v", cfg.Admission.DefaultCost)
	}
	if len(cfg.Routing.BlockedPaths) != 2 {
		t.Fatalf("expected 2 blocked paths, got %d", len(cfg.Routing.BlockedPaths))
	}
	if cfg.Routing.BlockedPaths[0] != "/admin/*" {
		t.Errorf("expected blocked path %q, got %q", "/admin/*", cfg.Routing.BlockedPaths[0])
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Telemetry.Logging.Level)
	}

	// Defaults fill in everything the file omits.
	if cfg.Proxy.ListenAddress != DefaultListenAddress {
		t.Errorf("expected default listen address %q, got %q", DefaultListenAddress, cfg.Proxy.ListenAddress)
	}
	if cfg.Capacity.Benchmark != DefaultBenchmark {
		t.Errorf("expected default benchmark %q, got %q", DefaultBenchmark, cfg.Capacity.Benchmark)
	}
}

func TestLoadConfig_EmptyPathUsesDefaults(t *testing.T) {
	// Env-only workers ship no file at all. The defaults alone fail
	// validation (no signature key), so the minimal env is set.
	os.Setenv("GANYMEDE_SECURITY_UNSECURED", "true")
	defer os.Unsetenv("GANYMEDE_SECURITY_UNSECURED")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config without a file: %v", err)
	}

	if cfg.Backend.URL != DefaultBackendURL {
		t.Errorf("expected default backend URL %q, got %q", DefaultBackendURL, cfg.Backend.URL)
	}
	if cfg.Admission.MaxWaitTime != DefaultMaxWaitTime {
		t.Errorf("expected default max wait time %v, got %v", DefaultMaxWaitTime, cfg.Admission.MaxWaitTime)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
	if !strings.Contains(err.Error(), "no such file or directory") {
		t.Errorf("expected file not found error, got: %v", err)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	configPath := writeConfigFile(t, `
backend:
  url: "http://127.0.0.1:5001"
  invalid yaml here: [
`)

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	configPath := writeConfigFile(t, `
backend:
  url: "not a url"

security:
  unsecured: true

telemetry:
  logging:
    level: "invalid"
`)

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("expected ValidationError in error chain, got %T: %v", err, err)
	}
}

func TestLoadConfigWithEnvOverrides_BasicOverrides(t *testing.T) {
	configPath := writeConfigFile(t, `
backend:
  url: "http://127.0.0.1:5001"

security:
  unsecured: true

telemetry:
  logging:
    level: "info"
`)

	os.Setenv("GANYMEDE_BACKEND_URL", "http://127.0.0.1:9001")
	os.Setenv("GANYMEDE_PROXY_LISTEN_ADDRESS", "0.0.0.0:4000")
	os.Setenv("GANYMEDE_TELEMETRY_LOGGING_LEVEL", "debug")
	defer func() {
		os.Unsetenv("GANYMEDE_BACKEND_URL")
		os.Unsetenv("GANYMEDE_PROXY_LISTEN_ADDRESS")
		os.Unsetenv("GANYMEDE_TELEMETRY_LOGGING_LEVEL")
	}()

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Backend.URL != "http://127.0.0.1:9001" {
		t.Errorf("expected backend URL %q from env, got %q", "http://127.0.0.1:9001", cfg.Backend.URL)
	}
	if cfg.Proxy.ListenAddress != "0.0.0.0:4000" {
		t.Errorf("expected listen address %q from env, got %q", "0.0.0.0:4000", cfg.Proxy.ListenAddress)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q from env, got %q", "debug", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfigWithEnvOverrides_RequiredFieldFromEnvOnly(t *testing.T) {
	// The signature key may arrive purely through the environment; the
	// file alone would not validate.
	configPath := writeConfigFile(t, `
backend:
  url: "http://127.0.0.1:5001"
`)

	os.Setenv("GANYMEDE_SECURITY_PUBLIC_KEY", "-----BEGIN PUBLIC KEY-----\nMFk=\n-----END PUBLIC KEY-----")
	defer os.Unsetenv("GANYMEDE_SECURITY_PUBLIC_KEY")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config with key from env: %v", err)
	}
	if cfg.Security.PublicKey == "" {
		t.Error("expected public key to be set from env")
	}
}

func TestLoadConfigWithEnvOverrides_DurationParsing(t *testing.T) {
	configPath := writeConfigFile(t, `
backend:
  url: "http://127.0.0.1:5001"

security:
  unsecured: true

admission:
  max_wait_time: "10m"
`)

	os.Setenv("GANYMEDE_ADMISSION_MAX_WAIT_TIME", "45s")
	os.Setenv("GANYMEDE_CAPACITY_TIMEOUT", "5m")
	os.Setenv("GANYMEDE_READINESS_INITIAL_TIMEOUT", "1h")
	defer func() {
		os.Unsetenv("GANYMEDE_ADMISSION_MAX_WAIT_TIME")
		os.Unsetenv("GANYMEDE_CAPACITY_TIMEOUT")
		os.Unsetenv("GANYMEDE_READINESS_INITIAL_TIMEOUT")
	}()

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Admission.MaxWaitTime != 45*time.Second {
		t.Errorf("expected max wait time %v, got %v", 45*time.Second, cfg.Admission.MaxWaitTime)
	}
	if cfg.Capacity.Timeout != 5*time.Minute {
		t.Errorf("expected capacity timeout %v, got %v", 5*time.Minute, cfg.Capacity.Timeout)
	}
	if cfg.Readiness.InitialTimeout != time.Hour {
		t.Errorf("expected initial timeout %v, got %v", time.Hour, cfg.Readiness.InitialTimeout)
	}
}

func TestLoadConfigWithEnvOverrides_NumericParsing(t *testing.T) {
	configPath := writeConfigFile(t, `
backend:
  url: "http://127.0.0.1:5001"

security:
  unsecured: true
`)

	os.Setenv("GANYMEDE_CAPACITY_RUNS", "5")
	os.Setenv("GANYMEDE_ADMISSION_DEFAULT_COST", "250.5")
	os.Setenv("GANYMEDE_JOURNAL_RETENTION_MAX_RECORDS", "50000")
	defer func() {
		os.Unsetenv("GANYMEDE_CAPACITY_RUNS")
		os.Unsetenv("GANYMEDE_ADMISSION_DEFAULT_COST")
		os.Unsetenv("GANYMEDE_JOURNAL_RETENTION_MAX_RECORDS")
	}()

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Capacity.Runs != 5 {
		t.Errorf("expected runs 5, got %d", cfg.Capacity.Runs)
	}
	if cfg.Admission.DefaultCost != 250.5 {
		t.Errorf("expected default cost 250.5, got %v", cfg.Admission.DefaultCost)
	}
	if cfg.Journal.Retention.MaxRecords != 50000 {
		t.Errorf("expected max records 50000, got %d", cfg.Journal.Retention.MaxRecords)
	}
}

func TestLoadConfigWithEnvOverrides_BooleanParsing(t *testing.T) {
	configPath := writeConfigFile(t, `
backend:
  url: "http://127.0.0.1:5001"
  allow_parallel: false

security:
  unsecured: false
  public_key: "inline-key"
`)

	os.Setenv("GANYMEDE_BACKEND_ALLOW_PARALLEL", "true")
	os.Setenv("GANYMEDE_SECURITY_UNSECURED", "true")
	os.Setenv("GANYMEDE_JOURNAL_DISABLED", "true")
	defer func() {
		os.Unsetenv("GANYMEDE_BACKEND_ALLOW_PARALLEL")
		os.Unsetenv("GANYMEDE_SECURITY_UNSECURED")
		os.Unsetenv("GANYMEDE_JOURNAL_DISABLED")
	}()

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !cfg.Backend.AllowParallel {
		t.Error("expected allow_parallel to be true from env")
	}
	if !cfg.Security.Unsecured {
		t.Error("expected unsecured to be true from env")
	}
	if !cfg.Journal.Disabled {
		t.Error("expected journal disabled to be true from env")
	}
}

func TestLoadConfigWithEnvOverrides_ListParsing(t *testing.T) {
	configPath := writeConfigFile(t, `
backend:
  url: "http://127.0.0.1:5001"

security:
  unsecured: true
`)

	os.Setenv("GANYMEDE_ROUTING_BLOCKED_PATHS", "/admin/*, /internal/*,/debug/pprof/*")
	os.Setenv("GANYMEDE_READINESS_MARKERS_LOADED", "model loaded,server started")
	defer func() {
		os.Unsetenv("GANYMEDE_ROUTING_BLOCKED_PATHS")
		os.Unsetenv("GANYMEDE_READINESS_MARKERS_LOADED")
	}()

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	want := []string{"/admin/*", "/internal/*", "/debug/pprof/*"}
	if len(cfg.Routing.BlockedPaths) != len(want) {
		t.Fatalf("expected %d blocked paths, got %d", len(want), len(cfg.Routing.BlockedPaths))
	}
	for i, p := range want {
		if cfg.Routing.BlockedPaths[i] != p {
			t.Errorf("blocked path %d: expected %q, got %q", i, p, cfg.Routing.BlockedPaths[i])
		}
	}

	if len(cfg.Readiness.Markers.Loaded) != 2 {
		t.Fatalf("expected 2 loaded markers, got %d", len(cfg.Readiness.Markers.Loaded))
	}
	if cfg.Readiness.Markers.Loaded[1] != "server started" {
		t.Errorf("expected marker %q, got %q", "server started", cfg.Readiness.Markers.Loaded[1])
	}
}

func TestLoadConfigWithEnvOverrides_InvalidEnvValues(t *testing.T) {
	configPath := writeConfigFile(t, `
backend:
  url: "http://127.0.0.1:5001"

security:
  unsecured: true
`)

	// Unparseable numerics are ignored; an invalid enum still fails
	// validation.
	os.Setenv("GANYMEDE_CAPACITY_RUNS", "not-a-number")
	os.Setenv("GANYMEDE_TELEMETRY_LOGGING_LEVEL", "invalid-level")
	defer func() {
		os.Unsetenv("GANYMEDE_CAPACITY_RUNS")
		os.Unsetenv("GANYMEDE_TELEMETRY_LOGGING_LEVEL")
	}()

	_, err := LoadConfigWithEnvOverrides(configPath)
	if err == nil {
		t.Error("expected validation error for invalid env values")
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "/admin/*", []string{"/admin/*"}},
		{"multiple", "a,b,c", []string{"a", "b", "c"}},
		{"spaces trimmed", " a , b ,c ", []string{"a", "b", "c"}},
		{"empty entries dropped", "a,,b,", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitList(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d entries, got %d: %v", len(tt.want), len(got), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("entry %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}
