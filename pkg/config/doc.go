// Package config provides configuration management for Mercator Ganymede.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with comprehensive validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// The path may be empty, in which case the worker runs on defaults plus
// environment overrides. Fleet schedulers typically inject everything
// through the environment and ship no file at all.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention GANYMEDE_SECTION_FIELD.
// For example:
//
//   - GANYMEDE_BACKEND_URL overrides backend.url
//   - GANYMEDE_ADMISSION_MAX_WAIT_TIME overrides admission.max_wait_time
//   - GANYMEDE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// For worker-wide configuration access, use the singleton pattern:
//
//	// At worker startup
//	if err := config.Initialize("config.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Anywhere in the worker
//	cfg := config.GetConfig()
//	fmt.Println(cfg.Proxy.ListenAddress)
//
// For testing, prefer dependency injection with explicit Config instances
// rather than the global singleton.
//
// # Validation
//
// All configuration is validated automatically during loading. Validation includes:
//
//   - Required field checks (e.g., backend URL, signature public key)
//   - Range validation (e.g., sample ratio must be 0.0-1.0)
//   - Format validation (e.g., valid URL format, glob patterns compile)
//   - Logical validation (e.g., log readiness source requires a log path)
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - backend.url: backend URL is required
//	  - readiness.markers.loaded: at least one loaded marker is required when readiness source is 'log'
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	worker:
//	  external_url: "https://worker-7.fleet.example.com:3000"
//
//	backend:
//	  url: "http://127.0.0.1:8000"
//	  log_path: "/var/log/backend.log"
//
//	admission:
//	  max_wait_time: 10m
//	  default_cost: 100
//
//	routing:
//	  blocked_paths:
//	    - "/admin/*"
//	    - "/v?/internal"
//
//	security:
//	  public_key_file: "/etc/ganymede/report.pub"
//
// # Thread Safety
//
// All configuration access is thread-safe. The singleton pattern uses read-write
// locks to allow concurrent reads while protecting against concurrent writes.
package config
