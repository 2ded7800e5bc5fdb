// Package telemetry groups the worker's observability packages.
//
// # Components
//
//   - logging: structured logging on log/slog, one component-tagged
//     logger per subsystem
//   - metrics: the Prometheus registry, event counters, and the
//     scrape-time snapshot collector
//   - tracing: OpenTelemetry spans over OTLP gRPC with W3C trace
//     context propagation
//
// The packages are independent: each is constructed from its own
// section of config.TelemetryConfig and handed to the components that
// use it. Liveness and readiness probes are not part of this tree; they
// are served by the ops listener in pkg/proxy, next to /metrics.
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	collector.RegisterSources(ledger, estimator, gate)
//
//	tracer, err := tracing.New(cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
package telemetry
