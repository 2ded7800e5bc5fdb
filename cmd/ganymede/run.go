package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/admission"
	"mercator-hq/ganymede/pkg/capacity"
	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/gate"
	"mercator-hq/ganymede/pkg/journal"
	"mercator-hq/ganymede/pkg/proxy"
	"mercator-hq/ganymede/pkg/readiness"
	"mercator-hq/ganymede/pkg/report"
	"mercator-hq/ganymede/pkg/security/signature"
	"mercator-hq/ganymede/pkg/telemetry/logging"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
	"mercator-hq/ganymede/pkg/telemetry/tracing"
	"mercator-hq/ganymede/pkg/workload"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Ganymede worker",
	Long: `Start the Ganymede worker with the specified configuration.

The worker waits for the backend to finish loading its model, calibrates
backend capacity, and then proxies inference requests through admission
control while reporting load to the fleet controller.

Examples:
  # Start with default config
  ganymede run

  # Start with custom config
  ganymede run --config /etc/ganymede/config.yaml

  # Override listen address
  ganymede run --listen 0.0.0.0:8080

  # Validate config without starting the worker
  ganymede run --dry-run`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the worker")
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			for _, fieldErr := range verr.Errors {
				fmt.Printf("✗ %s: %s\n", fieldErr.Field, fieldErr.Message)
			}
		}
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	} else if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	// Initialize logging based on config
	if _, err := logging.Setup(cfg.Telemetry.Logging); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	// Print startup banner
	printBanner(cfg)

	// Everything below derives its lifetime from the signal context, so a
	// SIGTERM during the readiness wait unwinds the same way it does while
	// serving.
	ctx := cli.SetupSignalHandler()

	tracer, err := tracing.New(cfg.Telemetry.Tracing)
	if err != nil {
		return cli.NewConfigError("telemetry.tracing", err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()
	if tracer.Enabled() {
		fmt.Println("✓ Tracing enabled")
	}

	// Open the journal. The worker runs without history if the volume's
	// database is unusable.
	var jnl *journal.Journal
	if !cfg.Journal.Disabled {
		slog.Info("opening worker journal", "path", cfg.Journal.Path)
		j, err := journal.Open(cfg.Journal)
		if err != nil {
			slog.Warn("journal unavailable, continuing without history", "error", err)
		} else {
			jnl = j
			defer jnl.Close()

			if err := jnl.RecordStarted(ctx); err != nil {
				slog.Warn("failed to record start event", "error", err)
			}

			pruner := journal.NewPruner(jnl, cfg.Journal.Retention)
			if err := pruner.Start(ctx); err != nil {
				slog.Warn("failed to start journal pruner", "error", err)
			} else {
				defer pruner.Stop()
			}
			fmt.Println("✓ Journal opened")
		}
	}

	var collector *metrics.Collector
	if !cfg.Telemetry.Metrics.Disabled {
		collector = metrics.NewCollector(cfg.Telemetry.Metrics, nil)
	}

	// Admission pipeline: ledger, calibrated capacity, controller, gate.
	slog.Info("initializing admission pipeline")
	ledger := workload.NewLedger()

	bench, err := capacity.NewBenchmark(cfg.Capacity, cfg.Backend.URL)
	if err != nil {
		return cli.NewConfigError("capacity", err.Error())
	}

	recorders := make([]capacity.Recorder, 0, 2)
	if collector != nil {
		recorders = append(recorders, collector)
	}
	if jnl != nil {
		recorders = append(recorders, jnl)
	}
	estimator := capacity.NewEstimator(bench, cfg.Capacity.Timeout, capacity.MultiRecorder(recorders...))

	ctrl := admission.New(ledger, estimator, cfg.Admission)
	backendGate := gate.FromConfig(cfg.Backend)
	collector.RegisterSources(ledger, estimator, backendGate)

	blocklist, err := proxy.NewBlocklist(cfg.Routing.BlockedPaths)
	if err != nil {
		return cli.NewConfigError("routing.blocked_paths", err.Error())
	}
	fwd, err := proxy.NewForwarder(cfg.Backend)
	if err != nil {
		return cli.NewConfigError("backend.url", err.Error())
	}
	pipeline := proxy.NewHandler(ctrl, backendGate, blocklist, fwd, collector)

	var verifier *signature.Verifier
	if cfg.Security.Unsecured {
		slog.Warn("running unsecured, request signatures are not verified")
	} else {
		v, err := signature.NewVerifier(cfg.Security)
		if err != nil {
			return cli.NewConfigError("security", err.Error())
		}
		verifier = v
	}

	// Status reporting to the fleet controller.
	disk := report.NewDiskProbe(cfg.Worker.DataDir, cfg.Reporting.DiskUsageInterval)
	builder := report.NewBuilder(cfg.Worker, cfg.Reporting, cfg.Admission.MaxWaitTime, ledger, estimator, disk)
	reporter := report.NewReporter(builder, cfg.Reporting, collector)

	ledger.OnChange(reporter.Notify)
	estimator.OnUpdate(func(workload.CapacityState) { reporter.Notify() })

	// The ops listener comes up before the backend is ready so the platform
	// can probe /readyz during model load.
	var ops *proxy.OpsServer
	if !cfg.Telemetry.Metrics.Disabled {
		ops = proxy.NewOpsServer(cfg.Telemetry.Metrics, collector.Handler(), builder, estimator, proxy.VersionInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		})
		if err := ops.Start(); err != nil {
			return terminate(jnl, builder, reporter, err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := ops.Shutdown(shutdownCtx); err != nil {
				slog.Warn("ops server shutdown failed", "error", err)
			}
		}()
		fmt.Printf("✓ Ops server listening on %s\n", ops.Addr())
	}

	// Wait for the backend to load its model.
	source, err := readiness.NewSource(cfg.Readiness, cfg.Backend)
	if err != nil {
		return cli.NewConfigError("readiness", err.Error())
	}
	var history readiness.History
	if jnl != nil {
		history = jnl
	}
	mode := readiness.ResolveMode(ctx, cfg.Readiness, history)
	monitor := readiness.NewMonitor(source, cfg.Readiness)

	fmt.Printf("Waiting for backend (%s start)...\n", mode)
	result, err := monitor.Await(ctx, mode)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nShutdown requested while waiting for backend")
			return nil
		}
		fmt.Printf("✗ Backend failed to become ready: %v\n", err)
		return terminate(jnl, builder, reporter, err)
	}

	fmt.Printf("✓ Backend ready in %s (%s source)\n", result.TimeToReady.Round(time.Second), result.Source)

	builder.SetLoadTime(result.TimeToReady)
	if jnl != nil {
		if err := jnl.RecordReady(ctx, result.TimeToReady); err != nil {
			slog.Warn("failed to record ready event", "error", err)
		}
	}
	if ops != nil {
		ops.MarkBackendReady()
	}

	reporter.Start(ctx)
	defer reporter.Stop()

	// First calibration runs synchronously so the worker advertises real
	// capacity from its first report. A failure here is not fatal: admission
	// answers 503 until a later calibration succeeds.
	fmt.Println("Calibrating capacity...")
	state, err := estimator.Calibrate(ctx)
	if err != nil {
		slog.Warn("initial calibration failed, admission refuses work until a calibration succeeds",
			"error", err,
			"retry_interval", cfg.Capacity.RetryInterval,
		)
		go func() {
			if err := estimator.EnsureCalibrated(ctx, cfg.Capacity.RetryInterval); err != nil {
				slog.Warn("background calibration stopped", "error", err)
			}
		}()
	} else {
		fmt.Printf("✓ Calibrated: %.2f units/s (%s)\n", state.MaxThroughput, state.Source)
	}

	scheduler := capacity.NewScheduler(estimator, cfg.Capacity.RecalibrateSchedule)
	if err := scheduler.Start(ctx); err != nil {
		slog.Warn("failed to start recalibration scheduler", "error", err)
	} else {
		defer scheduler.Stop()
	}

	// Create the proxy server and serve until a signal arrives.
	srv, err := proxy.NewServer(cfg.Proxy, cfg.Security, pipeline, verifier, collector)
	if err != nil {
		return terminate(jnl, builder, reporter, err)
	}

	fmt.Println()
	fmt.Printf("✓ Worker %s serving on %s\n", builder.WorkerID(), cfg.Proxy.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return terminate(jnl, builder, reporter, err)
	}

	fmt.Println("✓ Worker stopped")
	return nil
}

// terminate records a fatal error in the journal, pushes a terminal report to
// the controller, and wraps the cause for the CLI exit path. The controller
// must hear about the failure before the process exits or it will keep
// routing work here until the health checks age out.
func terminate(jnl *journal.Journal, builder *report.Builder, reporter *report.Reporter, cause error) error {
	slog.Error("worker terminating", "error", cause)

	if jnl != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jnl.RecordTerminal(ctx, cause.Error()); err != nil {
			slog.Warn("failed to record terminal state", "error", err)
		}
	}
	if builder != nil {
		builder.SetError(cause.Error())
	}
	if reporter != nil {
		reporter.SendTerminal(cause.Error())
	}
	return cli.NewCommandError("run", cause)
}

func printBanner(cfg *config.Config) {
	fmt.Printf("Ganymede v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	slog.Debug("backend", "url", cfg.Backend.URL, "health_path", cfg.Backend.HealthPath)
	slog.Debug("admission", "max_wait", cfg.Admission.MaxWaitTime, "default_cost", cfg.Admission.DefaultCost)
	slog.Debug("capacity", "benchmark", cfg.Capacity.Benchmark, "recalibrate", cfg.Capacity.RecalibrateSchedule)
	if !cfg.Journal.Disabled {
		slog.Debug("journal", "path", cfg.Journal.Path)
	}
}
