package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/capacity"
	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/telemetry/logging"
)

var benchmarkFlags struct {
	samples int
	timeout time.Duration
	format  string
}

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Run the calibration benchmark against the backend",
	Long: `Run the configured calibration benchmark against a live backend and
print the measured throughput without starting the worker.

Each sample is one full calibration (capacity.runs benchmark requests),
so the figures match what the worker would report after calibrating.
The backend must already be up and ready.

Examples:
  # Single calibration with the default config
  ganymede benchmark

  # Three samples to gauge variance
  ganymede benchmark --samples 3

  # Machine-readable output
  ganymede benchmark --samples 5 --format json`,
	RunE: runBenchmark,
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)

	benchmarkCmd.Flags().IntVarP(&benchmarkFlags.samples, "samples", "n", 1, "number of calibration samples to collect")
	benchmarkCmd.Flags().DurationVar(&benchmarkFlags.timeout, "timeout", 0, "per-sample timeout (default: capacity.timeout)")
	benchmarkCmd.Flags().StringVarP(&benchmarkFlags.format, "format", "f", "text", "output format (text, json)")
}

// sampleResult is the outcome of one calibration sample.
type sampleResult struct {
	Throughput float64 `json:"throughput"`
	ElapsedMS  int64   `json:"elapsed_ms"`
	Error      string  `json:"error,omitempty"`
}

// benchmarkReport aggregates all samples for output.
type benchmarkReport struct {
	Benchmark  string         `json:"benchmark"`
	BackendURL string         `json:"backend_url"`
	Samples    int            `json:"samples"`
	Succeeded  int            `json:"succeeded"`
	Mean       float64        `json:"mean_throughput"`
	Min        float64        `json:"min_throughput"`
	Max        float64        `json:"max_throughput"`
	Results    []sampleResult `json:"results"`
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	if benchmarkFlags.samples < 1 {
		return cli.NewConfigError("samples", "must be at least 1")
	}

	// Keep component logs out of the progress display.
	logCfg := cfg.Telemetry.Logging
	logCfg.Level = "warn"
	if verbose {
		logCfg.Level = "debug"
	}
	if _, err := logging.Setup(logCfg); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	bench, err := capacity.NewBenchmark(cfg.Capacity, cfg.Backend.URL)
	if err != nil {
		return cli.NewConfigError("capacity", err.Error())
	}

	timeout := benchmarkFlags.timeout
	if timeout <= 0 {
		timeout = cfg.Capacity.Timeout
	}

	text := benchmarkFlags.format != "json"
	if text {
		fmt.Println("Ganymede Calibration Benchmark")
		fmt.Println("==============================")
		fmt.Printf("Backend:      %s\n", cfg.Backend.URL)
		fmt.Printf("Benchmark:    %s\n", bench.Name())
		fmt.Printf("Runs/sample:  %d\n", cfg.Capacity.Runs)
		fmt.Printf("Samples:      %d\n", benchmarkFlags.samples)
		fmt.Println()
	}

	ctx := cli.SetupSignalHandler()

	var progress cli.ProgressReporter
	if text {
		progress = cli.NewProgressReporter(os.Stdout)
		progress.Start(benchmarkFlags.samples)
	}

	results := collectSamples(ctx, bench, benchmarkFlags.samples, timeout, progress)

	if progress != nil {
		progress.Finish()
	}

	report := summarize(results)
	report.Benchmark = bench.Name()
	report.BackendURL = cfg.Backend.URL

	if text {
		displayReport(report)
	} else {
		formatter := cli.NewFormatter(cli.OutputFormat(benchmarkFlags.format))
		if err := formatter.FormatTo(os.Stdout, report); err != nil {
			return cli.NewCommandError("benchmark", err)
		}
	}

	if report.Succeeded == 0 {
		return cli.NewCommandError("benchmark", errors.New("all samples failed"))
	}
	return nil
}

// collectSamples runs the benchmark once per sample, each under its own
// timeout. A cancelled context stops the loop; completed samples are kept.
func collectSamples(ctx context.Context, bench capacity.Benchmark, samples int, timeout time.Duration, progress cli.ProgressReporter) []sampleResult {
	results := make([]sampleResult, 0, samples)
	for i := 0; i < samples; i++ {
		if ctx.Err() != nil {
			break
		}

		sctx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			sctx, cancel = context.WithTimeout(ctx, timeout)
		}

		start := time.Now()
		throughput, err := bench.Run(sctx)
		elapsed := time.Since(start)
		if cancel != nil {
			cancel()
		}

		result := sampleResult{ElapsedMS: elapsed.Milliseconds()}
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Throughput = throughput
		}
		results = append(results, result)

		if progress != nil {
			progress.Update(i + 1)
		}
	}
	return results
}

// summarize computes aggregate throughput figures over the successful samples.
func summarize(results []sampleResult) benchmarkReport {
	report := benchmarkReport{
		Samples: len(results),
		Results: results,
	}

	var sum float64
	for _, r := range results {
		if r.Error != "" {
			continue
		}
		if report.Succeeded == 0 || r.Throughput < report.Min {
			report.Min = r.Throughput
		}
		if r.Throughput > report.Max {
			report.Max = r.Throughput
		}
		sum += r.Throughput
		report.Succeeded++
	}
	if report.Succeeded > 0 {
		report.Mean = sum / float64(report.Succeeded)
	}
	return report
}

func displayReport(report benchmarkReport) {
	fmt.Println("\nResults:")
	fmt.Println("--------")
	for i, r := range report.Results {
		if r.Error != "" {
			fmt.Printf("Sample %d: failed: %s\n", i+1, r.Error)
			continue
		}
		fmt.Printf("Sample %d: %.2f units/s in %.1fs\n", i+1, r.Throughput, float64(r.ElapsedMS)/1000.0)
	}

	fmt.Println()
	if report.Succeeded == 0 {
		fmt.Println("✗ No successful samples")
		return
	}
	fmt.Printf("Mean throughput:  %.2f units/s\n", report.Mean)
	fmt.Printf("Min / Max:        %.2f / %.2f units/s\n", report.Min, report.Max)
	fmt.Printf("Succeeded:        %d/%d\n", report.Succeeded, report.Samples)
}
