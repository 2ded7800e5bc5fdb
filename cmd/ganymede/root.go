package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ganymede",
	Short: "Ganymede - workload-aware proxy for serverless GPU workers",
	Long: `Ganymede is the worker-side proxy of a serverless GPU fleet. It fronts a
single model-serving backend and decides, request by request, whether the
backend can take more work.

It provides:
  - Admission control from declared request cost and calibrated throughput
  - Throughput calibration benchmarks run against the live backend
  - Readiness detection for backends with long model loads
  - Request-signature verification for fleet-router traffic
  - Periodic load and capacity reports to the fleet autoscaler`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// The completion command below replaces cobra's built-in one.
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
