package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check a worker configuration file without starting the worker.

The configuration is loaded exactly the way run loads it: YAML file,
defaults, then GANYMEDE_* environment overrides. Every violation is
reported, not just the first one.

Examples:
  # Validate the default config.yaml
  ganymede validate

  # Validate a specific file
  ganymede validate --config /etc/ganymede/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("Configuration %s is invalid:\n", cfgFile)
			for _, fieldErr := range verr.Errors {
				fmt.Printf("  ✗ %s: %s\n", fieldErr.Field, fieldErr.Message)
			}
			return cli.NewConfigError("", fmt.Sprintf("%d validation errors", len(verr.Errors)))
		}
		return cli.NewConfigError("", err.Error())
	}

	fmt.Println("✓ Configuration valid")
	fmt.Println()
	fmt.Printf("Proxy:      %s\n", cfg.Proxy.ListenAddress)
	fmt.Printf("Backend:    %s\n", cfg.Backend.URL)
	fmt.Printf("Benchmark:  %s\n", cfg.Capacity.Benchmark)
	fmt.Printf("Readiness:  source=%s start=%s\n", cfg.Readiness.Source, cfg.Readiness.Start)
	if cfg.Journal.Disabled {
		fmt.Println("Journal:    disabled")
	} else {
		fmt.Printf("Journal:    %s\n", cfg.Journal.Path)
	}
	if cfg.Reporting.URL == "" {
		fmt.Println("Reporting:  no endpoint (reports are logged locally)")
	} else {
		fmt.Printf("Reporting:  %s every %s\n", cfg.Reporting.URL, cfg.Reporting.Interval)
	}

	if cfg.Security.Unsecured {
		fmt.Println()
		fmt.Println("Warning: security.unsecured is set; request signatures will not be verified")
	}

	return nil
}
