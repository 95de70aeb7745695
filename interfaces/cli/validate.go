package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	iconfig "github.com/felixgeelhaar/concept-analytics/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	strict     bool
	showSchema bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a server configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Required fields (name, version)
  - Cache, analytics and resilience limits
  - Storage driver and transport mode
  - Environment variable references (in strict mode)

Examples:
  # Validate a configuration file
  conceptd validate -c config.yaml

  # Strict validation (fail on missing env vars)
  conceptd validate -c config.yaml --strict

  # Show the JSON schema for configuration
  conceptd validate --schema`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showSchema {
				return a.showConfigSchema()
			}
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")
	cmd.Flags().BoolVar(&opts.showSchema, "schema", false, "Show JSON schema for configuration")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(opts *validateOptions) error {
	if a.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	cfg, err := a.loadConfig(opts.strict)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	fmt.Fprintf(a.stdout, "  Name: %s\n", cfg.Name)
	fmt.Fprintf(a.stdout, "  Version: %s\n", cfg.Version)

	fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	fmt.Fprintf(a.stdout, "  Cache TTL: %s\n", time.Duration(cfg.Cache.DefaultTTL))
	if cfg.Cache.MaxEntries > 0 {
		fmt.Fprintf(a.stdout, "  Cache capacity: %d entries\n", cfg.Cache.MaxEntries)
	} else {
		fmt.Fprintf(a.stdout, "  Cache capacity: unbounded\n")
	}
	for op, ttl := range cfg.Cache.TTLs {
		fmt.Fprintf(a.stdout, "    - %s TTL: %s\n", op, time.Duration(ttl))
	}
	fmt.Fprintf(a.stdout, "  Storage: %s\n", cfg.Storage.Driver)
	if cfg.Storage.SeedFile != "" {
		fmt.Fprintf(a.stdout, "  Seed file: %s (watch=%t)\n", cfg.Storage.SeedFile, cfg.Storage.Watch)
	}
	fmt.Fprintf(a.stdout, "  Transport: %s\n", cfg.Transport.Mode)

	if rl := cfg.Resilience.RateLimit; rl.Enabled {
		fmt.Fprintf(a.stdout, "  Rate limiting: enabled (rate=%d, burst=%d)\n", rl.Rate, rl.Burst)
	}
	if cfg.Observability.Tracing.Enabled {
		fmt.Fprintf(a.stdout, "  Tracing: %s\n", cfg.Observability.Tracing.Exporter)
	}

	return nil
}

// showConfigSchema displays the JSON schema for configuration.
func (a *App) showConfigSchema() error {
	schemaJSON, err := iconfig.SchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	fmt.Fprintln(a.stdout, schemaJSON)
	return nil
}
