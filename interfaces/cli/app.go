// Package cli provides the command-line interface of the concept analytics
// server.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	conceptanalytics "github.com/felixgeelhaar/concept-analytics"
	"github.com/felixgeelhaar/concept-analytics/domain/config"
	iconfig "github.com/felixgeelhaar/concept-analytics/infrastructure/config"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
)

// Version information, overridable at build time.
var (
	Version   = conceptanalytics.Version
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	logFormat  string
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "conceptd",
		Short: "Cached analytics over a concept graph",
		Long: `conceptd serves analytic tools over a concept graph: similarity search,
pattern analysis, semantic clustering and temporal activity. Results are
memoized in a TTL cache with single-flight deduplication, and the server
reports its own cache and latency statistics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := app.root.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "", "Path to configuration file (default: built-in defaults)")
	flags.StringVar(&app.logLevel, "log-level", "", "Log level override (trace, debug, info, warn, error)")
	flags.StringVar(&app.logFormat, "log-format", "", "Log format override (json, console)")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newValidateCmd(),
		app.newExportSchemaCmd(),
		app.newServeCmd(),
		app.newCallCmd(),
		app.newToolsCmd(),
		app.newBenchCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// loadConfig reads the configuration file, or the defaults when none is
// given, and initializes logging from it.
func (a *App) loadConfig(strict bool) (*config.ServerConfig, error) {
	loader := iconfig.NewLoaderWithOptions(
		iconfig.WithValidation(true),
		iconfig.WithStrictEnv(strict),
	)
	cfg, err := loader.LoadOrDefault(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
	return cfg, nil
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "conceptd version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
