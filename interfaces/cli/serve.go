package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/concept-analytics/application"
	"github.com/felixgeelhaar/concept-analytics/domain/config"
)

// serveOptions holds options for the serve command.
type serveOptions struct {
	transport string
	addr      string
	seedFile  string
	watch     bool
}

// newServeCmd creates the serve command.
func (a *App) newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analytics tools over MCP",
		Long: `Serve the analytics tools to MCP clients over stdio or HTTP.

Logs go to stderr; with the stdio transport stdout carries protocol frames.

Examples:
  # Serve over stdio with the bundled sample dataset
  conceptd serve

  # Serve over HTTP with a custom dataset that reloads on change
  conceptd serve --transport http --addr :8080 --seed data.yaml --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "Transport override (stdio, http)")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address for http")
	cmd.Flags().StringVar(&opts.seedFile, "seed", "", "Dataset file to load at startup")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload the dataset file when it changes")

	return cmd
}

func (a *App) serve(ctx context.Context, opts *serveOptions) error {
	cfg, err := a.loadConfig(false)
	if err != nil {
		return err
	}
	if opts.transport != "" {
		cfg.Transport.Mode = opts.transport
	}
	if opts.addr != "" {
		cfg.Transport.Addr = opts.addr
	}
	if opts.seedFile != "" {
		cfg.Storage.SeedFile = opts.seedFile
	}
	if opts.watch {
		cfg.Storage.Watch = true
	}
	if errs := config.NewValidator().Validate(cfg); errs.HasErrors() {
		return errors.Join(config.ErrValidationFailed, errs)
	}

	app, err := application.NewApp(ctx, *cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Close(shutdownCtx)
	}()

	if err := app.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openApp loads the configuration and builds an application for one-shot
// commands. The caller closes it.
func (a *App) openApp(ctx context.Context) (*application.App, error) {
	cfg, err := a.loadConfig(false)
	if err != nil {
		return nil, err
	}
	return application.NewApp(ctx, *cfg)
}
