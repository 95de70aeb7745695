package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/concept"
	"github.com/felixgeelhaar/concept-analytics/domain/config"
	"github.com/felixgeelhaar/concept-analytics/domain/middleware"
	icache "github.com/felixgeelhaar/concept-analytics/infrastructure/cache"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/dataset"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/mcp"
	inframw "github.com/felixgeelhaar/concept-analytics/infrastructure/middleware"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/observability"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/performance"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/resilience"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/telemetry"
)

// App is a fully wired analytics server.
type App struct {
	config        config.ServerConfig
	service       *Service
	server        *mcp.Server
	observability *observability.Provider
	janitor       *icache.Janitor
	watcher       *dataset.Watcher
}

// NewApp builds the server described by cfg: store, cache, resilience,
// service, tools, middleware and background workers.
func NewApp(ctx context.Context, cfg config.ServerConfig) (*App, error) {
	obs, err := observability.New(ctx, observability.FromServerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}

	var metrics telemetry.Metrics = telemetry.NoopMetricsProvider{}
	if cfg.Observability.Metrics.Enabled {
		mp := telemetry.NewMetricsProvider(telemetry.MetricsConfig{Provider: obs.MeterProvider()})
		if err := mp.Error(); err != nil {
			return nil, errors.Join(fmt.Errorf("metrics: %w", err), obs.Shutdown(ctx))
		}
		metrics = mp
	}

	c := NewCache(cfg.Cache, icache.WithRecorder(metrics))

	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("storage: %w", err), obs.Shutdown(ctx))
	}
	if err := seed(ctx, store, cfg.Storage); err != nil {
		return nil, errors.Join(err, store.Close(), obs.Shutdown(ctx))
	}

	monitor := performance.NewMonitor(performance.WithCache(c))
	svc, err := NewService(ctx, ServiceConfig{
		Store:     store,
		Cache:     c,
		Runner:    NewExecutor(cfg.Resilience),
		Monitor:   monitor,
		Metrics:   metrics,
		Analytics: cfg.Analytics,
	})
	if err != nil {
		return nil, errors.Join(err, store.Close(), obs.Shutdown(ctx))
	}

	registry, err := NewToolRegistry(svc)
	if err != nil {
		return nil, errors.Join(err, svc.Close(), obs.Shutdown(ctx))
	}

	server, err := mcp.NewServer(mcp.ServerConfig{
		Name:         cfg.Name,
		Version:      cfg.Version,
		Registry:     registry,
		Middleware:   Middleware(cfg, obs, metrics, monitor),
		Instructions: "Concept graph analytics. Analytic results are cached; call clear_performance_cache after bulk changes.",
	})
	if err != nil {
		return nil, errors.Join(err, svc.Close(), obs.Shutdown(ctx))
	}

	app := &App{
		config:        cfg,
		service:       svc,
		server:        server,
		observability: obs,
		janitor: icache.NewJanitor(c, time.Duration(cfg.Cache.SweepInterval), func(int) {
			monitor.LogSummary()
		}),
	}

	if cfg.Storage.Watch && cfg.Storage.SeedFile != "" {
		app.watcher, err = dataset.NewWatcher(cfg.Storage.SeedFile, svc.Reload)
		if err != nil {
			return nil, errors.Join(err, app.Close(ctx))
		}
	}
	return app, nil
}

// NewCache builds the result cache from its configuration.
func NewCache(cfg config.CacheConfig, opts ...icache.Option) *icache.Cache {
	base := []icache.Option{
		icache.WithDefaultTTL(time.Duration(cfg.DefaultTTL)),
		icache.WithComputeTimeout(time.Duration(cfg.ComputeTimeout)),
		icache.WithMaxEntries(cfg.MaxEntries),
	}
	if cfg.Shards > 0 {
		base = append(base, icache.WithShardCount(cfg.Shards))
	}
	for op, ttl := range cfg.TTLs {
		base = append(base, icache.WithOperationTTL(op, time.Duration(ttl)))
	}
	return icache.New(append(base, opts...)...)
}

// NewExecutor builds the computation guard from its configuration.
func NewExecutor(cfg config.ResilienceConfig) *resilience.Executor {
	return resilience.NewExecutorWithOptions(
		resilience.WithTimeout(time.Duration(cfg.Timeout)),
		resilience.WithMaxConcurrent(cfg.MaxConcurrent),
		resilience.WithRetryAttempts(cfg.Retry.MaxAttempts),
		resilience.WithRetryDelay(time.Duration(cfg.Retry.InitialDelay)),
		resilience.WithRetryMultiplier(cfg.Retry.Multiplier),
		resilience.WithCircuitBreakerThreshold(cfg.CircuitBreaker.Threshold),
		resilience.WithCircuitBreakerTimeout(time.Duration(cfg.CircuitBreaker.Timeout)),
	)
}

// Middleware returns the tool call chain: recover, logging, tracing,
// metrics, then rate limiting when enabled.
func Middleware(cfg config.ServerConfig, obs *observability.Provider, metrics telemetry.Metrics, recorder *performance.Monitor) []middleware.Middleware {
	tracing := inframw.DefaultTracingConfig()
	tracing.Tracer = obs.Tracer()

	chain := []middleware.Middleware{
		inframw.Recover(),
		inframw.Logging(inframw.LoggingConfig{}),
		inframw.Tracing(tracing),
		inframw.Metrics(inframw.MetricsConfig{Provider: metrics, Recorder: recorder}),
	}
	if rl := cfg.Resilience.RateLimit; rl.Enabled {
		chain = append(chain, inframw.RateLimit(inframw.RateLimitConfig{
			Scope:   inframw.ScopeGlobal,
			Rate:    rl.Rate,
			Burst:   rl.Burst,
			Metrics: metrics,
		}))
	}
	return chain
}

// seed loads the configured dataset. The bundled sample only fills an
// empty store; an explicit seed file is always applied.
func seed(ctx context.Context, store concept.Store, cfg config.StorageConfig) error {
	if cfg.SeedFile == "" {
		n, _, err := store.Count(ctx)
		if err != nil {
			return fmt.Errorf("count concepts: %w", err)
		}
		if n > 0 {
			return nil
		}
	}
	return dataset.Seed(ctx, store, cfg.SeedFile, time.Now())
}

// Service returns the analytics service.
func (a *App) Service() *Service {
	return a.service
}

// Server returns the MCP server.
func (a *App) Server() *mcp.Server {
	return a.server
}

// Start launches the background workers.
func (a *App) Start(ctx context.Context) error {
	a.janitor.Start(ctx)
	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			return fmt.Errorf("watch dataset: %w", err)
		}
	}
	return nil
}

// Serve runs the configured transport until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	logging.Info().
		Add(logging.Component("app")).
		Add(logging.Str("transport", a.config.Transport.Mode)).
		Add(logging.Str("addr", a.config.Transport.Addr)).
		Msg("serving tools")

	switch a.config.Transport.Mode {
	case config.TransportHTTP:
		return a.server.ServeHTTP(ctx, a.config.Transport.Addr)
	default:
		return a.server.ServeStdio(ctx)
	}
}

// Close stops the workers and releases every resource.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Stop())
	}
	a.janitor.Stop()
	errs = append(errs, a.service.Close(), a.observability.Shutdown(ctx))
	return errors.Join(errs...)
}
