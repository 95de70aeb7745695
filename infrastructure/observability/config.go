// Package observability sets up the OpenTelemetry trace and meter providers
// used by the analytics server.
package observability

import (
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/config"
)

// Config configures the observability infrastructure.
type Config struct {
	// ServiceName is the name of the service for telemetry.
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Environment is the deployment environment (e.g., "production", "staging").
	Environment string

	// Tracing configures distributed tracing.
	Tracing TracingConfig

	// Metrics enables the in-process meter provider.
	Metrics bool
}

// TracingConfig configures distributed tracing.
type TracingConfig struct {
	// Enabled enables tracing (default: false).
	Enabled bool

	// Exporter specifies the trace exporter type.
	Exporter ExporterType

	// Endpoint is the OTLP endpoint (e.g., "localhost:4317").
	Endpoint string

	// Insecure disables TLS for the exporter connection.
	Insecure bool

	// SampleRate is the sampling rate (0.0-1.0, default: 1.0).
	SampleRate float64

	// BatchTimeout is the batch export timeout.
	BatchTimeout time.Duration

	// MaxExportBatchSize is the maximum batch size.
	MaxExportBatchSize int
}

// ExporterType specifies the trace exporter.
type ExporterType string

const (
	// ExporterOTLP exports to an OTLP gRPC endpoint.
	ExporterOTLP ExporterType = "otlp"

	// ExporterStdout exports to stdout.
	ExporterStdout ExporterType = "stdout"

	// ExporterNoop disables export.
	ExporterNoop ExporterType = "noop"
)

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "concept-analytics",
		ServiceVersion: "dev",
		Environment:    "development",
		Tracing: TracingConfig{
			Exporter:           ExporterNoop,
			SampleRate:         1.0,
			BatchTimeout:       5 * time.Second,
			MaxExportBatchSize: 512,
		},
	}
}

// FromServerConfig derives a Config from the server configuration.
func FromServerConfig(cfg config.ServerConfig) Config {
	c := DefaultConfig()
	if cfg.Name != "" {
		c.ServiceName = cfg.Name
	}
	if cfg.Version != "" {
		c.ServiceVersion = cfg.Version
	}
	t := cfg.Observability.Tracing
	c.Tracing.Enabled = t.Enabled
	if t.Exporter != "" {
		c.Tracing.Exporter = ExporterType(t.Exporter)
	}
	c.Tracing.Endpoint = t.Endpoint
	c.Tracing.Insecure = t.Insecure
	c.Tracing.SampleRate = t.SampleRate
	c.Metrics = cfg.Observability.Metrics.Enabled
	return c
}

// Option configures the observability infrastructure.
type Option func(*Config)

// WithServiceName sets the service name.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithServiceVersion sets the service version.
func WithServiceVersion(version string) Option {
	return func(c *Config) {
		c.ServiceVersion = version
	}
}

// WithTracing enables tracing with the specified exporter.
func WithTracing(exporter ExporterType, endpoint string) Option {
	return func(c *Config) {
		c.Tracing.Enabled = true
		c.Tracing.Exporter = exporter
		c.Tracing.Endpoint = endpoint
	}
}

// WithSampleRate sets the trace sampling rate.
func WithSampleRate(rate float64) Option {
	return func(c *Config) {
		c.Tracing.SampleRate = rate
	}
}

// WithMetrics enables the meter provider.
func WithMetrics() Option {
	return func(c *Config) {
		c.Metrics = true
	}
}
