// Package config provides domain models for the analytics server configuration.
package config

import "time"

// ServerConfig represents the complete server configuration.
type ServerConfig struct {
	// Name is a human-readable name for this server.
	Name string `json:"name" yaml:"name"`
	// Version is the configuration schema version.
	Version string `json:"version" yaml:"version"`

	// Logging configures structured logging.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	// Cache configures the analytics result cache.
	Cache CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
	// Analytics configures analytic defaults.
	Analytics AnalyticsConfig `json:"analytics,omitempty" yaml:"analytics,omitempty"`
	// Resilience configures guards around analytic computations.
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	// Storage configures the concept store.
	Storage StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`
	// Observability configures tracing and metrics.
	Observability ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"`
	// Transport configures how tools are served.
	Transport TransportConfig `json:"transport,omitempty" yaml:"transport,omitempty"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is json or console.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// CacheConfig configures the analytics result cache.
type CacheConfig struct {
	// DefaultTTL applies to operations without an explicit TTL. Zero or
	// negative means entries never expire.
	DefaultTTL Duration `json:"default_ttl,omitempty" yaml:"default_ttl,omitempty"`
	// TTLs maps operation names to their TTL.
	TTLs map[string]Duration `json:"ttls,omitempty" yaml:"ttls,omitempty"`
	// MaxEntries bounds the cache with LRU eviction. Zero is unbounded.
	MaxEntries int `json:"max_entries,omitempty" yaml:"max_entries,omitempty"`
	// Shards is the number of lock shards.
	Shards int `json:"shards,omitempty" yaml:"shards,omitempty"`
	// SweepInterval is how often expired entries are purged.
	SweepInterval Duration `json:"sweep_interval,omitempty" yaml:"sweep_interval,omitempty"`
	// ComputeTimeout bounds a single computation. Zero disables it.
	ComputeTimeout Duration `json:"compute_timeout,omitempty" yaml:"compute_timeout,omitempty"`
}

// AnalyticsConfig configures analytic defaults.
type AnalyticsConfig struct {
	// SimilarityThreshold is the default minimum similarity.
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty" yaml:"similarity_threshold,omitempty"`
	// MaxResults is the default result limit.
	MaxResults int `json:"max_results,omitempty" yaml:"max_results,omitempty"`
	// NumClusters is the default cluster count.
	NumClusters int `json:"num_clusters,omitempty" yaml:"num_clusters,omitempty"`
	// MinClusterSize is the default minimum cluster size.
	MinClusterSize int `json:"min_cluster_size,omitempty" yaml:"min_cluster_size,omitempty"`
	// DBSCANEpsilon is the cosine distance radius for dbscan.
	DBSCANEpsilon float64 `json:"dbscan_epsilon,omitempty" yaml:"dbscan_epsilon,omitempty"`
	// DaysBack is the default temporal window.
	DaysBack int `json:"days_back,omitempty" yaml:"days_back,omitempty"`
	// VectorDims is the width of concept feature vectors.
	VectorDims int `json:"vector_dims,omitempty" yaml:"vector_dims,omitempty"`
}

// ResilienceConfig contains resilience settings.
type ResilienceConfig struct {
	// Timeout bounds a guarded computation.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// MaxConcurrent is the bulkhead size.
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
	// Retry configures retry behavior.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// CircuitBreaker configures circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
	// RateLimit configures tool call rate limiting.
	RateLimit RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// InitialDelay is the first retry delay.
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	// Multiplier is the backoff multiplier.
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Threshold is consecutive failures before opening.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// Timeout is how long the circuit stays open.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// RateLimitConfig configures rate limiting.
type RateLimitConfig struct {
	// Enabled enables rate limiting.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Rate is the tokens per second.
	Rate int `json:"rate,omitempty" yaml:"rate,omitempty"`
	// Burst is the maximum burst size.
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// StorageConfig configures the concept store.
type StorageConfig struct {
	// Driver is memory, sqlite, badger or postgres.
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`
	// DSN is the connection string for sqlite and postgres.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// Dir is the data directory for badger. Empty means in-memory.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// SeedFile is a dataset file loaded at startup. Empty loads the bundled sample.
	SeedFile string `json:"seed_file,omitempty" yaml:"seed_file,omitempty"`
	// Watch reloads SeedFile when it changes.
	Watch bool `json:"watch,omitempty" yaml:"watch,omitempty"`
}

// ObservabilityConfig configures tracing and metrics.
type ObservabilityConfig struct {
	// Tracing configures the trace exporter.
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
	// Metrics configures metric instruments.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// TracingConfig configures the trace exporter.
type TracingConfig struct {
	// Enabled enables tracing.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Exporter is stdout, otlp or noop.
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	// Endpoint is the OTLP collector address.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Insecure disables TLS for the OTLP exporter.
	Insecure bool `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	// SampleRate is the fraction of traces sampled.
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// MetricsConfig configures metric instruments.
type MetricsConfig struct {
	// Enabled enables metrics.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// Transport modes.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// TransportConfig configures how tools are served.
type TransportConfig struct {
	// Mode is stdio or http.
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`
	// Addr is the listen address for http.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() ServerConfig {
	return ServerConfig{
		Name:    "concept-analytics",
		Version: "1.0",
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Cache: CacheConfig{
			DefaultTTL:     Duration(5 * time.Minute),
			MaxEntries:     10000,
			Shards:         16,
			SweepInterval:  Duration(time.Minute),
			ComputeTimeout: Duration(30 * time.Second),
		},
		Analytics: AnalyticsConfig{
			SimilarityThreshold: 0.7,
			MaxResults:          10,
			NumClusters:         5,
			MinClusterSize:      2,
			DBSCANEpsilon:       0.6,
			DaysBack:            30,
			VectorDims:          256,
		},
		Resilience: ResilienceConfig{
			Timeout:       Duration(30 * time.Second),
			MaxConcurrent: 10,
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: Duration(100 * time.Millisecond),
				Multiplier:   2.0,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Threshold: 5,
				Timeout:   Duration(30 * time.Second),
			},
			RateLimit: RateLimitConfig{Rate: 50, Burst: 100},
		},
		Storage: StorageConfig{Driver: DriverMemory},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{Exporter: "noop", SampleRate: 1.0},
		},
		Transport: TransportConfig{Mode: TransportStdio, Addr: ":8080"},
	}
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
