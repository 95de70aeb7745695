package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the JSON path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

var (
	validLevels    = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	validFormats   = map[string]bool{"json": true, "console": true}
	validDrivers   = map[string]bool{DriverMemory: true, DriverSQLite: true, DriverBadger: true, DriverPostgres: true}
	validExporters = map[string]bool{"stdout": true, "otlp": true, "noop": true}
	validModes     = map[string]bool{TransportStdio: true, TransportHTTP: true}
	validOps       = map[string]bool{"similarity": true, "patterns": true, "clusters": true, "temporal": true}
)

// Validator validates server configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *ServerConfig) ValidationErrors {
	v.errors = nil

	v.validateRequired(config)
	v.validateLogging(config.Logging)
	v.validateCache(config.Cache)
	v.validateAnalytics(config.Analytics)
	v.validateResilience(config.Resilience)
	v.validateStorage(config.Storage)
	v.validateObservability(config.Observability)
	v.validateTransport(config.Transport)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateRequired(config *ServerConfig) {
	if config.Name == "" {
		v.addError("name", "name is required")
	}
	if config.Version == "" {
		v.addError("version", "version is required")
	}
}

func (v *Validator) validateLogging(c LoggingConfig) {
	if c.Level != "" && !validLevels[strings.ToLower(c.Level)] {
		v.addError("logging.level", fmt.Sprintf("invalid level: %s", c.Level))
	}
	if c.Format != "" && !validFormats[c.Format] {
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", c.Format))
	}
}

func (v *Validator) validateCache(c CacheConfig) {
	for op := range c.TTLs {
		if !validOps[op] {
			v.addError("cache.ttls."+op, fmt.Sprintf("unknown operation: %s", op))
		}
	}
	if c.MaxEntries < 0 {
		v.addError("cache.max_entries", "max_entries must be non-negative")
	}
	if c.Shards < 0 {
		v.addError("cache.shards", "shards must be non-negative")
	}
	if c.SweepInterval < 0 {
		v.addError("cache.sweep_interval", "sweep_interval must be non-negative")
	}
	if c.ComputeTimeout < 0 {
		v.addError("cache.compute_timeout", "compute_timeout must be non-negative")
	}
}

func (v *Validator) validateAnalytics(c AnalyticsConfig) {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		v.addError("analytics.similarity_threshold", "similarity_threshold must be within [0, 1]")
	}
	if c.MaxResults < 0 || c.MaxResults > 100 {
		v.addError("analytics.max_results", "max_results must be within [1, 100]")
	}
	if c.NumClusters < 0 || c.NumClusters > 50 {
		v.addError("analytics.num_clusters", "num_clusters must be within [1, 50]")
	}
	if c.MinClusterSize < 0 {
		v.addError("analytics.min_cluster_size", "min_cluster_size must be non-negative")
	}
	if c.DBSCANEpsilon < 0 || c.DBSCANEpsilon > 2 {
		v.addError("analytics.dbscan_epsilon", "dbscan_epsilon must be within (0, 2]")
	}
	if c.DaysBack < 0 || c.DaysBack > 3650 {
		v.addError("analytics.days_back", "days_back must be within [1, 3650]")
	}
	if c.VectorDims < 0 {
		v.addError("analytics.vector_dims", "vector_dims must be non-negative")
	}
}

func (v *Validator) validateResilience(c ResilienceConfig) {
	if c.MaxConcurrent < 0 {
		v.addError("resilience.max_concurrent", "max_concurrent must be non-negative")
	}
	if c.Retry.MaxAttempts < 0 {
		v.addError("resilience.retry.max_attempts", "max_attempts must be non-negative")
	}
	if c.Retry.Multiplier != 0 && c.Retry.Multiplier < 1 {
		v.addError("resilience.retry.multiplier", "multiplier must be >= 1")
	}
	if c.CircuitBreaker.Threshold < 0 {
		v.addError("resilience.circuit_breaker.threshold", "threshold must be non-negative")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			v.addError("resilience.rate_limit.rate", "rate must be positive when enabled")
		}
		if c.RateLimit.Burst <= 0 {
			v.addError("resilience.rate_limit.burst", "burst must be positive when enabled")
		}
	}
}

func (v *Validator) validateStorage(c StorageConfig) {
	if c.Driver != "" && !validDrivers[c.Driver] {
		v.addError("storage.driver", fmt.Sprintf("unknown driver: %s", c.Driver))
	}
	if c.Driver == DriverPostgres && c.DSN == "" {
		v.addError("storage.dsn", "dsn is required for postgres")
	}
	if c.Watch && c.SeedFile == "" {
		v.addError("storage.watch", "watch requires seed_file")
	}
}

func (v *Validator) validateObservability(c ObservabilityConfig) {
	t := c.Tracing
	if t.Exporter != "" && !validExporters[t.Exporter] {
		v.addError("observability.tracing.exporter", fmt.Sprintf("unknown exporter: %s", t.Exporter))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		v.addError("observability.tracing.sample_rate", "sample_rate must be within [0, 1]")
	}
	if t.Enabled && t.Exporter == "otlp" && t.Endpoint == "" {
		v.addError("observability.tracing.endpoint", "endpoint is required for otlp")
	}
}

func (v *Validator) validateTransport(c TransportConfig) {
	if c.Mode != "" && !validModes[c.Mode] {
		v.addError("transport.mode", fmt.Sprintf("invalid mode: %s", c.Mode))
	}
	if c.Mode == TransportHTTP && c.Addr == "" {
		v.addError("transport.addr", "addr is required for http")
	}
}
