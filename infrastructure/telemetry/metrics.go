// Package telemetry provides OpenTelemetry metrics for the concept
// analytics service: tool calls, cache outcomes and computation latency.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider provides access to metrics instruments.
type MetricsProvider struct {
	meter metric.Meter

	// Counters
	toolCalls     metric.Int64Counter
	rateLimitHits metric.Int64Counter
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	computations  metric.Int64Counter
	evictions     metric.Int64Counter
	cacheClears   metric.Int64Counter
	errors        metric.Int64Counter

	// Histograms
	toolDuration    metric.Float64Histogram
	computeDuration metric.Float64Histogram

	// Gauges (using UpDownCounter for OpenTelemetry)
	inFlight           metric.Int64UpDownCounter
	circuitBreakerOpen metric.Int64UpDownCounter

	initErr error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter.
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// Provider overrides the global meter provider.
	Provider metric.MeterProvider
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/concept-analytics",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	defaults := DefaultMetricsConfig()
	if config.MeterName == "" {
		config.MeterName = defaults.MeterName
	}
	if config.MeterVersion == "" {
		config.MeterVersion = defaults.MeterVersion
	}

	provider := config.Provider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{meter: meter}
	mp.initErr = mp.initInstruments()
	return mp
}

func (mp *MetricsProvider) counter(target *metric.Int64Counter, name, desc, unit string) error {
	c, err := mp.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		return err
	}
	*target = c
	return nil
}

// initInstruments initializes all metric instruments.
func (mp *MetricsProvider) initInstruments() error {
	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
		unit   string
	}{
		{&mp.toolCalls, "concept.tool.calls", "Number of tool calls", "{call}"},
		{&mp.rateLimitHits, "concept.ratelimit.hits", "Number of rate limited calls", "{hit}"},
		{&mp.cacheHits, "concept.cache.hits", "Number of cache hits", "{hit}"},
		{&mp.cacheMisses, "concept.cache.misses", "Number of cache misses", "{miss}"},
		{&mp.computations, "concept.cache.computations", "Number of analytic computations", "{computation}"},
		{&mp.evictions, "concept.cache.evictions", "Number of capacity evictions", "{entry}"},
		{&mp.cacheClears, "concept.cache.clears", "Number of explicit cache clears", "{clear}"},
		{&mp.errors, "concept.errors", "Number of errors", "{error}"},
	}
	for _, c := range counters {
		if err := mp.counter(c.target, c.name, c.desc, c.unit); err != nil {
			return err
		}
	}

	var err error
	mp.toolDuration, err = mp.meter.Float64Histogram(
		"concept.tool.duration",
		metric.WithDescription("Duration of tool calls"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.computeDuration, err = mp.meter.Float64Histogram(
		"concept.cache.compute.duration",
		metric.WithDescription("Duration of analytic computations on cache misses"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.inFlight, err = mp.meter.Int64UpDownCounter(
		"concept.tool.inflight",
		metric.WithDescription("Number of tool calls in progress"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	mp.circuitBreakerOpen, err = mp.meter.Int64UpDownCounter(
		"concept.circuitbreaker.open",
		metric.WithDescription("Number of open circuit breakers"),
		metric.WithUnit("{circuit}"),
	)
	return err
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// RecordToolCall records a completed tool call.
func (mp *MetricsProvider) RecordToolCall(ctx context.Context, toolName string, success bool, cacheStatus string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.Bool("success", success),
		attribute.String("cache.status", cacheStatus),
	)

	mp.toolCalls.Add(ctx, 1, attrs)
	mp.toolDuration.Record(ctx, milliseconds(duration), attrs)

	if !success {
		mp.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("error.type", "tool_call"),
			attribute.String("tool.name", toolName),
		))
	}
}

// RecordRateLimitHit records a rate limited call.
func (mp *MetricsProvider) RecordRateLimitHit(ctx context.Context, toolName string) {
	mp.rateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("tool.name", toolName)))
}

// RecordCacheHit records a cache hit.
func (mp *MetricsProvider) RecordCacheHit(ctx context.Context, operation string) {
	mp.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordCacheMiss records a cache miss.
func (mp *MetricsProvider) RecordCacheMiss(ctx context.Context, operation string) {
	mp.cacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordComputation records an analytic computation run on a miss.
func (mp *MetricsProvider) RecordComputation(ctx context.Context, operation string, d time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	)
	mp.computations.Add(ctx, 1, attrs)
	mp.computeDuration.Record(ctx, milliseconds(d), attrs)
	if err != nil {
		mp.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("error.type", "computation"),
			attribute.String("operation", operation),
		))
	}
}

// RecordEviction records capacity evictions.
func (mp *MetricsProvider) RecordEviction(ctx context.Context, n int) {
	mp.evictions.Add(ctx, int64(n))
}

// RecordCacheClear records an explicit cache clear.
func (mp *MetricsProvider) RecordCacheClear(ctx context.Context, removed int) {
	mp.cacheClears.Add(ctx, 1, metric.WithAttributes(attribute.Int("entries.removed", removed)))
}

// RecordError records an error.
func (mp *MetricsProvider) RecordError(ctx context.Context, errorType string, details map[string]string) {
	attrs := []attribute.KeyValue{
		attribute.String("error.type", errorType),
	}
	for k, v := range details {
		attrs = append(attrs, attribute.String(k, v))
	}

	mp.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// IncrementInFlight increments the in-progress tool call gauge.
func (mp *MetricsProvider) IncrementInFlight(ctx context.Context) {
	mp.inFlight.Add(ctx, 1)
}

// DecrementInFlight decrements the in-progress tool call gauge.
func (mp *MetricsProvider) DecrementInFlight(ctx context.Context) {
	mp.inFlight.Add(ctx, -1)
}

// RecordCircuitBreakerStateChange records a circuit breaker state change.
func (mp *MetricsProvider) RecordCircuitBreakerStateChange(ctx context.Context, name string, isOpen bool) {
	attrs := metric.WithAttributes(attribute.String("breaker.name", name))
	if isOpen {
		mp.circuitBreakerOpen.Add(ctx, 1, attrs)
	} else {
		mp.circuitBreakerOpen.Add(ctx, -1, attrs)
	}
}

// NoopMetricsProvider is a no-op metrics provider for testing or when metrics are disabled.
type NoopMetricsProvider struct{}

// RecordToolCall is a no-op.
func (NoopMetricsProvider) RecordToolCall(context.Context, string, bool, string, time.Duration) {}

// RecordRateLimitHit is a no-op.
func (NoopMetricsProvider) RecordRateLimitHit(context.Context, string) {}

// RecordCacheHit is a no-op.
func (NoopMetricsProvider) RecordCacheHit(context.Context, string) {}

// RecordCacheMiss is a no-op.
func (NoopMetricsProvider) RecordCacheMiss(context.Context, string) {}

// RecordComputation is a no-op.
func (NoopMetricsProvider) RecordComputation(context.Context, string, time.Duration, error) {}

// RecordEviction is a no-op.
func (NoopMetricsProvider) RecordEviction(context.Context, int) {}

// RecordCacheClear is a no-op.
func (NoopMetricsProvider) RecordCacheClear(context.Context, int) {}

// RecordError is a no-op.
func (NoopMetricsProvider) RecordError(context.Context, string, map[string]string) {}

// IncrementInFlight is a no-op.
func (NoopMetricsProvider) IncrementInFlight(context.Context) {}

// DecrementInFlight is a no-op.
func (NoopMetricsProvider) DecrementInFlight(context.Context) {}

// RecordCircuitBreakerStateChange is a no-op.
func (NoopMetricsProvider) RecordCircuitBreakerStateChange(context.Context, string, bool) {}

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordToolCall(ctx context.Context, toolName string, success bool, cacheStatus string, duration time.Duration)
	RecordRateLimitHit(ctx context.Context, toolName string)
	RecordCacheHit(ctx context.Context, operation string)
	RecordCacheMiss(ctx context.Context, operation string)
	RecordComputation(ctx context.Context, operation string, d time.Duration, err error)
	RecordEviction(ctx context.Context, n int)
	RecordCacheClear(ctx context.Context, removed int)
	RecordError(ctx context.Context, errorType string, details map[string]string)
	IncrementInFlight(ctx context.Context)
	DecrementInFlight(ctx context.Context)
	RecordCircuitBreakerStateChange(ctx context.Context, name string, isOpen bool)
}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = NoopMetricsProvider{}
)
