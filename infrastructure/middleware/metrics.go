package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/middleware"
	"github.com/felixgeelhaar/concept-analytics/domain/performance"
	"github.com/felixgeelhaar/concept-analytics/domain/tool"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/telemetry"
)

// MetricsConfig configures the metrics middleware.
type MetricsConfig struct {
	// Provider receives OpenTelemetry measurements.
	Provider telemetry.Metrics
	// Recorder receives per-call statistics for performance reports.
	Recorder performance.Recorder
}

// Metrics returns middleware that records every tool call.
func Metrics(config MetricsConfig) middleware.Middleware {
	if config.Provider == nil {
		config.Provider = telemetry.NoopMetricsProvider{}
	}

	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Result, error) {
			config.Provider.IncrementInFlight(ctx)
			start := time.Now()
			result, err := next(ctx, execCtx)
			config.Provider.DecrementInFlight(ctx)
			duration := time.Since(start)

			success := err == nil && !result.Failed
			name := execCtx.Tool.Name()

			config.Provider.RecordToolCall(ctx, name, success, result.CacheStatus, duration)
			if !success {
				config.Provider.RecordError(ctx, "tool", map[string]string{"tool": name})
			}
			if config.Recorder != nil {
				config.Recorder.RecordCall(performance.Call{
					Tool:     name,
					Duration: duration,
					Success:  success,
					CacheHit: result.Cached(),
				})
			}
			return result, err
		}
	}
}
