package middleware

import (
	"context"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/concept-analytics/domain/middleware"
	"github.com/felixgeelhaar/concept-analytics/domain/tool"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/telemetry"
)

// RateLimitScope defines the scope for rate limiting.
type RateLimitScope string

const (
	// ScopeGlobal shares one bucket across all tools.
	ScopeGlobal RateLimitScope = "global"
	// ScopePerTool keeps one bucket per tool.
	ScopePerTool RateLimitScope = "per_tool"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// Limiter is the rate limiter to use. If nil, one is created from Rate and Burst.
	Limiter ratelimit.RateLimiter

	// Scope determines how rate limiting keys are generated.
	Scope RateLimitScope

	// Rate is the number of tokens added per second.
	Rate int

	// Burst is the maximum number of tokens.
	Burst int

	// FailOpen allows calls when the limiter itself fails.
	FailOpen bool

	// Metrics records rejected calls.
	Metrics telemetry.Metrics
}

// DefaultRateLimitConfig returns a sensible default rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Scope: ScopeGlobal,
		Rate:  50,
		Burst: 100,
	}
}

// RateLimit returns middleware that rejects calls above the configured rate
// with a rate_limited failure record.
func RateLimit(cfg RateLimitConfig) middleware.Middleware {
	limiter := cfg.Limiter
	if limiter == nil {
		rate := cfg.Rate
		if rate <= 0 {
			rate = 50
		}
		burst := cfg.Burst
		if burst <= 0 {
			burst = rate
		}
		limiter = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    burst,
			FailOpen: cfg.FailOpen,
		})
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NoopMetricsProvider{}
	}

	scope := cfg.Scope
	if scope == "" {
		scope = ScopeGlobal
	}

	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Result, error) {
			key := "global"
			if scope == ScopePerTool {
				key = execCtx.Tool.Name()
			}

			if !limiter.Allow(ctx, key) {
				logging.Warn().
					Add(logging.RequestID(execCtx.RequestID)).
					Add(logging.ToolName(execCtx.Tool.Name())).
					Add(logging.Str("scope", string(scope))).
					Msg("rate limit exceeded")
				cfg.Metrics.RecordRateLimitHit(ctx, execCtx.Tool.Name())
				return tool.FailureResult(tool.ErrorRateLimited, tool.ErrRateLimited.Error()), nil
			}

			return next(ctx, execCtx)
		}
	}
}
