// Package middleware provides the tool call middleware of the analytics server.
package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/middleware"
	"github.com/felixgeelhaar/concept-analytics/domain/tool"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
)

// LoggingConfig configures the logging middleware.
type LoggingConfig struct {
	// LogInput logs the tool input.
	LogInput bool
	// LogOutput logs the tool output, truncated to MaxOutput bytes.
	LogOutput bool
	// MaxOutput bounds logged output. Zero means 500 bytes.
	MaxOutput int
}

// Logging returns middleware that logs every tool call.
func Logging(cfg LoggingConfig) middleware.Middleware {
	maxOutput := cfg.MaxOutput
	if maxOutput <= 0 {
		maxOutput = 500
	}

	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Result, error) {
			start := time.Now()

			entry := logging.Debug().
				Add(logging.RequestID(execCtx.RequestID)).
				Add(logging.ToolName(execCtx.Tool.Name()))
			if cfg.LogInput && len(execCtx.Input) > 0 {
				entry = entry.Add(logging.Str("input", string(execCtx.Input)))
			}
			entry.Msg("executing tool")

			result, err := next(ctx, execCtx)
			duration := time.Since(start)

			if err != nil {
				logging.Error().
					Add(logging.RequestID(execCtx.RequestID)).
					Add(logging.ToolName(execCtx.Tool.Name())).
					Add(logging.ErrorField(err)).
					Add(logging.Duration(duration)).
					Msg("tool execution failed")
				return result, err
			}

			done := logging.Info().
				Add(logging.RequestID(execCtx.RequestID)).
				Add(logging.ToolName(execCtx.Tool.Name())).
				Add(logging.Duration(duration)).
				Add(logging.Success(!result.Failed))
			if result.CacheStatus != "" {
				done = done.Add(logging.CacheStatus(result.CacheStatus))
			}
			if cfg.LogOutput && len(result.Output) > 0 {
				done = done.Add(logging.Str("output", truncate(string(result.Output), maxOutput)))
			}
			done.Msg("tool executed")

			return result, err
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
