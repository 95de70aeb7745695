package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/felixgeelhaar/concept-analytics/domain/middleware"
	"github.com/felixgeelhaar/concept-analytics/domain/tool"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
)

// Recover returns middleware that turns a panicking tool into an internal
// failure record.
func Recover() middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (result tool.Result, err error) {
			defer func() {
				if r := recover(); r != nil {
					logging.Error().
						Add(logging.RequestID(execCtx.RequestID)).
						Add(logging.ToolName(execCtx.Tool.Name())).
						Add(logging.Str("panic", fmt.Sprint(r))).
						Add(logging.Str("stack", string(debug.Stack()))).
						Msg("tool panicked")
					result = tool.FailureResult(tool.ErrorInternal, fmt.Sprintf("internal error: %v", r))
					err = nil
				}
			}()
			return next(ctx, execCtx)
		}
	}
}
