// Package middleware provides composable middleware for tool calls.
package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/tool"
)

// ExecutionContext describes one tool call.
type ExecutionContext struct {
	// RequestID identifies the call in logs and traces.
	RequestID string
	// Tool is the tool being executed.
	Tool tool.Tool
	// Input is the JSON input for the tool.
	Input json.RawMessage
	// StartedAt is when the call entered the chain.
	StartedAt time.Time
}

// Handler executes a tool and returns its result.
type Handler func(ctx context.Context, execCtx *ExecutionContext) (tool.Result, error)

// Middleware wraps a Handler with additional behavior.
type Middleware func(next Handler) Handler

// Chain composes middleware so that Chain(A, B, C)(h) runs A, then B, then
// C, then h.
func Chain(middlewares ...Middleware) Middleware {
	return func(final Handler) Handler {
		handler := final
		for i := len(middlewares) - 1; i >= 0; i-- {
			handler = middlewares[i](handler)
		}
		return handler
	}
}

// Noop returns a middleware that passes calls through.
func Noop() Middleware {
	return func(next Handler) Handler {
		return next
	}
}

// Execute is the terminal handler: it runs the tool itself.
func Execute(ctx context.Context, execCtx *ExecutionContext) (tool.Result, error) {
	return execCtx.Tool.Execute(ctx, execCtx.Input)
}
