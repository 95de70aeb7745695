package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/concept-analytics/domain/middleware"
	"github.com/felixgeelhaar/concept-analytics/domain/tool"
)

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	// Tracer is the tracer to use. If nil, the global provider's tracer is used.
	Tracer trace.Tracer

	// RecordInput records the tool input as a span attribute.
	RecordInput bool

	// MaxAttributeSize limits the size of recorded attributes.
	MaxAttributeSize int

	// SpanNamePrefix is prepended to span names.
	SpanNamePrefix string
}

// DefaultTracingConfig returns a sensible default configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		RecordInput:      true,
		MaxAttributeSize: 1024,
		SpanNamePrefix:   "tool.",
	}
}

// Tracing returns middleware that creates one span per tool call.
func Tracing(cfg TracingConfig) middleware.Middleware {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/felixgeelhaar/concept-analytics")
	}
	maxSize := cfg.MaxAttributeSize
	if maxSize <= 0 {
		maxSize = 1024
	}

	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Result, error) {
			name := execCtx.Tool.Name()
			ctx, span := tracer.Start(ctx, cfg.SpanNamePrefix+name, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			annotations := execCtx.Tool.Annotations()
			attrs := []attribute.KeyValue{
				attribute.String("tool.name", name),
				attribute.String("request.id", execCtx.RequestID),
				attribute.Bool("tool.read_only", annotations.ReadOnly),
				attribute.Bool("tool.cacheable", annotations.Cacheable),
			}
			if cfg.RecordInput && len(execCtx.Input) > 0 {
				attrs = append(attrs, attribute.String("tool.input", truncate(string(execCtx.Input), maxSize)))
			}
			span.SetAttributes(attrs...)

			result, err := next(ctx, execCtx)

			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case result.Failed:
				span.SetStatus(codes.Error, "tool reported failure")
			default:
				span.SetStatus(codes.Ok, "")
			}
			if result.CacheStatus != "" {
				span.SetAttributes(attribute.String("cache.status", result.CacheStatus))
			}
			span.SetAttributes(attribute.Int("tool.output_bytes", len(result.Output)))

			return result, err
		}
	}
}
