package analytics

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
	"github.com/felixgeelhaar/concept-analytics/domain/cache"
	icache "github.com/felixgeelhaar/concept-analytics/infrastructure/cache"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/resilience"
)

// Dispatcher routes typed parameters to an Analyzer. It holds no cache
// state; the cache invokes it at most once per miss per key.
type Dispatcher struct {
	analyzer analytics.Analyzer
	runner   resilience.Runner
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRunner guards every computation with r.
func WithRunner(r resilience.Runner) DispatcherOption {
	return func(d *Dispatcher) {
		if r != nil {
			d.runner = r
		}
	}
}

// NewDispatcher creates a dispatcher over a.
func NewDispatcher(a analytics.Analyzer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{analyzer: a, runner: resilience.Direct{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs the analytic function matching the parameter variant.
func (d *Dispatcher) Dispatch(ctx context.Context, p analytics.Params) (any, error) {
	switch v := p.(type) {
	case *analytics.SimilarityParams:
		return d.analyzer.Similar(ctx, *v)
	case *analytics.PatternParams:
		return d.analyzer.Patterns(ctx, *v)
	case *analytics.ClusterParams:
		return d.analyzer.Clusters(ctx, *v)
	case *analytics.TemporalParams:
		return d.analyzer.Temporal(ctx, *v)
	case nil:
		return nil, fmt.Errorf("%w: nil parameters", analytics.ErrUnknownOperation)
	}
	return nil, fmt.Errorf("%w: %T", analytics.ErrUnknownOperation, p)
}

// Compute returns the cache compute function for p, guarded by the runner.
func (d *Dispatcher) Compute(p analytics.Params) cache.ComputeFunc {
	return func(ctx context.Context) (any, error) {
		return d.runner.Execute(ctx, string(p.Operation()), func(ctx context.Context) (any, error) {
			return d.Dispatch(ctx, p)
		})
	}
}

// Request returns the cache request identifying p.
func Request(p analytics.Params) icache.Request {
	return icache.Request{
		Operation: string(p.Operation()),
		Params:    p.KeyParams(),
	}
}

// RegisterDefaults teaches codec the default parameters of every operation.
// Normalized params already emit every field in KeyParams, so this only
// fills requests whose params were built by hand.
func RegisterDefaults(codec *icache.Codec) {
	for _, op := range analytics.Operations() {
		codec.RegisterDefaults(string(op), analytics.Defaults(op))
	}
}
