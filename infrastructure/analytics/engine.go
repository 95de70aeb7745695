// Package analytics implements the analytic operations over a concept graph
// snapshot and dispatches typed parameters to them.
package analytics

import (
	"context"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
	"github.com/felixgeelhaar/concept-analytics/domain/concept"
)

// GraphSource supplies the current graph snapshot.
type GraphSource interface {
	Graph() *concept.Graph
}

// Static is a GraphSource over a fixed graph.
type Static struct {
	G *concept.Graph
}

// Graph implements GraphSource.
func (s Static) Graph() *concept.Graph {
	if s.G == nil {
		return concept.NewGraph(nil, nil)
	}
	return s.G
}

// Engine implements analytics.Analyzer. Each call reads one snapshot, so
// results are deterministic for a given graph and clock.
type Engine struct {
	source  GraphSource
	now     func() time.Time
	dims    int
	epsilon float64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock sets the time source used for time windows.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithVectorDims sets the width of concept feature vectors.
func WithVectorDims(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.dims = n
		}
	}
}

// WithDBSCANEpsilon sets the cosine distance radius used by dbscan.
func WithDBSCANEpsilon(eps float64) EngineOption {
	return func(e *Engine) {
		if eps > 0 && eps <= 2 {
			e.epsilon = eps
		}
	}
}

// NewEngine creates an engine reading from source.
func NewEngine(source GraphSource, opts ...EngineOption) *Engine {
	e := &Engine{
		source:  source,
		now:     time.Now,
		dims:    DefaultVectorDims,
		epsilon: DefaultDBSCANEpsilon,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ analytics.Analyzer = (*Engine)(nil)

// Similar implements analytics.Analyzer.
func (e *Engine) Similar(ctx context.Context, p analytics.SimilarityParams) ([]analytics.SimilarConcept, error) {
	if err := analytics.Prepare(&p); err != nil {
		return nil, err
	}
	return similar(ctx, e.source.Graph(), p, e.dims)
}

// Patterns implements analytics.Analyzer.
func (e *Engine) Patterns(ctx context.Context, p analytics.PatternParams) ([]analytics.Pattern, error) {
	if err := analytics.Prepare(&p); err != nil {
		return nil, err
	}
	return patterns(ctx, e.source.Graph(), p, e.now())
}

// Clusters implements analytics.Analyzer.
func (e *Engine) Clusters(ctx context.Context, p analytics.ClusterParams) ([]analytics.Cluster, error) {
	if err := analytics.Prepare(&p); err != nil {
		return nil, err
	}
	return clusters(ctx, e.source.Graph(), p, e.dims, e.epsilon)
}

// Temporal implements analytics.Analyzer.
func (e *Engine) Temporal(ctx context.Context, p analytics.TemporalParams) ([]analytics.TemporalPattern, error) {
	if err := analytics.Prepare(&p); err != nil {
		return nil, err
	}
	return temporal(ctx, e.source.Graph(), p, e.now())
}
