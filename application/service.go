// Package application wires the concept analytics use cases: cached
// analytic queries, performance introspection and graph updates.
package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
	"github.com/felixgeelhaar/concept-analytics/domain/cache"
	"github.com/felixgeelhaar/concept-analytics/domain/concept"
	"github.com/felixgeelhaar/concept-analytics/domain/config"
	ianalytics "github.com/felixgeelhaar/concept-analytics/infrastructure/analytics"
	icache "github.com/felixgeelhaar/concept-analytics/infrastructure/cache"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/performance"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/resilience"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/telemetry"
)

// ErrNoStore is returned when a service is created without a concept store.
var ErrNoStore = errors.New("concept store is required")

// Service runs the analytic operations through the result cache.
type Service struct {
	store      concept.Store
	snapshot   *ianalytics.Snapshotter
	dispatcher *ianalytics.Dispatcher
	cache      *icache.Cache
	monitor    *performance.Monitor
	metrics    telemetry.Metrics
	defaults   config.AnalyticsConfig
	now        func() time.Time
}

// ServiceConfig contains the collaborators of a Service.
type ServiceConfig struct {
	// Store holds the concept graph. Required.
	Store concept.Store

	// Cache memoizes analytic results. Defaults to a new cache.
	Cache *icache.Cache

	// Runner guards every computation. Defaults to running directly.
	Runner resilience.Runner

	// Monitor receives tool calls and builds reports. Defaults to a new monitor.
	Monitor *performance.Monitor

	// Metrics records cache clears. Defaults to no-op.
	Metrics telemetry.Metrics

	// Analytics holds parameter defaults and engine tuning.
	Analytics config.AnalyticsConfig

	// Clock is the time source of the engine. Defaults to time.Now.
	Clock func() time.Time
}

// NewService loads the graph snapshot and creates a service.
func NewService(ctx context.Context, cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, ErrNoStore
	}
	if cfg.Cache == nil {
		cfg.Cache = icache.New()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NoopMetricsProvider{}
	}
	if cfg.Monitor == nil {
		cfg.Monitor = performance.NewMonitor(performance.WithCache(cfg.Cache))
	}

	snapshot, err := ianalytics.NewSnapshotter(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	engine := ianalytics.NewEngine(snapshot,
		ianalytics.WithClock(cfg.Clock),
		ianalytics.WithVectorDims(cfg.Analytics.VectorDims),
		ianalytics.WithDBSCANEpsilon(cfg.Analytics.DBSCANEpsilon),
	)
	ianalytics.RegisterDefaults(cfg.Cache.Codec())

	return &Service{
		store:      cfg.Store,
		snapshot:   snapshot,
		dispatcher: ianalytics.NewDispatcher(engine, ianalytics.WithRunner(cfg.Runner)),
		cache:      cfg.Cache,
		monitor:    cfg.Monitor,
		metrics:    cfg.Metrics,
		defaults:   cfg.Analytics,
		now:        cfg.Clock,
	}, nil
}

// Cache returns the result cache.
func (s *Service) Cache() *icache.Cache {
	return s.cache
}

// Monitor returns the performance monitor.
func (s *Service) Monitor() *performance.Monitor {
	return s.monitor
}

// NewParams returns the parameter variant of op seeded with the configured
// defaults.
func (s *Service) NewParams(op analytics.Operation) (analytics.Params, error) {
	p, err := analytics.New(op)
	if err != nil {
		return nil, err
	}
	d := s.defaults
	switch v := p.(type) {
	case *analytics.SimilarityParams:
		if d.MaxResults > 0 {
			v.MaxResults = d.MaxResults
		}
		if d.SimilarityThreshold > 0 {
			v.SimilarityThreshold = analytics.Threshold(d.SimilarityThreshold)
		}
	case *analytics.ClusterParams:
		if d.NumClusters > 0 {
			v.NumClusters = d.NumClusters
		}
		if d.MinClusterSize > 0 {
			v.MinClusterSize = d.MinClusterSize
		}
	case *analytics.TemporalParams:
		if d.DaysBack > 0 {
			v.DaysBack = d.DaysBack
		}
	}
	return p, nil
}

// DecodeParams parses JSON parameters of op over the configured defaults.
func (s *Service) DecodeParams(op analytics.Operation, data []byte) (analytics.Params, error) {
	p, err := s.NewParams(op)
	if err != nil {
		return nil, err
	}
	if err := analytics.DecodeInto(p, data); err != nil {
		return nil, err
	}
	return p, nil
}

// run validates p and serves it from the cache.
func run[T any](ctx context.Context, s *Service, p analytics.Params) (T, cache.Status, error) {
	var zero T
	if err := analytics.Prepare(p); err != nil {
		return zero, "", err
	}
	v, status, err := s.cache.GetOrCompute(ctx, ianalytics.Request(p), s.dispatcher.Compute(p))
	if err != nil {
		return zero, "", err
	}
	out, ok := v.(T)
	if !ok {
		return zero, "", fmt.Errorf("%w: unexpected result %T for %s", cache.ErrComputation, v, p.Operation())
	}
	return out, status, nil
}

// FindSimilarConcepts returns concepts similar to p.Concept.
func (s *Service) FindSimilarConcepts(ctx context.Context, p analytics.SimilarityParams) (SimilarityResponse, error) {
	matches, status, err := run[[]analytics.SimilarConcept](ctx, s, &p)
	if err != nil {
		return SimilarityResponse{}, err
	}
	return SimilarityResponse{
		Success:             true,
		Concept:             p.Concept,
		MaxResults:          p.MaxResults,
		SimilarityThreshold: p.MinSimilarity(),
		SimilarConcepts:     matches,
		TotalFound:          len(matches),
		CacheStatus:         status,
	}, nil
}

// AnalyzePatterns runs the pattern analysis selected by p.AnalysisType.
func (s *Service) AnalyzePatterns(ctx context.Context, p analytics.PatternParams) (PatternResponse, error) {
	patterns, status, err := run[[]analytics.Pattern](ctx, s, &p)
	if err != nil {
		return PatternResponse{}, err
	}
	return PatternResponse{
		Success:       true,
		AnalysisType:  p.AnalysisType,
		MaxResults:    p.MaxResults,
		TimeRangeDays: p.TimeRangeDays,
		Patterns:      patterns,
		TotalPatterns: len(patterns),
		CacheStatus:   status,
	}, nil
}

// GetSemanticClusters groups concepts with p.ClusterMethod.
func (s *Service) GetSemanticClusters(ctx context.Context, p analytics.ClusterParams) (ClusterResponse, error) {
	clusters, status, err := run[[]analytics.Cluster](ctx, s, &p)
	if err != nil {
		return ClusterResponse{}, err
	}
	return ClusterResponse{
		Success:        true,
		ClusterMethod:  p.ClusterMethod,
		NumClusters:    p.NumClusters,
		MinClusterSize: p.MinClusterSize,
		Clusters:       clusters,
		TotalClusters:  len(clusters),
		CacheStatus:    status,
	}, nil
}

// GetTemporalPatterns buckets graph activity by p.TimeGranularity.
func (s *Service) GetTemporalPatterns(ctx context.Context, p analytics.TemporalParams) (TemporalResponse, error) {
	buckets, status, err := run[[]analytics.TemporalPattern](ctx, s, &p)
	if err != nil {
		return TemporalResponse{}, err
	}
	return TemporalResponse{
		Success:         true,
		TimeGranularity: p.TimeGranularity,
		DaysBack:        p.DaysBack,
		ConceptFilter:   p.ConceptFilter,
		Patterns:        buckets,
		TotalPeriods:    len(buckets),
		CacheStatus:     status,
	}, nil
}

// Query decodes JSON parameters of op and runs the matching operation.
func (s *Service) Query(ctx context.Context, op analytics.Operation, data []byte) (any, cache.Status, error) {
	p, err := s.DecodeParams(op, data)
	if err != nil {
		return nil, "", err
	}
	switch v := p.(type) {
	case *analytics.SimilarityParams:
		r, err := s.FindSimilarConcepts(ctx, *v)
		return r, r.CacheStatus, err
	case *analytics.PatternParams:
		r, err := s.AnalyzePatterns(ctx, *v)
		return r, r.CacheStatus, err
	case *analytics.ClusterParams:
		r, err := s.GetSemanticClusters(ctx, *v)
		return r, r.CacheStatus, err
	case *analytics.TemporalParams:
		r, err := s.GetTemporalPatterns(ctx, *v)
		return r, r.CacheStatus, err
	}
	return nil, "", fmt.Errorf("%w: %q", analytics.ErrUnknownOperation, op)
}

// GetPerformanceStats reports cache and tool statistics.
func (s *Service) GetPerformanceStats() StatsResponse {
	return StatsResponse{Success: true, Report: s.monitor.Report()}
}

// ClearPerformanceCache empties the result cache and resets its counters.
func (s *Service) ClearPerformanceCache(ctx context.Context) ClearResponse {
	removed := s.cache.Clear()
	s.metrics.RecordCacheClear(ctx, removed)
	return ClearResponse{Success: true, Cleared: true, EntriesRemoved: removed}
}

// AddConcept stores a concept and its relationships, then refreshes the
// graph snapshot and clears the cache so no stale result is served.
func (s *Service) AddConcept(ctx context.Context, in AddConceptInput) (AddConceptResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return AddConceptResponse{}, analytics.ValidationErrors{{Field: "name", Message: "is required"}}
	}
	if len(name) > analytics.MaxConceptLength {
		return AddConceptResponse{}, analytics.ValidationErrors{{
			Field:   "name",
			Message: fmt.Sprintf("must be at most %d bytes", analytics.MaxConceptLength),
		}}
	}

	now := s.now().UTC()
	c := concept.Concept{
		ID:          concept.NewID(name),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Tags:        in.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing, err := s.store.GetConcept(ctx, c.ID); err == nil {
		c.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, concept.ErrConceptNotFound) {
		return AddConceptResponse{}, err
	}

	rels := make([]concept.Relationship, 0, len(in.Relationships))
	for i, ri := range in.Relationships {
		target, err := s.store.FindByName(ctx, ri.To)
		if err != nil {
			return AddConceptResponse{}, fmt.Errorf("relationships[%d]: %w", i, err)
		}
		typ := ri.Type
		if typ == "" {
			typ = concept.RelatedTo
		}
		weight := ri.Weight
		if weight == 0 {
			weight = 0.5
		}
		r := concept.Relationship{
			ID:        concept.NewRelationshipID(c.ID, target.ID, typ),
			From:      c.ID,
			To:        target.ID,
			Type:      typ,
			Weight:    weight,
			CreatedAt: now,
		}
		if err := r.Validate(); err != nil {
			return AddConceptResponse{}, fmt.Errorf("relationships[%d]: %w", i, err)
		}
		rels = append(rels, r)
	}

	if err := s.store.AddConcept(ctx, c); err != nil {
		return AddConceptResponse{}, err
	}
	for _, r := range rels {
		if err := s.store.AddRelationship(ctx, r); err != nil {
			return AddConceptResponse{}, err
		}
	}

	removed, err := s.invalidate(ctx)
	if err != nil {
		return AddConceptResponse{}, err
	}

	logging.Info().
		Add(logging.Component("service")).
		Add(logging.Str("concept", c.Name)).
		Add(logging.Count("relationships", len(rels))).
		Msg("concept added")

	return AddConceptResponse{
		Success:       true,
		Concept:       c,
		Relationships: len(rels),
		CacheCleared:  removed,
	}, nil
}

// Reload applies a dataset to the store and invalidates derived state.
func (s *Service) Reload(ctx context.Context, ds concept.Dataset) error {
	if err := ds.Apply(ctx, s.store, s.now()); err != nil {
		return err
	}
	_, err := s.invalidate(ctx)
	return err
}

// invalidate refreshes the snapshot before clearing, so computations
// started after the clear see the new graph.
func (s *Service) invalidate(ctx context.Context) (int, error) {
	if err := s.snapshot.Refresh(ctx); err != nil {
		return 0, err
	}
	removed := s.cache.Clear()
	s.metrics.RecordCacheClear(ctx, removed)
	return removed, nil
}

// Close releases the cache and the store.
func (s *Service) Close() error {
	return errors.Join(s.cache.Close(), s.store.Close())
}
