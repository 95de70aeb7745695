package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
	icache "github.com/felixgeelhaar/concept-analytics/infrastructure/cache"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/resilience"
)

type countingRunner struct {
	calls []string
}

func (r *countingRunner) Execute(ctx context.Context, name string, fn resilience.Func) (any, error) {
	r.calls = append(r.calls, name)
	return fn(ctx)
}

type bogusParams struct{}

func (bogusParams) Operation() analytics.Operation { return "bogus" }
func (bogusParams) Normalize()                     {}
func (bogusParams) Validate() error                { return nil }
func (bogusParams) KeyParams() map[string]any      { return nil }

func TestDispatcher_Dispatch(t *testing.T) {
	t.Parallel()

	e := NewEngine(Static{G: sampleGraph(t)}, WithClock(func() time.Time { return testNow }))
	d := NewDispatcher(e)
	ctx := context.Background()

	sim := analytics.NewSimilarityParams("machine learning")
	pat := analytics.NewPatternParams(analytics.AnalysisCentrality)
	clu := analytics.NewClusterParams(analytics.MethodKMeans)
	tem := analytics.NewTemporalParams(analytics.GranularityWeek)

	tests := []struct {
		name  string
		p     analytics.Params
		check func(any) bool
	}{
		{"similarity", &sim, func(v any) bool { _, ok := v.([]analytics.SimilarConcept); return ok }},
		{"patterns", &pat, func(v any) bool { _, ok := v.([]analytics.Pattern); return ok }},
		{"clusters", &clu, func(v any) bool { _, ok := v.([]analytics.Cluster); return ok }},
		{"temporal", &tem, func(v any) bool { _, ok := v.([]analytics.TemporalPattern); return ok }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Dispatch(ctx, tt.p)
			if err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if !tt.check(got) {
				t.Errorf("Dispatch() returned %T", got)
			}
		})
	}

	t.Run("unknown variant", func(t *testing.T) {
		if _, err := d.Dispatch(ctx, bogusParams{}); !errors.Is(err, analytics.ErrUnknownOperation) {
			t.Errorf("Dispatch() error = %v, want ErrUnknownOperation", err)
		}
		if _, err := d.Dispatch(ctx, nil); !errors.Is(err, analytics.ErrUnknownOperation) {
			t.Errorf("Dispatch(nil) error = %v, want ErrUnknownOperation", err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		bad := analytics.SimilarityParams{Concept: "x", MaxResults: 1000}
		if _, err := d.Dispatch(ctx, &bad); !errors.Is(err, analytics.ErrValidation) {
			t.Errorf("Dispatch() error = %v, want ErrValidation", err)
		}
	})
}

func TestDispatcher_ComputeUsesRunner(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{}
	d := NewDispatcher(NewEngine(Static{G: sampleGraph(t)}), WithRunner(runner))

	p := analytics.NewClusterParams(analytics.MethodHierarchical)
	got, err := d.Compute(&p)(context.Background())
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if _, ok := got.([]analytics.Cluster); !ok {
		t.Errorf("Compute() returned %T", got)
	}
	if len(runner.calls) != 1 || runner.calls[0] != "clusters" {
		t.Errorf("runner calls = %v, want [clusters]", runner.calls)
	}
}

func TestDispatcher_ThroughCache(t *testing.T) {
	t.Parallel()

	codec := icache.NewCodec()
	RegisterDefaults(codec)
	c := icache.New(icache.WithCodec(codec))
	defer func() { _ = c.Close() }()

	d := NewDispatcher(NewEngine(Static{G: sampleGraph(t)}, WithClock(func() time.Time { return testNow })))
	ctx := context.Background()

	explicit := analytics.NewTemporalParams(analytics.GranularityDay)
	if _, status, err := c.GetOrCompute(ctx, Request(&explicit), d.Compute(&explicit)); err != nil || status != "miss" {
		t.Fatalf("first call = %v, %v, want miss", status, err)
	}

	decoded, err := analytics.Decode(analytics.OpTemporal, []byte(`{"time_granularity":"day"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if _, status, err := c.GetOrCompute(ctx, Request(decoded), d.Compute(decoded)); err != nil || status != "hit" {
		t.Errorf("second call = %v, %v, want hit", status, err)
	}
	if n := c.Computations(); n != 1 {
		t.Errorf("Computations() = %d, want 1", n)
	}
}
