package application

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
	"github.com/felixgeelhaar/concept-analytics/domain/cache"
	"github.com/felixgeelhaar/concept-analytics/domain/concept"
	"github.com/felixgeelhaar/concept-analytics/domain/config"
)

func TestNewService_RequiresStore(t *testing.T) {
	t.Parallel()

	_, err := NewService(context.Background(), ServiceConfig{})
	if !errors.Is(err, ErrNoStore) {
		t.Errorf("NewService() error = %v, want ErrNoStore", err)
	}
}

func TestService_FindSimilarConcepts_MissThenHit(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ServiceConfig{})
	ctx := context.Background()
	p := analytics.NewSimilarityParams("machine learning")

	first, err := svc.FindSimilarConcepts(ctx, p)
	if err != nil {
		t.Fatalf("FindSimilarConcepts() error = %v", err)
	}
	if first.CacheStatus != cache.StatusMiss {
		t.Errorf("first CacheStatus = %q, want %q", first.CacheStatus, cache.StatusMiss)
	}
	if !first.Success {
		t.Error("first Success = false, want true")
	}
	if first.TotalFound != len(first.SimilarConcepts) {
		t.Errorf("TotalFound = %d, want %d", first.TotalFound, len(first.SimilarConcepts))
	}

	second, err := svc.FindSimilarConcepts(ctx, p)
	if err != nil {
		t.Fatalf("FindSimilarConcepts() error = %v", err)
	}
	if second.CacheStatus != cache.StatusHit {
		t.Errorf("second CacheStatus = %q, want %q", second.CacheStatus, cache.StatusHit)
	}
	if !reflect.DeepEqual(first.SimilarConcepts, second.SimilarConcepts) {
		t.Error("cached payload differs from computed payload")
	}

	stats := svc.Cache().Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Stats() hits=%d misses=%d, want 1/1", stats.Hits, stats.Misses)
	}
}

func TestService_Query_DefaultsShareKey(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	if _, status, err := svc.Query(ctx, analytics.OpSimilarity, []byte(`{"concept":"deep learning"}`)); err != nil || status != cache.StatusMiss {
		t.Fatalf("Query() status = %q, err = %v, want miss", status, err)
	}

	d := config.Default().Analytics
	explicit := fmt.Sprintf(`{"concept":"deep learning","max_results":%d,"similarity_threshold":%v}`, d.MaxResults, d.SimilarityThreshold)
	_, status, err := svc.Query(ctx, analytics.OpSimilarity, []byte(explicit))
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if status != cache.StatusHit {
		t.Errorf("explicit defaults status = %q, want %q", status, cache.StatusHit)
	}
}

func TestService_FindSimilarConcepts_ZeroValueMatchesToolDefaults(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	resp, err := svc.FindSimilarConcepts(ctx, analytics.SimilarityParams{Concept: "deep learning"})
	if err != nil {
		t.Fatalf("FindSimilarConcepts() error = %v", err)
	}
	if resp.SimilarityThreshold != analytics.DefaultSimilarityThreshold {
		t.Errorf("SimilarityThreshold = %v, want %v", resp.SimilarityThreshold, analytics.DefaultSimilarityThreshold)
	}

	_, status, err := svc.Query(ctx, analytics.OpSimilarity, []byte(`{"concept":"deep learning"}`))
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if status != cache.StatusHit {
		t.Errorf("tool-shaped query status = %q, want %q", status, cache.StatusHit)
	}
}

func TestService_Query_Operations(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	tests := []struct {
		op    analytics.Operation
		input string
		want  any
	}{
		{analytics.OpSimilarity, `{"concept":"statistics"}`, SimilarityResponse{}},
		{analytics.OpPatterns, `{"analysis_type":"centrality"}`, PatternResponse{}},
		{analytics.OpClusters, `{"cluster_method":"hierarchical","num_clusters":3}`, ClusterResponse{}},
		{analytics.OpTemporal, `{"time_granularity":"month","days_back":90}`, TemporalResponse{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			got, status, err := svc.Query(ctx, tt.op, []byte(tt.input))
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if status != cache.StatusMiss {
				t.Errorf("Query() status = %q, want %q", status, cache.StatusMiss)
			}
			if reflect.TypeOf(got) != reflect.TypeOf(tt.want) {
				t.Errorf("Query() returned %T, want %T", got, tt.want)
			}
		})
	}
}

func TestService_Query_ValidationFailure(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	tests := []struct {
		name  string
		op    analytics.Operation
		input string
	}{
		{"empty concept", analytics.OpSimilarity, `{"concept":""}`},
		{"threshold out of range", analytics.OpSimilarity, `{"concept":"ai","similarity_threshold":1.5}`},
		{"unknown method", analytics.OpClusters, `{"cluster_method":"spectral"}`},
		{"unknown field", analytics.OpTemporal, `{"granularity":"day"}`},
		{"malformed", analytics.OpPatterns, `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Query(ctx, tt.op, []byte(tt.input))
			if !errors.Is(err, analytics.ErrValidation) {
				t.Fatalf("Query() error = %v, want ErrValidation", err)
			}
		})
	}

	if stats := svc.Cache().Stats(); stats.TotalLookups != 0 {
		t.Errorf("TotalLookups = %d, want 0 after rejected queries", stats.TotalLookups)
	}
}

func TestService_NewParams_ConfiguredDefaults(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ServiceConfig{Analytics: config.AnalyticsConfig{
		MaxResults:     3,
		NumClusters:    7,
		MinClusterSize: 4,
		DaysBack:       14,
	}})

	p, err := svc.NewParams(analytics.OpSimilarity)
	if err != nil {
		t.Fatalf("NewParams() error = %v", err)
	}
	if got := p.(*analytics.SimilarityParams).MaxResults; got != 3 {
		t.Errorf("MaxResults = %d, want 3", got)
	}

	p, _ = svc.NewParams(analytics.OpClusters)
	if c := p.(*analytics.ClusterParams); c.NumClusters != 7 || c.MinClusterSize != 4 {
		t.Errorf("ClusterParams = %+v, want num 7 min 4", *c)
	}

	p, _ = svc.NewParams(analytics.OpTemporal)
	if got := p.(*analytics.TemporalParams).DaysBack; got != 14 {
		t.Errorf("DaysBack = %d, want 14", got)
	}

	if _, err := svc.NewParams("bogus"); !errors.Is(err, analytics.ErrUnknownOperation) {
		t.Errorf("NewParams(bogus) error = %v, want ErrUnknownOperation", err)
	}
}

func TestService_ConcurrentQueriesComputeOnce(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{}
	svc := newTestService(t, ServiceConfig{Runner: runner})
	ctx := context.Background()
	p := analytics.NewClusterParams(analytics.MethodKMeans)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.GetSemanticClusters(ctx, p); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("GetSemanticClusters() error = %v", err)
	}

	if got := runner.calls.Load(); got != 1 {
		t.Errorf("computations = %d, want 1", got)
	}
}

func TestService_ClearPerformanceCache(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	if _, err := svc.AnalyzePatterns(ctx, analytics.NewPatternParams(analytics.AnalysisRelationships)); err != nil {
		t.Fatalf("AnalyzePatterns() error = %v", err)
	}
	if _, err := svc.GetTemporalPatterns(ctx, analytics.NewTemporalParams(analytics.GranularityDay)); err != nil {
		t.Fatalf("GetTemporalPatterns() error = %v", err)
	}

	resp := svc.ClearPerformanceCache(ctx)
	if !resp.Success || !resp.Cleared {
		t.Errorf("ClearPerformanceCache() = %+v, want success", resp)
	}
	if resp.EntriesRemoved != 2 {
		t.Errorf("EntriesRemoved = %d, want 2", resp.EntriesRemoved)
	}

	stats := svc.GetPerformanceStats().CachePerformance
	if stats.Size != 0 || stats.TotalLookups != 0 {
		t.Errorf("stats after clear = %+v, want empty", stats)
	}
	if stats.LastCleared == nil {
		t.Error("LastCleared = nil, want timestamp")
	}

	again := svc.ClearPerformanceCache(ctx)
	if again.EntriesRemoved != 0 {
		t.Errorf("second clear EntriesRemoved = %d, want 0", again.EntriesRemoved)
	}
}

func TestService_AddConcept_InvalidatesCache(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ServiceConfig{})
	ctx := context.Background()
	p := analytics.NewSimilarityParams("machine learning")

	if _, err := svc.FindSimilarConcepts(ctx, p); err != nil {
		t.Fatalf("FindSimilarConcepts() error = %v", err)
	}

	resp, err := svc.AddConcept(ctx, AddConceptInput{
		Name:        "  feature engineering ",
		Description: "Building model inputs from raw data",
		Tags:        []string{"ai", "learning", "data"},
		Relationships: []RelationshipInput{
			{To: "machine learning", Type: concept.PartOf, Weight: 0.8},
			{To: "data science"},
		},
	})
	if err != nil {
		t.Fatalf("AddConcept() error = %v", err)
	}
	if resp.Concept.Name != "feature engineering" {
		t.Errorf("Name = %q, want trimmed", resp.Concept.Name)
	}
	if resp.Relationships != 2 {
		t.Errorf("Relationships = %d, want 2", resp.Relationships)
	}
	if resp.CacheCleared != 1 {
		t.Errorf("CacheCleared = %d, want 1", resp.CacheCleared)
	}

	after, err := svc.FindSimilarConcepts(ctx, p)
	if err != nil {
		t.Fatalf("FindSimilarConcepts() error = %v", err)
	}
	if after.CacheStatus != cache.StatusMiss {
		t.Errorf("CacheStatus after write = %q, want %q", after.CacheStatus, cache.StatusMiss)
	}

	got, err := svc.store.FindByName(ctx, "feature engineering")
	if err != nil {
		t.Fatalf("FindByName() error = %v", err)
	}
	if !got.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, testNow)
	}
}

func TestService_AddConcept_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	tests := []struct {
		name string
		in   AddConceptInput
		want error
	}{
		{"empty name", AddConceptInput{Name: "   "}, analytics.ErrValidation},
		{"unknown target", AddConceptInput{Name: "x", Relationships: []RelationshipInput{{To: "nowhere"}}}, concept.ErrConceptNotFound},
		{"bad weight", AddConceptInput{Name: "x", Relationships: []RelationshipInput{{To: "statistics", Weight: 3}}}, concept.ErrInvalidRelationship},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddConcept(ctx, tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("AddConcept() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := svc.store.FindByName(ctx, "x"); !errors.Is(err, concept.ErrConceptNotFound) {
		t.Errorf("rejected concept was stored: err = %v", err)
	}
}

func TestService_Reload(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	p := analytics.NewTemporalParams(analytics.GranularityWeek)
	if _, err := svc.GetTemporalPatterns(ctx, p); err != nil {
		t.Fatalf("GetTemporalPatterns() error = %v", err)
	}

	ds := concept.Dataset{Concepts: []concept.ConceptSpec{{Name: "edge computing", Tags: []string{"computing"}}}}
	if err := svc.Reload(ctx, ds); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if _, err := svc.store.FindByName(ctx, "edge computing"); err != nil {
		t.Errorf("FindByName() error = %v", err)
	}
	if size := svc.Cache().Stats().Size; size != 0 {
		t.Errorf("cache size after reload = %d, want 0", size)
	}
}
