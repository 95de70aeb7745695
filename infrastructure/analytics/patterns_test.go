package analytics

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
)

func TestCommunities(t *testing.T) {
	t.Parallel()

	got, err := communities(context.Background(), twoTriangles())
	if err != nil {
		t.Fatalf("communities() error = %v", err)
	}
	want := []analytics.ClusterPattern{
		{ClusterID: 0, Size: 3, Coherence: 1, Members: []string{"a", "b", "c"}},
		{ClusterID: 1, Size: 3, Coherence: 1, Members: []string{"d", "e", "f"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("communities() = %+v, want %+v", got, want)
	}
}

func TestCommunities_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := communities(ctx, twoTriangles()); err == nil {
		t.Error("communities() error = nil, want context.Canceled")
	}
}

func TestCentrality(t *testing.T) {
	t.Parallel()

	got := centrality(twoTriangles())
	if len(got) != 7 {
		t.Fatalf("len = %d, want 7", len(got))
	}
	if got[0].Node != "a" || got[0].Degree != 2 {
		t.Errorf("first = %+v, want a with degree 2", got[0])
	}
	if math.Abs(got[0].DegreeCentrality-0.3333) > 1e-9 {
		t.Errorf("DegreeCentrality = %v, want 0.3333", got[0].DegreeCentrality)
	}
	last := got[len(got)-1]
	if last.Node != "g" || last.Degree != 0 || last.DegreeCentrality != 0 {
		t.Errorf("last = %+v, want isolated g", last)
	}
}

func TestEngine_Patterns(t *testing.T) {
	t.Parallel()

	g := sampleGraph(t)
	e := NewEngine(Static{G: g}, WithClock(func() time.Time { return testNow }))
	ctx := context.Background()

	t.Run("relationships cover the window", func(t *testing.T) {
		t.Parallel()

		p := analytics.NewPatternParams(analytics.AnalysisRelationships)
		p.TimeRangeDays = 3650
		got, err := e.Patterns(ctx, p)
		if err != nil {
			t.Fatalf("Patterns() error = %v", err)
		}
		total := 0
		prev := math.MaxInt
		for _, pat := range got {
			r, ok := pat.(analytics.RelationshipPattern)
			if !ok {
				t.Fatalf("pattern type = %T, want RelationshipPattern", pat)
			}
			if r.Frequency > prev {
				t.Errorf("frequencies not descending: %d after %d", r.Frequency, prev)
			}
			if r.Strength < 0 || r.Strength > 1 {
				t.Errorf("strength = %v, want [0,1]", r.Strength)
			}
			prev = r.Frequency
			total += r.Frequency
		}
		if total != len(g.Relationships()) {
			t.Errorf("total frequency = %d, want %d", total, len(g.Relationships()))
		}
	})

	t.Run("short window sees fewer edges", func(t *testing.T) {
		t.Parallel()

		p := analytics.NewPatternParams(analytics.AnalysisRelationships)
		p.TimeRangeDays = 1
		got, err := e.Patterns(ctx, p)
		if err != nil {
			t.Fatalf("Patterns() error = %v", err)
		}
		if got == nil {
			t.Error("Patterns() = nil, want empty slice")
		}
	})

	t.Run("clusters", func(t *testing.T) {
		t.Parallel()

		got, err := e.Patterns(ctx, analytics.NewPatternParams(analytics.AnalysisClusters))
		if err != nil {
			t.Fatalf("Patterns() error = %v", err)
		}
		if len(got) == 0 {
			t.Fatal("Patterns(clusters) is empty")
		}
		for i, pat := range got {
			c := pat.(analytics.ClusterPattern)
			if c.ClusterID != i || c.Size < 2 || c.Size != len(c.Members) {
				t.Errorf("cluster %d = %+v", i, c)
			}
			if c.Coherence < 0 || c.Coherence > 1 {
				t.Errorf("coherence = %v, want [0,1]", c.Coherence)
			}
		}
	})

	t.Run("temporal keeps most recent buckets", func(t *testing.T) {
		t.Parallel()

		p := analytics.PatternParams{AnalysisType: analytics.AnalysisTemporal, MaxResults: 5, TimeRangeDays: 30}
		got, err := e.Patterns(ctx, p)
		if err != nil {
			t.Fatalf("Patterns() error = %v", err)
		}
		if len(got) != 5 {
			t.Fatalf("len = %d, want 5", len(got))
		}
		last := got[4].(analytics.TemporalPattern)
		if last.TimePeriod != "2024-03-15" {
			t.Errorf("last period = %s, want 2024-03-15", last.TimePeriod)
		}
	})

	t.Run("centrality truncated", func(t *testing.T) {
		t.Parallel()

		p := analytics.PatternParams{AnalysisType: analytics.AnalysisCentrality, MaxResults: 3, TimeRangeDays: 30}
		got, err := e.Patterns(ctx, p)
		if err != nil {
			t.Fatalf("Patterns() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("len = %d, want 3", len(got))
		}
		top := got[0].(analytics.CentralityPattern)
		if top.Node != "machine learning" {
			t.Errorf("top node = %s, want machine learning", top.Node)
		}
	})
}
