package analytics

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
)

func TestEngine_Similar(t *testing.T) {
	t.Parallel()

	e := NewEngine(Static{G: sampleGraph(t)}, WithClock(func() time.Time { return testNow }))
	ctx := context.Background()

	t.Run("known concept ranks its neighbours", func(t *testing.T) {
		t.Parallel()

		got, err := e.Similar(ctx, analytics.NewSimilarityParams("machine learning"))
		if err != nil {
			t.Fatalf("Similar() error = %v", err)
		}
		found := false
		for _, s := range got {
			if s.Concept == "machine learning" {
				t.Error("Similar() returned the query concept itself")
			}
			if s.Concept == "deep learning" {
				found = true
				if len(s.SharedTags) == 0 {
					t.Error("deep learning SharedTags is empty, want ai and learning")
				}
			}
		}
		if !found {
			t.Errorf("Similar() = %+v, want deep learning included", got)
		}
	})

	t.Run("invariants", func(t *testing.T) {
		t.Parallel()

		p := analytics.SimilarityParams{Concept: "learning", MaxResults: 5, SimilarityThreshold: analytics.Threshold(0)}
		got, err := e.Similar(ctx, p)
		if err != nil {
			t.Fatalf("Similar() error = %v", err)
		}
		if len(got) != 5 {
			t.Fatalf("len = %d, want 5", len(got))
		}
		for i, s := range got {
			if s.Similarity < 0 || s.Similarity > 1 {
				t.Errorf("similarity = %v, want [0,1]", s.Similarity)
			}
			if i > 0 && got[i-1].Similarity < s.Similarity {
				t.Errorf("results not sorted at %d: %v < %v", i, got[i-1].Similarity, s.Similarity)
			}
		}
	})

	t.Run("threshold filters", func(t *testing.T) {
		t.Parallel()

		p := analytics.SimilarityParams{Concept: "quantum", MaxResults: 10, SimilarityThreshold: analytics.Threshold(0.5)}
		got, err := e.Similar(ctx, p)
		if err != nil {
			t.Fatalf("Similar() error = %v", err)
		}
		names := map[string]bool{}
		for _, s := range got {
			if s.Similarity < 0.5 {
				t.Errorf("%s similarity = %v, below threshold", s.Concept, s.Similarity)
			}
			names[s.Concept] = true
		}
		if !names["quantum computing"] {
			t.Errorf("Similar(quantum) = %+v, want quantum computing", got)
		}
		if names["cryptography"] {
			t.Error("Similar(quantum) included cryptography")
		}
	})

	t.Run("unknown text returns empty non-nil", func(t *testing.T) {
		t.Parallel()

		p := analytics.SimilarityParams{Concept: "zzzz", MaxResults: 10, SimilarityThreshold: analytics.Threshold(0.9)}
		got, err := e.Similar(ctx, p)
		if err != nil {
			t.Fatalf("Similar() error = %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("Similar(zzzz) = %#v, want empty slice", got)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()

		p := analytics.SimilarityParams{Concept: "neural networks", MaxResults: 10, SimilarityThreshold: analytics.Threshold(0.1)}
		a, _ := e.Similar(ctx, p)
		b, _ := e.Similar(ctx, p)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("Similar() not deterministic:\n%+v\n%+v", a, b)
		}
	})
}
