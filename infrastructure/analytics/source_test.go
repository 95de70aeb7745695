package analytics_test

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/concept-analytics/domain/concept"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/analytics"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/storage/memory"
)

func TestSnapshotter_Refresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewConceptStore()
	t.Cleanup(func() { _ = store.Close() })

	s, err := analytics.NewSnapshotter(ctx, store)
	if err != nil {
		t.Fatalf("NewSnapshotter() error = %v", err)
	}
	if n := s.Graph().Len(); n != 0 {
		t.Errorf("initial Len() = %d, want 0", n)
	}

	before := s.Graph()
	c := concept.Concept{ID: concept.NewID("Graph"), Name: "Graph"}
	if err := store.AddConcept(ctx, c); err != nil {
		t.Fatalf("AddConcept() error = %v", err)
	}
	if n := s.Graph().Len(); n != 0 {
		t.Errorf("Len() before Refresh = %d, want 0", n)
	}

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if n := s.Graph().Len(); n != 1 {
		t.Errorf("Len() after Refresh = %d, want 1", n)
	}
	if before.Len() != 0 {
		t.Errorf("old snapshot Len() = %d, want 0", before.Len())
	}
}

func TestSnapshotter_ClosedStore(t *testing.T) {
	t.Parallel()

	store := memory.NewConceptStore()
	_ = store.Close()

	if _, err := analytics.NewSnapshotter(context.Background(), store); err == nil {
		t.Error("NewSnapshotter() error = nil, want error")
	}
}
