package badger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/concept-analytics/domain/concept"
	"github.com/felixgeelhaar/concept-analytics/domain/concept/concepttest"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/storage/badger"
)

func newTestStore(t *testing.T) *badger.ConceptStore {
	t.Helper()
	store, err := badger.NewConceptStore(badger.DefaultConfig(), badger.WithInMemory())
	if err != nil {
		t.Fatalf("NewConceptStore failed: %v", err)
	}
	return store
}

func TestConceptStore(t *testing.T) {
	concepttest.Run(t, func(t *testing.T) concept.Store {
		return newTestStore(t)
	})
}

func TestConceptStore_Rename(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()
	ctx := context.Background()

	c := concept.Concept{ID: "fixed-id", Name: "old name"}
	_ = store.AddConcept(ctx, c)
	c.Name = "new name"
	if err := store.AddConcept(ctx, c); err != nil {
		t.Fatalf("AddConcept() error = %v", err)
	}

	if _, err := store.FindByName(ctx, "old name"); !errors.Is(err, concept.ErrConceptNotFound) {
		t.Errorf("FindByName(old) error = %v, want ErrConceptNotFound", err)
	}
	if got, err := store.FindByName(ctx, "NEW NAME"); err != nil || got.ID != "fixed-id" {
		t.Errorf("FindByName(new) = %+v, %v", got, err)
	}
}

func TestConceptStore_KeyPrefixIsolation(t *testing.T) {
	a, err := badger.NewConceptStore(badger.DefaultConfig(), badger.WithDir(t.TempDir()), badger.WithKeyPrefix("a/"), badger.WithGCInterval(0))
	if err != nil {
		t.Fatalf("NewConceptStore failed: %v", err)
	}
	defer a.Close()
	ctx := context.Background()

	_ = a.AddConcept(ctx, concept.Concept{ID: concept.NewID("x"), Name: "x"})
	n, _, err := a.Count(ctx)
	if err != nil || n != 1 {
		t.Errorf("Count() = %d, %v, want 1", n, err)
	}
}

func TestConceptStore_Closed(t *testing.T) {
	store := newTestStore(t)
	_ = store.Close()
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := store.ListConcepts(context.Background()); !errors.Is(err, concept.ErrStoreClosed) {
		t.Errorf("ListConcepts() error = %v, want ErrStoreClosed", err)
	}
}
