// Package concepttest checks concept.Store implementations against the
// behaviour every backend must share.
package concepttest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/concept"
)

// Open returns a fresh, empty store. The harness closes it.
type Open func(t *testing.T) concept.Store

var at = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newConcept(name string, tags ...string) concept.Concept {
	return concept.Concept{
		ID:          concept.NewID(name),
		Name:        name,
		Description: name + " description",
		Tags:        tags,
		CreatedAt:   at,
		UpdatedAt:   at.Add(time.Hour),
	}
}

// Run exercises a store implementation.
func Run(t *testing.T, open Open) {
	t.Helper()

	t.Run("add and get", func(t *testing.T) {
		s := open(t)
		defer func() { _ = s.Close() }()
		ctx := context.Background()

		c := newConcept("Machine Learning", "ai", "learning")
		if err := s.AddConcept(ctx, c); err != nil {
			t.Fatalf("AddConcept() error = %v", err)
		}
		got, err := s.GetConcept(ctx, c.ID)
		if err != nil {
			t.Fatalf("GetConcept() error = %v", err)
		}
		if got.Name != c.Name || got.Description != c.Description || !reflect.DeepEqual(got.Tags, c.Tags) {
			t.Errorf("GetConcept() = %+v, want %+v", got, c)
		}
		if !got.CreatedAt.Equal(c.CreatedAt) || !got.UpdatedAt.Equal(c.UpdatedAt) {
			t.Errorf("timestamps = %v/%v, want %v/%v", got.CreatedAt, got.UpdatedAt, c.CreatedAt, c.UpdatedAt)
		}

		byName, err := s.FindByName(ctx, "  machine learning ")
		if err != nil {
			t.Fatalf("FindByName() error = %v", err)
		}
		if byName.ID != c.ID {
			t.Errorf("FindByName() id = %s, want %s", byName.ID, c.ID)
		}
	})

	t.Run("not found", func(t *testing.T) {
		s := open(t)
		defer func() { _ = s.Close() }()
		ctx := context.Background()

		if _, err := s.GetConcept(ctx, "missing"); !errors.Is(err, concept.ErrConceptNotFound) {
			t.Errorf("GetConcept() error = %v, want ErrConceptNotFound", err)
		}
		if _, err := s.FindByName(ctx, "missing"); !errors.Is(err, concept.ErrConceptNotFound) {
			t.Errorf("FindByName() error = %v, want ErrConceptNotFound", err)
		}
	})

	t.Run("invalid concept", func(t *testing.T) {
		s := open(t)
		defer func() { _ = s.Close() }()

		err := s.AddConcept(context.Background(), concept.Concept{ID: "x"})
		if !errors.Is(err, concept.ErrInvalidConcept) {
			t.Errorf("AddConcept() error = %v, want ErrInvalidConcept", err)
		}
	})

	t.Run("replace keeps one row", func(t *testing.T) {
		s := open(t)
		defer func() { _ = s.Close() }()
		ctx := context.Background()

		c := newConcept("qubits")
		_ = s.AddConcept(ctx, c)
		c.Description = "updated"
		if err := s.AddConcept(ctx, c); err != nil {
			t.Fatalf("AddConcept() error = %v", err)
		}
		n, _, err := s.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 1 {
			t.Errorf("Count() = %d, want 1", n)
		}
		got, _ := s.GetConcept(ctx, c.ID)
		if got.Description != "updated" {
			t.Errorf("Description = %q, want updated", got.Description)
		}
	})

	t.Run("list ordered by name", func(t *testing.T) {
		s := open(t)
		defer func() { _ = s.Close() }()
		ctx := context.Background()

		for _, n := range []string{"statistics", "clustering", "qubits"} {
			if err := s.AddConcept(ctx, newConcept(n)); err != nil {
				t.Fatalf("AddConcept(%s) error = %v", n, err)
			}
		}
		list, err := s.ListConcepts(ctx)
		if err != nil {
			t.Fatalf("ListConcepts() error = %v", err)
		}
		var names []string
		for _, c := range list {
			names = append(names, c.Name)
		}
		if want := []string{"clustering", "qubits", "statistics"}; !reflect.DeepEqual(names, want) {
			t.Errorf("ListConcepts() names = %v, want %v", names, want)
		}
	})

	t.Run("relationships", func(t *testing.T) {
		s := open(t)
		defer func() { _ = s.Close() }()
		ctx := context.Background()

		a, b := newConcept("deep learning"), newConcept("neural networks")
		_ = s.AddConcept(ctx, a)
		_ = s.AddConcept(ctx, b)

		r := concept.Relationship{
			ID:        concept.NewRelationshipID(a.ID, b.ID, concept.RelatedTo),
			From:      a.ID,
			To:        b.ID,
			Type:      concept.RelatedTo,
			Weight:    0.9,
			CreatedAt: at,
		}
		if err := s.AddRelationship(ctx, r); err != nil {
			t.Fatalf("AddRelationship() error = %v", err)
		}
		rels, err := s.ListRelationships(ctx)
		if err != nil {
			t.Fatalf("ListRelationships() error = %v", err)
		}
		if len(rels) != 1 || rels[0].ID != r.ID || rels[0].Weight != 0.9 || rels[0].Type != concept.RelatedTo {
			t.Errorf("ListRelationships() = %+v, want [%+v]", rels, r)
		}
		if !rels[0].CreatedAt.Equal(at) {
			t.Errorf("CreatedAt = %v, want %v", rels[0].CreatedAt, at)
		}

		dangling := r
		dangling.ID = "dangling"
		dangling.To = concept.NewID("nowhere")
		if err := s.AddRelationship(ctx, dangling); !errors.Is(err, concept.ErrConceptNotFound) {
			t.Errorf("AddRelationship(dangling) error = %v, want ErrConceptNotFound", err)
		}

		invalid := r
		invalid.Weight = 2
		if err := s.AddRelationship(ctx, invalid); !errors.Is(err, concept.ErrInvalidRelationship) {
			t.Errorf("AddRelationship(weight 2) error = %v, want ErrInvalidRelationship", err)
		}

		nc, nr, err := s.Count(ctx)
		if err != nil || nc != 2 || nr != 1 {
			t.Errorf("Count() = %d, %d, %v, want 2, 1, nil", nc, nr, err)
		}
	})

	t.Run("dataset round trip", func(t *testing.T) {
		s := open(t)
		defer func() { _ = s.Close() }()
		ctx := context.Background()

		ds := concept.SampleDataset()
		if err := ds.Apply(ctx, s, at); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		g, err := concept.Load(ctx, s)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if g.Len() != len(ds.Concepts) {
			t.Errorf("graph concepts = %d, want %d", g.Len(), len(ds.Concepts))
		}
		if len(g.Relationships()) != len(ds.Relationships) {
			t.Errorf("graph relationships = %d, want %d", len(g.Relationships()), len(ds.Relationships))
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := open(t)
		defer func() { _ = s.Close() }()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := s.ListConcepts(ctx); err == nil {
			t.Error("ListConcepts() error = nil, want context error")
		}
	})
}
