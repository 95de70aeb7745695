// Package memory provides in-memory stores for concepts and tools.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/felixgeelhaar/concept-analytics/domain/concept"
)

// ConceptStore is an in-memory concept.Store.
type ConceptStore struct {
	concepts      map[string]concept.Concept
	byName        map[string]string
	relationships map[string]concept.Relationship
	closed        bool
	mu            sync.RWMutex
}

// NewConceptStore creates an empty store.
func NewConceptStore() *ConceptStore {
	return &ConceptStore{
		concepts:      make(map[string]concept.Concept),
		byName:        make(map[string]string),
		relationships: make(map[string]concept.Relationship),
	}
}

var _ concept.Store = (*ConceptStore)(nil)

// AddConcept inserts or replaces a concept.
func (s *ConceptStore) AddConcept(ctx context.Context, c concept.Concept) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return concept.ErrStoreClosed
	}

	if old, ok := s.concepts[c.ID]; ok {
		delete(s.byName, concept.NormalizeName(old.Name))
	}
	c.Tags = append([]string(nil), c.Tags...)
	s.concepts[c.ID] = c
	s.byName[concept.NormalizeName(c.Name)] = c.ID
	return nil
}

// GetConcept returns a concept by id.
func (s *ConceptStore) GetConcept(ctx context.Context, id string) (concept.Concept, error) {
	if err := ctx.Err(); err != nil {
		return concept.Concept{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return concept.Concept{}, concept.ErrStoreClosed
	}

	c, ok := s.concepts[id]
	if !ok {
		return concept.Concept{}, fmt.Errorf("%w: %s", concept.ErrConceptNotFound, id)
	}
	return clone(c), nil
}

// FindByName returns a concept by normalized name.
func (s *ConceptStore) FindByName(ctx context.Context, name string) (concept.Concept, error) {
	if err := ctx.Err(); err != nil {
		return concept.Concept{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return concept.Concept{}, concept.ErrStoreClosed
	}

	id, ok := s.byName[concept.NormalizeName(name)]
	if !ok {
		return concept.Concept{}, fmt.Errorf("%w: %q", concept.ErrConceptNotFound, name)
	}
	return clone(s.concepts[id]), nil
}

// ListConcepts returns all concepts ordered by name.
func (s *ConceptStore) ListConcepts(ctx context.Context) ([]concept.Concept, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, concept.ErrStoreClosed
	}

	out := make([]concept.Concept, 0, len(s.concepts))
	for _, c := range s.concepts {
		out = append(out, clone(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// AddRelationship inserts or replaces a relationship. Both endpoints must exist.
func (s *ConceptStore) AddRelationship(ctx context.Context, r concept.Relationship) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return concept.ErrStoreClosed
	}

	for _, id := range []string{r.From, r.To} {
		if _, ok := s.concepts[id]; !ok {
			return fmt.Errorf("%w: %s", concept.ErrConceptNotFound, id)
		}
	}
	if r.ID == "" {
		r.ID = concept.NewRelationshipID(r.From, r.To, r.Type)
	}
	s.relationships[r.ID] = r
	return nil
}

// ListRelationships returns all relationships ordered by id.
func (s *ConceptStore) ListRelationships(ctx context.Context) ([]concept.Relationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, concept.ErrStoreClosed
	}

	out := make([]concept.Relationship, 0, len(s.relationships))
	for _, r := range s.relationships {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count returns the number of concepts and relationships.
func (s *ConceptStore) Count(ctx context.Context) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, 0, concept.ErrStoreClosed
	}
	return len(s.concepts), len(s.relationships), nil
}

// Close marks the store closed.
func (s *ConceptStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func clone(c concept.Concept) concept.Concept {
	c.Tags = append([]string(nil), c.Tags...)
	return c
}
