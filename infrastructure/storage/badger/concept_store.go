package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/concept-analytics/domain/concept"
)

// ConceptStore is a BadgerDB-backed concept.Store. Concepts, the name index
// and relationships live under separate key prefixes.
type ConceptStore struct {
	db        *badger.DB
	keyPrefix string
	closed    atomic.Bool
	gcStop    chan struct{}
	gcWg      sync.WaitGroup
}

// NewConceptStore opens a store with the given configuration.
func NewConceptStore(cfg Config, opts ...Option) (*ConceptStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &ConceptStore{
		db:        db,
		keyPrefix: cfg.KeyPrefix,
		gcStop:    make(chan struct{}),
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.startGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

// NewConceptStoreFromDB creates a store from an existing database.
func NewConceptStoreFromDB(db *badger.DB, keyPrefix string) *ConceptStore {
	return &ConceptStore{
		db:        db,
		keyPrefix: keyPrefix,
		gcStop:    make(chan struct{}),
	}
}

var _ concept.Store = (*ConceptStore)(nil)

func (s *ConceptStore) startGC(interval time.Duration, discardRatio float64) {
	s.gcWg.Add(1)
	go func() {
		defer s.gcWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.gcStop:
				return
			case <-ticker.C:
				for {
					if err := s.db.RunValueLogGC(discardRatio); err != nil {
						break
					}
				}
			}
		}
	}()
}

func (s *ConceptStore) conceptKey(id string) []byte { return []byte(s.keyPrefix + "concept:" + id) }
func (s *ConceptStore) nameKey(name string) []byte {
	return []byte(s.keyPrefix + "name:" + concept.NormalizeName(name))
}
func (s *ConceptStore) relKey(id string) []byte { return []byte(s.keyPrefix + "rel:" + id) }

func (s *ConceptStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return concept.ErrStoreClosed
	}
	return nil
}

// AddConcept inserts or replaces a concept.
func (s *ConceptStore) AddConcept(ctx context.Context, c concept.Concept) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(s.conceptKey(c.ID))
		switch {
		case err == nil:
			var old concept.Concept
			if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &old) }); err != nil {
				return err
			}
			if err := txn.Delete(s.nameKey(old.Name)); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err := txn.Set(s.conceptKey(c.ID), data); err != nil {
			return err
		}
		return txn.Set(s.nameKey(c.Name), []byte(c.ID))
	})
}

func (s *ConceptStore) get(txn *badger.Txn, id string) (concept.Concept, error) {
	item, err := txn.Get(s.conceptKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return concept.Concept{}, fmt.Errorf("%w: %s", concept.ErrConceptNotFound, id)
	}
	if err != nil {
		return concept.Concept{}, err
	}
	var c concept.Concept
	err = item.Value(func(v []byte) error { return json.Unmarshal(v, &c) })
	return c, err
}

// GetConcept returns a concept by id.
func (s *ConceptStore) GetConcept(ctx context.Context, id string) (concept.Concept, error) {
	if err := s.check(ctx); err != nil {
		return concept.Concept{}, err
	}
	var c concept.Concept
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		c, err = s.get(txn, id)
		return err
	})
	return c, err
}

// FindByName returns a concept by normalized name.
func (s *ConceptStore) FindByName(ctx context.Context, name string) (concept.Concept, error) {
	if err := s.check(ctx); err != nil {
		return concept.Concept{}, err
	}
	var c concept.Concept
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.nameKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %q", concept.ErrConceptNotFound, name)
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		c, err = s.get(txn, string(id))
		return err
	})
	return c, err
}

// scan decodes every value under prefix.
func scan[T any](db *badger.DB, prefix []byte) ([]T, error) {
	out := make([]T, 0)
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var v T
			if err := it.Item().Value(func(b []byte) error { return json.Unmarshal(b, &v) }); err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

// ListConcepts returns all concepts ordered by name.
func (s *ConceptStore) ListConcepts(ctx context.Context) ([]concept.Concept, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out, err := scan[concept.Concept](s.db, []byte(s.keyPrefix+"concept:"))
	if err != nil {
		return nil, err
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
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = concept.NewRelationshipID(r.From, r.To, r.Type)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, id := range []string{r.From, r.To} {
			if _, err := s.get(txn, id); err != nil {
				return err
			}
		}
		return txn.Set(s.relKey(r.ID), data)
	})
}

// ListRelationships returns all relationships ordered by id. Keys share a
// prefix, so iteration order is id order.
func (s *ConceptStore) ListRelationships(ctx context.Context) ([]concept.Relationship, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return scan[concept.Relationship](s.db, []byte(s.keyPrefix+"rel:"))
}

// Count returns the number of concepts and relationships.
func (s *ConceptStore) Count(ctx context.Context) (int, int, error) {
	if err := s.check(ctx); err != nil {
		return 0, 0, err
	}
	var concepts, rels int
	err := s.db.View(func(txn *badger.Txn) error {
		concepts = s.countPrefix(txn, "concept:")
		rels = s.countPrefix(txn, "rel:")
		return nil
	})
	return concepts, rels, err
}

func (s *ConceptStore) countPrefix(txn *badger.Txn, prefix string) int {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(s.keyPrefix + prefix)

	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}

// Close stops garbage collection and closes the database.
func (s *ConceptStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.gcStop)
	s.gcWg.Wait()
	return s.db.Close()
}
