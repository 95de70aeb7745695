package analytics

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/felixgeelhaar/concept-analytics/domain/concept"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
)

// Snapshotter keeps an immutable graph snapshot of a store. Readers never
// block; Refresh swaps in a new snapshot atomically.
type Snapshotter struct {
	store concept.Store
	graph atomic.Pointer[concept.Graph]
	mu    sync.Mutex
}

// NewSnapshotter loads the initial snapshot of store.
func NewSnapshotter(ctx context.Context, store concept.Store) (*Snapshotter, error) {
	s := &Snapshotter{store: store}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Graph implements GraphSource.
func (s *Snapshotter) Graph() *concept.Graph {
	return s.graph.Load()
}

// Refresh reloads the snapshot from the store.
func (s *Snapshotter) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := concept.Load(ctx, s.store)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	s.graph.Store(g)

	logging.Debug().
		Add(logging.Component("snapshotter")).
		Add(logging.Count("concepts", g.Len())).
		Add(logging.Count("relationships", len(g.Relationships()))).
		Msg("graph snapshot refreshed")
	return nil
}
