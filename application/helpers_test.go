package application

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/config"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/dataset"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/resilience"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/storage/memory"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type countingRunner struct {
	calls atomic.Int64
}

func (r *countingRunner) Execute(ctx context.Context, _ string, fn resilience.Func) (any, error) {
	r.calls.Add(1)
	return fn(ctx)
}

// newTestService returns a service over the sample dataset with a fixed clock.
func newTestService(t *testing.T, cfg ServiceConfig) *Service {
	t.Helper()
	ctx := context.Background()

	if cfg.Store == nil {
		store := memory.NewConceptStore()
		if err := dataset.Seed(ctx, store, "", testNow); err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		cfg.Store = store
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return testNow }
	}
	if cfg.Analytics == (config.AnalyticsConfig{}) {
		cfg.Analytics = config.Default().Analytics
	}

	svc, err := NewService(ctx, cfg)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}
