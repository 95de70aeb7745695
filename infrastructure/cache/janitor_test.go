package cache_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	infracache "github.com/felixgeelhaar/concept-analytics/infrastructure/cache"
)

func TestJanitor_Sweeps(t *testing.T) {
	t.Parallel()

	c := infracache.New(infracache.WithDefaultTTL(5 * time.Millisecond))
	var calls atomic.Int32
	c.GetOrCompute(context.Background(), similarityRequest("a"), constant(1, &calls))

	swept := make(chan int, 16)
	j := infracache.NewJanitor(c, 10*time.Millisecond, func(n int) {
		select {
		case swept <- n:
		default:
		}
	})
	j.Start(context.Background())
	defer j.Stop()

	deadline := time.After(2 * time.Second)
	for c.Len() != 0 {
		select {
		case <-swept:
		case <-deadline:
			t.Fatalf("Len() = %d after sweeps, want 0", c.Len())
		}
	}
}

func TestJanitor_StopIdempotent(t *testing.T) {
	t.Parallel()

	j := infracache.NewJanitor(infracache.New(), 0, nil)
	j.Stop()

	j = infracache.NewJanitor(infracache.New(), time.Hour, nil)
	j.Start(context.Background())
	j.Stop()
	j.Stop()
}

func TestJanitor_StopsOnContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	j := infracache.NewJanitor(infracache.New(), time.Hour, nil)
	j.Start(ctx)
	cancel()
	j.Stop()
}
