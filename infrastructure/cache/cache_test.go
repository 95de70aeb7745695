package cache_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/cache"
	infracache "github.com/felixgeelhaar/concept-analytics/infrastructure/cache"
)

func similarityRequest(concept string) infracache.Request {
	return infracache.Request{
		Operation: "similarity",
		Params:    map[string]any{"concept": concept, "max_results": 5},
	}
}

func constant(v any, calls *atomic.Int32) cache.ComputeFunc {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return v, nil
	}
}

func TestCache_MissThenHit(t *testing.T) {
	t.Parallel()

	c := infracache.New()
	ctx := context.Background()
	var calls atomic.Int32
	result := []string{"deep learning", "neural networks"}

	v, status, err := c.GetOrCompute(ctx, similarityRequest("machine learning"), constant(result, &calls))
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if status != cache.StatusMiss {
		t.Errorf("first status = %s, want miss", status)
	}

	v2, status, err := c.GetOrCompute(ctx, similarityRequest("machine learning"), constant(nil, &calls))
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if status != cache.StatusHit {
		t.Errorf("second status = %s, want hit", status)
	}
	if !reflect.DeepEqual(v, v2) {
		t.Errorf("hit result = %v, want %v", v2, v)
	}
	if calls.Load() != 1 {
		t.Errorf("computations = %d, want 1", calls.Load())
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.TotalLookups != 2 {
		t.Errorf("stats = %+v, want 1 hit 1 miss", stats)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", stats.HitRate)
	}
	if stats.Size != 1 {
		t.Errorf("Size = %d, want 1", stats.Size)
	}
}

func TestCache_ClearResets(t *testing.T) {
	t.Parallel()

	c := infracache.New()
	ctx := context.Background()
	var calls atomic.Int32

	for i := 0; i < 3; i++ {
		if _, _, err := c.GetOrCompute(ctx, similarityRequest("ai"), constant(1, &calls)); err != nil {
			t.Fatalf("GetOrCompute() error = %v", err)
		}
	}

	if removed := c.Clear(); removed != 1 {
		t.Errorf("Clear() = %d, want 1", removed)
	}
	stats := c.Stats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.TotalLookups != 0 || stats.Size != 0 {
		t.Errorf("stats after clear = %+v, want zeros", stats)
	}
	if stats.LastCleared == nil {
		t.Error("LastCleared should be set after clear")
	}

	_, status, _ := c.GetOrCompute(ctx, similarityRequest("ai"), constant(1, &calls))
	if status != cache.StatusMiss {
		t.Errorf("status after clear = %s, want miss", status)
	}
	if calls.Load() != 2 {
		t.Errorf("computations = %d, want 2", calls.Load())
	}
}

func TestCache_SingleFlight(t *testing.T) {
	t.Parallel()

	for _, n := range []int{5, 20, 50} {
		t.Run(fmt.Sprintf("%d callers", n), func(t *testing.T) {
			t.Parallel()

			c := infracache.New()
			var calls atomic.Int32
			release := make(chan struct{})
			fn := func(context.Context) (any, error) {
				calls.Add(1)
				<-release
				return map[string]any{"clusters": 3}, nil
			}

			var wg sync.WaitGroup
			results := make([]any, n)
			statuses := make([]cache.Status, n)
			errs := make([]error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], statuses[i], errs[i] = c.GetOrCompute(context.Background(), infracache.Request{
						Operation: "clusters",
						Params:    map[string]any{"cluster_method": "kmeans"},
					}, fn)
				}(i)
			}

			time.Sleep(30 * time.Millisecond)
			close(release)
			wg.Wait()

			if calls.Load() != 1 {
				t.Errorf("computations = %d, want 1", calls.Load())
			}
			for i := 0; i < n; i++ {
				if errs[i] != nil {
					t.Fatalf("caller %d error = %v", i, errs[i])
				}
				if !reflect.DeepEqual(results[i], results[0]) {
					t.Errorf("caller %d result = %v, want %v", i, results[i], results[0])
				}
			}

			stats := c.Stats()
			if stats.TotalLookups != int64(n) {
				t.Errorf("TotalLookups = %d, want %d", stats.TotalLookups, n)
			}
			if stats.Hits+stats.Misses != stats.TotalLookups {
				t.Errorf("hits + misses = %d, want %d", stats.Hits+stats.Misses, stats.TotalLookups)
			}
		})
	}
}

func TestCache_FailureNotCached(t *testing.T) {
	t.Parallel()

	c := infracache.New()
	ctx := context.Background()
	boom := errors.New("analytic failed")

	_, _, err := c.GetOrCompute(ctx, similarityRequest("x"), func(context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, cache.ErrComputation) {
		t.Fatalf("error = %v, want ErrComputation", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, should wrap cause", err)
	}
	var ce *cache.ComputationError
	if !errors.As(err, &ce) || ce.Operation != "similarity" {
		t.Errorf("ComputationError = %+v", ce)
	}

	stats := c.Stats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.Size != 0 {
		t.Errorf("stats after failure = %+v, want no lookups and no entries", stats)
	}
	if stats.Failures != 1 {
		t.Errorf("Failures = %d, want 1", stats.Failures)
	}

	var calls atomic.Int32
	_, status, err := c.GetOrCompute(ctx, similarityRequest("x"), constant("ok", &calls))
	if err != nil || status != cache.StatusMiss {
		t.Errorf("retry = %s, %v; want miss, nil", status, err)
	}
}

func TestCache_Timeout(t *testing.T) {
	t.Parallel()

	c := infracache.New(infracache.WithComputeTimeout(20 * time.Millisecond))
	_, _, err := c.GetOrCompute(context.Background(), similarityRequest("slow"), func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if !errors.Is(err, cache.ErrComputation) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want ComputationError wrapping DeadlineExceeded", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestCache_TimeoutIgnoringContext(t *testing.T) {
	t.Parallel()

	c := infracache.New()
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, _, err := c.GetOrCompute(context.Background(), infracache.Request{
		Operation: "temporal",
		Timeout:   20 * time.Millisecond,
	}, func(context.Context) (any, error) {
		<-release
		return "late", nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timed out after %s, want prompt return", elapsed)
	}
}

func TestCache_ClearDuringFlight(t *testing.T) {
	t.Parallel()

	c := infracache.New()
	started := make(chan struct{})
	release := make(chan struct{})

	type outcome struct {
		value  any
		status cache.Status
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		v, s, err := c.GetOrCompute(context.Background(), similarityRequest("stale"), func(context.Context) (any, error) {
			close(started)
			<-release
			return "stale result", nil
		})
		done <- outcome{v, s, err}
	}()

	<-started
	c.Clear()
	close(release)

	got := <-done
	if got.err != nil || got.value != "stale result" || got.status != cache.StatusMiss {
		t.Errorf("in-flight caller = %+v, want stale result miss", got)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0: result computed before clear must not be stored", c.Len())
	}
	if stats := c.Stats(); stats.TotalLookups != 0 {
		t.Errorf("TotalLookups = %d, want 0 after clear", stats.TotalLookups)
	}

	var calls atomic.Int32
	_, status, _ := c.GetOrCompute(context.Background(), similarityRequest("stale"), constant("fresh", &calls))
	if status != cache.StatusMiss || calls.Load() != 1 {
		t.Errorf("after clear status = %s, computations = %d; want miss, 1", status, calls.Load())
	}
}

func TestCache_CallerAfterClearWaitsForFlight(t *testing.T) {
	t.Parallel()

	c := infracache.New()
	var running, peak atomic.Int32
	enter := func() {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				return
			}
		}
	}

	started := make(chan struct{})
	release := make(chan struct{})
	staleDone := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrCompute(context.Background(), similarityRequest("k"), func(context.Context) (any, error) {
			enter()
			defer running.Add(-1)
			close(started)
			<-release
			return "stale", nil
		})
		staleDone <- err
	}()

	<-started
	c.Clear()

	var calls atomic.Int32
	type outcome struct {
		value any
		err   error
	}
	fresh := make(chan outcome, 1)
	go func() {
		v, _, err := c.GetOrCompute(context.Background(), similarityRequest("k"), func(context.Context) (any, error) {
			enter()
			defer running.Add(-1)
			calls.Add(1)
			return "fresh", nil
		})
		fresh <- outcome{v, err}
	}()

	time.Sleep(20 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("computations after clear = %d while stale flight runs, want 0", n)
	}
	close(release)

	if err := <-staleDone; err != nil {
		t.Fatalf("stale caller error = %v", err)
	}
	got := <-fresh
	if got.err != nil || got.value != "fresh" {
		t.Errorf("caller after clear = %+v, want fresh", got)
	}
	if calls.Load() != 1 {
		t.Errorf("computations after clear = %d, want 1", calls.Load())
	}
	if peak.Load() != 1 {
		t.Errorf("peak concurrent computations = %d, want 1", peak.Load())
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1 fresh entry", c.Len())
	}
}

func TestCache_WaiterCancellation(t *testing.T) {
	t.Parallel()

	c := infracache.New()
	started := make(chan struct{})
	release := make(chan struct{})

	ownerDone := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrCompute(context.Background(), similarityRequest("k"), func(context.Context) (any, error) {
			close(started)
			<-release
			return "value", nil
		})
		ownerDone <- err
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := c.GetOrCompute(ctx, similarityRequest("k"), func(context.Context) (any, error) {
		t.Error("waiter must not compute")
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled waiter error = %v, want context.Canceled", err)
	}

	close(release)
	if err := <-ownerDone; err != nil {
		t.Fatalf("owner error = %v", err)
	}

	_, status, _ := c.GetOrCompute(context.Background(), similarityRequest("k"), nil)
	if status != cache.StatusHit {
		t.Errorf("status = %s, want hit: cancellation must not affect the cache write", status)
	}
}

func TestCache_OwnerCancellationKeepsComputation(t *testing.T) {
	t.Parallel()

	c := infracache.New()
	started := make(chan struct{})
	release := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	ownerDone := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrCompute(ctx, similarityRequest("k"), func(cctx context.Context) (any, error) {
			close(started)
			<-release
			return "value", cctx.Err()
		})
		ownerDone <- err
	}()
	<-started
	cancel()
	if err := <-ownerDone; !errors.Is(err, context.Canceled) {
		t.Fatalf("owner error = %v, want context.Canceled", err)
	}

	close(release)
	deadline := time.Now().Add(time.Second)
	for c.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1: computation should complete for the cache", c.Len())
	}
}

func TestCache_IsolationAcrossKeys(t *testing.T) {
	t.Parallel()

	c := infracache.New()
	ctx := context.Background()
	var calls atomic.Int32

	c.GetOrCompute(ctx, similarityRequest("a"), constant("A", &calls))
	c.GetOrCompute(ctx, similarityRequest("a"), constant("A", &calls))

	v, status, _ := c.GetOrCompute(ctx, similarityRequest("b"), constant("B", &calls))
	if status != cache.StatusMiss || v != "B" {
		t.Errorf("key b = %v %s, want B miss", v, status)
	}
	v, status, _ = c.GetOrCompute(ctx, similarityRequest("a"), constant("X", &calls))
	if status != cache.StatusHit || v != "A" {
		t.Errorf("key a = %v %s, want A hit", v, status)
	}
}

func TestCache_OperationTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := infracache.New(
		infracache.WithTimeSource(clock.Now),
		infracache.WithDefaultTTL(time.Hour),
		infracache.WithOperationTTL("temporal", time.Minute),
	)
	ctx := context.Background()
	var calls atomic.Int32
	temporal := infracache.Request{Operation: "temporal", Params: map[string]any{"time_granularity": "day"}}
	similarity := similarityRequest("ai")

	c.GetOrCompute(ctx, temporal, constant(1, &calls))
	c.GetOrCompute(ctx, similarity, constant(2, &calls))

	clock.Advance(2 * time.Minute)

	if _, status, _ := c.GetOrCompute(ctx, temporal, constant(1, &calls)); status != cache.StatusMiss {
		t.Errorf("temporal status = %s, want miss after its TTL", status)
	}
	if _, status, _ := c.GetOrCompute(ctx, similarity, constant(2, &calls)); status != cache.StatusHit {
		t.Errorf("similarity status = %s, want hit within its TTL", status)
	}
	if got := c.TTL("temporal"); got != time.Minute {
		t.Errorf("TTL(temporal) = %s, want 1m", got)
	}
	if exp := c.Stats().Expirations; exp != 1 {
		t.Errorf("Expirations = %d, want 1", exp)
	}
}

func TestCache_SweepAndEviction(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := infracache.New(
		infracache.WithTimeSource(clock.Now),
		infracache.WithMaxEntries(2),
		infracache.WithShardCount(1),
		infracache.WithDefaultTTL(time.Minute),
	)
	ctx := context.Background()
	var calls atomic.Int32
	for _, name := range []string{"a", "b", "c"} {
		c.GetOrCompute(ctx, similarityRequest(name), constant(name, &calls))
	}

	stats := c.Stats()
	if stats.Evictions != 1 || stats.Size != 2 || stats.MaxEntries != 2 {
		t.Errorf("stats = %+v, want 1 eviction, size 2, max 2", stats)
	}

	clock.Advance(2 * time.Minute)
	if removed := c.Sweep(); removed != 2 {
		t.Errorf("Sweep() = %d, want 2", removed)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestCache_KeyDerivationError(t *testing.T) {
	t.Parallel()

	c := infracache.New()
	_, _, err := c.GetOrCompute(context.Background(), infracache.Request{
		Operation: "similarity",
		Params:    map[string]any{"handle": make(chan int)},
	}, func(context.Context) (any, error) {
		t.Error("compute must not run")
		return nil, nil
	})
	if !errors.Is(err, cache.ErrKeyDerivation) {
		t.Fatalf("error = %v, want ErrKeyDerivation", err)
	}
	if stats := c.Stats(); stats.TotalLookups != 0 || stats.Failures != 0 {
		t.Errorf("stats = %+v, want untouched", stats)
	}
}

func TestCache_PanicIsComputationError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []infracache.Option
	}{
		{"bounded", nil},
		{"unbounded", []infracache.Option{infracache.WithComputeTimeout(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := infracache.New(tt.opts...)
			_, _, err := c.GetOrCompute(context.Background(), similarityRequest("p"), func(context.Context) (any, error) {
				panic("bad input")
			})
			var pe *cache.PanicError
			if !errors.Is(err, cache.ErrComputation) || !errors.As(err, &pe) {
				t.Errorf("error = %v, want ComputationError wrapping PanicError", err)
			}
			if stats := c.Stats(); stats.Failures != 1 {
				t.Errorf("Failures = %d, want 1", stats.Failures)
			}
		})
	}
}

func TestDo_Typed(t *testing.T) {
	t.Parallel()

	c := infracache.New()
	ctx := context.Background()

	got, status, err := infracache.Do(ctx, c, similarityRequest("typed"), func(context.Context) ([]int, error) {
		return []int{1, 2, 3}, nil
	})
	if err != nil || status != cache.StatusMiss || len(got) != 3 {
		t.Fatalf("Do() = %v, %s, %v", got, status, err)
	}

	_, _, err = infracache.Do(ctx, c, similarityRequest("typed"), func(context.Context) (string, error) {
		return "", nil
	})
	if !errors.Is(err, cache.ErrComputation) {
		t.Errorf("type mismatch error = %v, want ErrComputation", err)
	}
}

func TestCache_Close(t *testing.T) {
	t.Parallel()

	c := infracache.New()
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, _, err := c.GetOrCompute(context.Background(), similarityRequest("a"), nil); !errors.Is(err, cache.ErrClosed) {
		t.Errorf("error = %v, want ErrClosed", err)
	}
}

func TestCache_ConcurrentMixedWithClear(t *testing.T) {
	t.Parallel()

	c := infracache.New(infracache.WithMaxEntries(16))
	ctx := context.Background()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				req := infracache.Request{Operation: "patterns", Params: map[string]any{"n": i % 10}}
				if _, _, err := c.GetOrCompute(ctx, req, func(context.Context) (any, error) { return i % 10, nil }); err != nil {
					t.Errorf("GetOrCompute() error = %v", err)
					return
				}
				if g == 0 && i%50 == 0 {
					c.Clear()
				}
			}
		}(g)
	}
	wg.Wait()

	stats := c.Stats()
	if stats.Hits+stats.Misses != stats.TotalLookups {
		t.Errorf("inconsistent stats %+v", stats)
	}
	if stats.Size > 16 {
		t.Errorf("Size = %d, want <= 16", stats.Size)
	}
}

func TestCache_HitFasterThanMiss(t *testing.T) {
	t.Parallel()

	c := infracache.New()
	ctx := context.Background()
	req := similarityRequest("slow")
	slow := func(context.Context) (any, error) {
		time.Sleep(20 * time.Millisecond)
		return "v", nil
	}

	const misses, hits = 3, 20
	var missTotal time.Duration
	for i := 0; i < misses; i++ {
		c.Clear()
		start := time.Now()
		if _, status, err := c.GetOrCompute(ctx, req, slow); err != nil || status != cache.StatusMiss {
			t.Fatalf("miss %d: status = %s, err = %v", i, status, err)
		}
		missTotal += time.Since(start)
	}

	var hitTotal time.Duration
	for i := 0; i < hits; i++ {
		start := time.Now()
		if _, status, err := c.GetOrCompute(ctx, req, slow); err != nil || status != cache.StatusHit {
			t.Fatalf("hit %d: status = %s, err = %v", i, status, err)
		}
		hitTotal += time.Since(start)
	}

	missAvg := missTotal / misses
	hitAvg := hitTotal / hits
	if hitAvg >= missAvg/2 {
		t.Errorf("average hit = %v, want < half of average miss %v", hitAvg, missAvg)
	}
}

func BenchmarkCache_Hit(b *testing.B) {
	c := infracache.New()
	ctx := context.Background()
	req := similarityRequest("bench")
	fn := func(context.Context) (any, error) { return "v", nil }
	c.GetOrCompute(ctx, req, fn)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.GetOrCompute(ctx, req, fn)
	}
}

func BenchmarkCache_Miss(b *testing.B) {
	c := infracache.New()
	ctx := context.Background()
	req := similarityRequest("bench")
	fn := func(context.Context) (any, error) {
		time.Sleep(100 * time.Microsecond)
		return "v", nil
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Clear()
		c.GetOrCompute(ctx, req, fn)
	}
}
