package cache

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/felixgeelhaar/concept-analytics/domain/cache"
)

// Flight runs at most one computation per key at a time. Callers that
// arrive while a computation is in flight attach to it and receive the
// same value or the same error.
type Flight struct {
	group    singleflight.Group
	inFlight atomic.Int64
	runs     atomic.Int64
}

// Do executes fn for key unless a computation for key is already in
// flight, in which case it waits for that one. A caller whose ctx ends
// stops waiting and gets ctx.Err(); the computation itself keeps going
// for the remaining waiters. shared reports whether the result was
// delivered to more than one caller.
func (f *Flight) Do(ctx context.Context, key string, fn func() (any, error)) (value any, shared bool, err error) {
	ch := f.group.DoChan(key, func() (v any, err error) {
		f.inFlight.Add(1)
		f.runs.Add(1)
		defer f.inFlight.Add(-1)
		defer func() {
			// singleflight re-panics on a fresh goroutine for DoChan,
			// which would take the process down.
			if r := recover(); r != nil {
				v, err = nil, &cache.PanicError{Value: r}
			}
		}()
		return fn()
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	}
}

// Forget drops key so the next caller starts a fresh computation.
func (f *Flight) Forget(key string) {
	f.group.Forget(key)
}

// InFlight returns the number of computations currently running.
func (f *Flight) InFlight() int64 {
	return f.inFlight.Load()
}

// Runs returns the number of computations started since creation.
func (f *Flight) Runs() int64 {
	return f.runs.Load()
}

// runBounded calls fn with a context that ignores the caller's
// cancellation but carries its values, bounded by timeout when positive.
// A computation that outlives the timeout is reported as failed with
// context.DeadlineExceeded even if fn does not observe its context.
func runBounded(parent context.Context, timeout time.Duration, fn cache.ComputeFunc) (any, error) {
	ctx := context.WithoutCancel(parent)
	if timeout <= 0 {
		return runGuarded(ctx, fn)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value any
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := runGuarded(ctx, fn)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runGuarded calls fn and converts a panic into a *cache.PanicError.
func runGuarded(ctx context.Context, fn cache.ComputeFunc) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, &cache.PanicError{Value: r}
		}
	}()
	return fn(ctx)
}
