package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/cache"
	infracache "github.com/felixgeelhaar/concept-analytics/infrastructure/cache"
)

func TestFlight_SingleExecution(t *testing.T) {
	t.Parallel()

	var f infracache.Flight
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	fn := func() (any, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "result", nil
	}

	const n = 10
	results := make([]any, n)
	errs := make([]error, n)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _, errs[0] = f.Do(context.Background(), "k", fn)
	}()
	<-started

	for i := 1; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = f.Do(context.Background(), "k", fn)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("fn called %d times, want 1", got)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d error = %v", i, errs[i])
		}
		if results[i] != "result" {
			t.Errorf("caller %d result = %v, want result", i, results[i])
		}
	}
	if f.InFlight() != 0 {
		t.Errorf("InFlight() = %d, want 0", f.InFlight())
	}
}

func TestFlight_ErrorReachesEveryWaiter(t *testing.T) {
	t.Parallel()

	var f infracache.Flight
	boom := errors.New("boom")
	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	errs := make([]error, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, errs[0] = f.Do(context.Background(), "k", func() (any, error) {
			close(started)
			<-release
			return nil, boom
		})
	}()
	<-started
	for i := 1; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = f.Do(context.Background(), "k", func() (any, error) {
				return "fresh", nil
			})
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if !errors.Is(errs[0], boom) {
		t.Errorf("owner error = %v, want boom", errs[0])
	}
	for i := 1; i < 5; i++ {
		// A late caller may start a fresh attempt after the failure resolved.
		if errs[i] != nil && !errors.Is(errs[i], boom) {
			t.Errorf("waiter %d error = %v", i, errs[i])
		}
	}

	v, _, err := f.Do(context.Background(), "k", func() (any, error) { return "retry", nil })
	if err != nil || v != "retry" {
		t.Errorf("retry = %v, %v; want retry, nil", v, err)
	}
}

func TestFlight_WaiterCancellation(t *testing.T) {
	t.Parallel()

	var f infracache.Flight
	started := make(chan struct{})
	release := make(chan struct{})

	ownerDone := make(chan any)
	go func() {
		v, _, _ := f.Do(context.Background(), "k", func() (any, error) {
			close(started)
			<-release
			return 42, nil
		})
		ownerDone <- v
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := f.Do(ctx, "k", func() (any, error) { return 0, nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled waiter error = %v, want context.Canceled", err)
	}

	close(release)
	if v := <-ownerDone; v != 42 {
		t.Errorf("owner result = %v, want 42", v)
	}
}

func TestFlight_PanicBecomesError(t *testing.T) {
	t.Parallel()

	var f infracache.Flight
	_, _, err := f.Do(context.Background(), "k", func() (any, error) {
		panic("kaboom")
	})

	var pe *cache.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want PanicError", err)
	}
	if pe.Value != "kaboom" {
		t.Errorf("panic value = %v, want kaboom", pe.Value)
	}
}

func TestFlight_IndependentKeys(t *testing.T) {
	t.Parallel()

	var f infracache.Flight
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_, _, _ = f.Do(context.Background(), "slow", func() (any, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, _, err := f.Do(ctx, "fast", func() (any, error) { return "fast", nil })
	if err != nil || v != "fast" {
		t.Errorf("Do(fast) = %v, %v; want fast, nil", v, err)
	}
}
