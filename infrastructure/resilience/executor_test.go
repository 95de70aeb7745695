package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
)

func fastConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent:           10,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		RetryMaxAttempts:        3,
		RetryInitialDelay:       time.Millisecond,
		RetryBackoffMultiplier:  2.0,
		DefaultTimeout:          5 * time.Second,
	}
}

func TestDefaultExecutorConfig(t *testing.T) {
	config := DefaultExecutorConfig()

	if config.MaxConcurrent != 10 {
		t.Errorf("MaxConcurrent = %d, want 10", config.MaxConcurrent)
	}
	if config.CircuitBreakerThreshold != 5 {
		t.Errorf("CircuitBreakerThreshold = %d, want 5", config.CircuitBreakerThreshold)
	}
	if config.RetryMaxAttempts != 3 {
		t.Errorf("RetryMaxAttempts = %d, want 3", config.RetryMaxAttempts)
	}
	if config.DefaultTimeout != 30*time.Second {
		t.Errorf("DefaultTimeout = %v, want 30s", config.DefaultTimeout)
	}
}

func TestExecutor_Execute_Success(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(fastConfig())
	got, err := executor.Execute(context.Background(), "clusters", func(context.Context) (any, error) {
		return []int{1, 2}, nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if v, ok := got.([]int); !ok || len(v) != 2 {
		t.Errorf("Execute() = %v, want [1 2]", got)
	}
}

func TestExecutor_Execute_RetriesTransientFailure(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(fastConfig())
	var calls atomic.Int32
	got, err := executor.Execute(context.Background(), "temporal", func(context.Context) (any, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("transient")
		}
		return "done", nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if got != "done" {
		t.Errorf("Execute() = %v, want done", got)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestExecutor_Execute_Failure(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(fastConfig())
	var calls atomic.Int32
	_, err := executor.Execute(context.Background(), "patterns", func(context.Context) (any, error) {
		calls.Add(1)
		return nil, errors.New("analysis error")
	})
	if err == nil {
		t.Fatal("Execute() should return error")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestExecutor_Execute_ValidationNotRetried(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(fastConfig())
	var calls atomic.Int32
	_, err := executor.Execute(context.Background(), "similarity", func(context.Context) (any, error) {
		calls.Add(1)
		return nil, analytics.ErrValidation
	})
	if err == nil {
		t.Fatal("Execute() should return error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestExecutor_Execute_ContextCancellation(t *testing.T) {
	t.Parallel()

	config := fastConfig()
	config.RetryMaxAttempts = 1
	executor := NewExecutor(config)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := executor.Execute(ctx, "clusters", func(ctx context.Context) (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return "late", nil
		}
	})
	if err == nil {
		t.Error("Execute() should return error on context cancellation")
	}
}

func TestExecutor_ExecuteWithTimeout(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(fastConfig())
	got, err := executor.ExecuteWithTimeout(context.Background(), "similarity", func(ctx context.Context) (any, error) {
		if _, ok := ctx.Deadline(); !ok {
			return nil, fmt.Errorf("no deadline")
		}
		return 42, nil
	}, time.Second)
	if err != nil {
		t.Fatalf("ExecuteWithTimeout() error = %v, want nil", err)
	}
	if got != 42 {
		t.Errorf("ExecuteWithTimeout() = %v, want 42", got)
	}
}

func TestExecutor_CircuitBreakerState(t *testing.T) {
	t.Parallel()

	executor := NewDefaultExecutor()
	if state := executor.CircuitBreakerState(); state.String() != "closed" {
		t.Errorf("Initial CircuitBreakerState() = %v, want closed", state)
	}
}

func TestExecutor_NegativeConfig(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(ExecutorConfig{
		MaxConcurrent:           -1,
		CircuitBreakerThreshold: -1,
		CircuitBreakerTimeout:   30 * time.Second,
		RetryMaxAttempts:        -1,
		DefaultTimeout:          -1,
	})

	got, err := executor.Execute(context.Background(), "temporal", func(context.Context) (any, error) {
		return "ok", nil
	})
	if err != nil {
		t.Errorf("Execute() with negative config error = %v", err)
	}
	if got != "ok" {
		t.Errorf("Execute() = %v, want ok", got)
	}
}

func TestDirect(t *testing.T) {
	t.Parallel()

	var calls int
	_, err := Direct{}.Execute(context.Background(), "x", func(context.Context) (any, error) {
		calls++
		return nil, errors.New("boom")
	})
	if err == nil {
		t.Error("Direct.Execute() should return the error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
