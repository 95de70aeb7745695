// Package resilience guards analytic computations with fortify's bulkhead,
// circuit breaker and retry patterns.
package resilience

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
	"github.com/felixgeelhaar/concept-analytics/domain/concept"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
)

// Func is a guarded computation.
type Func func(ctx context.Context) (any, error)

// Runner executes a named computation.
type Runner interface {
	Execute(ctx context.Context, name string, fn Func) (any, error)
}

// Executor runs computations behind a bulkhead, a timeout, a circuit breaker
// and a retry policy, in that order.
type Executor struct {
	bulkhead bulkhead.Bulkhead[any]
	breaker  circuitbreaker.CircuitBreaker[any]
	retry    retry.Retry[any]
	timeout  time.Duration
}

// ExecutorConfig configures the executor.
type ExecutorConfig struct {
	// MaxConcurrent limits concurrent computations.
	MaxConcurrent int

	// CircuitBreakerThreshold is the number of consecutive failures before opening.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long the circuit stays open.
	CircuitBreakerTimeout time.Duration

	// RetryMaxAttempts is the maximum number of attempts.
	RetryMaxAttempts int

	// RetryInitialDelay is the initial delay between attempts.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64

	// DefaultTimeout bounds a single guarded computation, retries included.
	DefaultTimeout time.Duration
}

// DefaultExecutorConfig returns the default configuration.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent:           10,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		RetryMaxAttempts:        3,
		RetryInitialDelay:       100 * time.Millisecond,
		RetryBackoffMultiplier:  2.0,
		DefaultTimeout:          30 * time.Second,
	}
}

// nonRetryable are caller errors; repeating the computation cannot fix them.
var nonRetryable = []error{
	analytics.ErrValidation,
	analytics.ErrUnknownOperation,
	concept.ErrConceptNotFound,
	context.Canceled,
	context.DeadlineExceeded,
}

// NewExecutor creates an executor.
func NewExecutor(config ExecutorConfig) *Executor {
	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	threshold := config.CircuitBreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}
	attempts := config.RetryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	multiplier := config.RetryBackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	timeout := config.DefaultTimeout
	if timeout <= 0 {
		timeout = DefaultExecutorConfig().DefaultTimeout
	}

	return &Executor{
		bulkhead: bulkhead.New[any](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
		}),
		breaker: circuitbreaker.New[any](circuitbreaker.Config{
			MaxRequests: uint32(maxConcurrent), // #nosec G115 -- bounds checked above
			Interval:    config.CircuitBreakerTimeout,
			Timeout:     config.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		}),
		retry: retry.New[any](retry.Config{
			MaxAttempts:        attempts,
			InitialDelay:       config.RetryInitialDelay,
			BackoffPolicy:      retry.BackoffExponential,
			Multiplier:         multiplier,
			NonRetryableErrors: nonRetryable,
		}),
		timeout: timeout,
	}
}

// NewDefaultExecutor creates an executor with default configuration.
func NewDefaultExecutor() *Executor {
	return NewExecutor(DefaultExecutorConfig())
}

// Execute runs fn with the resilience patterns applied.
func (e *Executor) Execute(ctx context.Context, name string, fn Func) (any, error) {
	start := time.Now()

	result, err := e.bulkhead.Execute(ctx, func(ctx context.Context) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		return e.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
			return e.retry.Do(ctx, func(ctx context.Context) (any, error) {
				return fn(ctx)
			})
		})
	})

	if err != nil {
		logging.Debug().
			Add(logging.Operation(name)).
			Add(logging.Duration(time.Since(start))).
			Add(logging.Str("breaker", e.breaker.State().String())).
			Add(logging.ErrorField(err)).
			Msg("guarded computation failed")
	}
	return result, err
}

// ExecuteWithTimeout runs fn with a caller supplied deadline.
func (e *Executor) ExecuteWithTimeout(ctx context.Context, name string, fn Func, timeout time.Duration) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return e.Execute(ctx, name, fn)
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (e *Executor) CircuitBreakerState() circuitbreaker.State {
	return e.breaker.State()
}

// Direct runs computations without any guard.
type Direct struct{}

// Execute implements Runner.
func (Direct) Execute(ctx context.Context, _ string, fn Func) (any, error) {
	return fn(ctx)
}
