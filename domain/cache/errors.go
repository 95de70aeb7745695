package cache

import (
	"errors"
	"fmt"
)

// Domain errors for cache operations.
var (
	// ErrKeyDerivation is returned when parameters cannot be canonicalized.
	ErrKeyDerivation = errors.New("key derivation failed")

	// ErrComputation is returned when the computation for a missing key fails or times out.
	ErrComputation = errors.New("computation failed")

	// ErrInvalidKey is returned when an operation name is empty.
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrClosed is returned when the cache has been closed.
	ErrClosed = errors.New("cache closed")
)

// KeyDerivationError describes a parameter value that cannot be encoded.
type KeyDerivationError struct {
	// Path locates the offending value, e.g. "params.filter[2]".
	Path string
	// Kind is the Go kind or type that was rejected.
	Kind string
}

// Error implements error.
func (e *KeyDerivationError) Error() string {
	return fmt.Sprintf("key derivation failed: %s: unsupported value of kind %s", e.Path, e.Kind)
}

// Is makes errors.Is(err, ErrKeyDerivation) hold.
func (e *KeyDerivationError) Is(target error) bool {
	return target == ErrKeyDerivation
}

// ComputationError wraps a failed computation for an operation.
type ComputationError struct {
	Operation string
	Err       error
}

// Error implements error.
func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation failed: %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ComputationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrComputation) hold.
func (e *ComputationError) Is(target error) bool {
	return target == ErrComputation
}

// PanicError is the cause recorded when a computation panics.
type PanicError struct {
	Value any
}

// Error implements error.
func (e *PanicError) Error() string {
	return fmt.Sprintf("computation panicked: %v", e.Value)
}
