package tool

import (
	"encoding/json"
	"time"
)

// Result contains the output of a tool execution.
type Result struct {
	// Output is the encoded response record.
	Output json.RawMessage `json:"output"`

	// Duration is how long the execution took.
	Duration time.Duration `json:"duration"`

	// CacheStatus is "hit" or "miss" for cached analytics, empty otherwise.
	CacheStatus string `json:"cache_status,omitempty"`

	// Failed indicates the response record reports success=false.
	Failed bool `json:"failed,omitempty"`
}

// ErrorType classifies a failed response for clients.
type ErrorType string

// Error types reported in failed responses.
const (
	ErrorValidation    ErrorType = "validation"
	ErrorKeyDerivation ErrorType = "key_derivation"
	ErrorComputation   ErrorType = "computation"
	ErrorTimeout       ErrorType = "timeout"
	ErrorCancelled     ErrorType = "cancelled"
	ErrorRateLimited   ErrorType = "rate_limited"
	ErrorInternal      ErrorType = "internal"
)

// ErrorBody describes a failed call.
type ErrorBody struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
}

// Failure is the response record of a failed call.
type Failure struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// NewFailure builds a failed response record.
func NewFailure(t ErrorType, message string) Failure {
	return Failure{Error: ErrorBody{Type: t, Message: message}}
}

// JSONResult encodes v as the output of a result.
func JSONResult(v any) (Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: data}, nil
}

// FailureResult encodes a failed response record.
func FailureResult(t ErrorType, message string) Result {
	data, _ := json.Marshal(NewFailure(t, message))
	return Result{Output: data, Failed: true}
}

// Cached reports whether the result was served from the cache.
func (r Result) Cached() bool {
	return r.CacheStatus == "hit"
}

// OutputString returns the output as a string for convenience.
func (r Result) OutputString() string {
	return string(r.Output)
}
