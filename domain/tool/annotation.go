// Package tool provides the domain model for the analytics tools exposed
// to clients.
package tool

// Annotations describe tool behavior to clients and middleware.
type Annotations struct {
	// ReadOnly indicates the tool has no side effects.
	ReadOnly bool `json:"read_only"`

	// Idempotent indicates multiple calls with same input yield same result.
	Idempotent bool `json:"idempotent"`

	// Cacheable indicates results are served through the analytics cache.
	Cacheable bool `json:"cacheable"`

	// Destructive indicates the tool discards state.
	Destructive bool `json:"destructive"`

	// Tags are arbitrary labels for categorization.
	Tags []string `json:"tags,omitempty"`
}

// ReadOnlyAnnotations returns annotations for a cached, read-only analytic.
func ReadOnlyAnnotations() Annotations {
	return Annotations{
		ReadOnly:   true,
		Idempotent: true,
		Cacheable:  true,
	}
}

// CanRetry returns true if the tool can be safely retried on failure.
func (a Annotations) CanRetry() bool {
	return a.Idempotent || a.ReadOnly
}
