package logging

import (
	"strconv"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// ToolName adds a tool name field.
func ToolName(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("tool", name)
	}
}

// Operation adds an analytic operation field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// CacheKey adds a cache key field.
func CacheKey(key string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("cache_key", key)
	}
}

// CacheStatus adds the hit/miss status of a call.
func CacheStatus(status string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("cache_status", status)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// DurationNs adds a duration field in nanoseconds.
func DurationNs(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ns", d.Nanoseconds())
	}
}

// Count adds an integer field with a custom key.
func Count(key string, n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, n)
	}
}

// Ratio adds a float field rendered with four decimals.
func Ratio(key string, v float64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, strconv.FormatFloat(v, 'f', 4, 64))
	}
}

// Success adds a success flag.
func Success(ok bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("success", ok)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// RequestID adds a request correlation id.
func RequestID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("request_id", id)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Path adds a filesystem path field.
func Path(p string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("path", p)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
