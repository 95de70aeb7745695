// Package performance defines the runtime performance report of the
// analytics service.
package performance

import (
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/cache"
)

// ToolStat aggregates the calls of one tool.
type ToolStat struct {
	// ToolName is the tool identifier.
	ToolName string `json:"tool_name"`

	// CallCount is the number of times the tool was called.
	CallCount int64 `json:"call_count"`

	// SuccessCount is the number of successful calls.
	SuccessCount int64 `json:"success_count"`

	// ErrorCount is the number of failed calls.
	ErrorCount int64 `json:"error_count"`

	// CacheHits is the number of calls answered from the cache.
	CacheHits int64 `json:"cache_hits"`

	// AverageMs is the mean call latency in milliseconds.
	AverageMs float64 `json:"average_ms"`

	// MinMs is the fastest call in milliseconds.
	MinMs float64 `json:"min_ms"`

	// MaxMs is the slowest call in milliseconds.
	MaxMs float64 `json:"max_ms"`

	// LastCalled is when the tool last completed.
	LastCalled time.Time `json:"last_called"`
}

// Latency summarizes recent call latencies in milliseconds.
type Latency struct {
	Samples int     `json:"samples"`
	P50     float64 `json:"p50_ms"`
	P95     float64 `json:"p95_ms"`
	P99     float64 `json:"p99_ms"`
}

// Report is a point-in-time view of service performance.
type Report struct {
	CachePerformance    cache.Stats         `json:"cache_performance"`
	ToolMetrics         map[string]ToolStat `json:"tool_metrics"`
	Latency             Latency             `json:"latency"`
	UptimeSeconds       float64             `json:"uptime_seconds"`
	MemoryEstimateBytes int64               `json:"memory_estimate_bytes"`
	GeneratedAt         time.Time           `json:"generated_at"`
}

// Call describes one completed tool call.
type Call struct {
	Tool     string
	Duration time.Duration
	Success  bool
	CacheHit bool
}

// Recorder receives completed tool calls.
type Recorder interface {
	RecordCall(c Call)
}
