// Package performance tracks per-tool latency and builds performance reports.
package performance

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/cache"
	"github.com/felixgeelhaar/concept-analytics/domain/performance"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
)

// Monitor defaults.
const (
	DefaultSampleSize = 1000
	SlowToolThreshold = time.Second

	bytesPerEntry = 1 << 10
	baseMemory    = 10 << 20
)

// Monitor aggregates tool calls. It is safe for concurrent use.
type Monitor struct {
	mu      sync.Mutex
	tools   map[string]*toolStat
	samples []float64
	next    int
	full    bool
	started time.Time
	now     func() time.Time
	cache   cache.StatsProvider
}

type toolStat struct {
	performance.ToolStat
	totalMs float64
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithSampleSize sets the size of the latency ring.
func WithSampleSize(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.samples = make([]float64, n)
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// WithCache includes the statistics of c in reports.
func WithCache(c cache.StatsProvider) Option {
	return func(m *Monitor) {
		m.cache = c
	}
}

// NewMonitor creates a monitor.
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		tools:   make(map[string]*toolStat),
		samples: make([]float64, DefaultSampleSize),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.started = m.now()
	return m
}

var _ performance.Recorder = (*Monitor)(nil)

// RecordCall implements performance.Recorder.
func (m *Monitor) RecordCall(c performance.Call) {
	ms := float64(c.Duration) / float64(time.Millisecond)

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.tools[c.Tool]
	if !ok {
		s = &toolStat{ToolStat: performance.ToolStat{ToolName: c.Tool, MinMs: ms, MaxMs: ms}}
		m.tools[c.Tool] = s
	}
	s.CallCount++
	if c.Success {
		s.SuccessCount++
	} else {
		s.ErrorCount++
	}
	if c.CacheHit {
		s.CacheHits++
	}
	s.totalMs += ms
	s.AverageMs = s.totalMs / float64(s.CallCount)
	s.MinMs = math.Min(s.MinMs, ms)
	s.MaxMs = math.Max(s.MaxMs, ms)
	s.LastCalled = m.now()

	m.samples[m.next] = ms
	m.next++
	if m.next == len(m.samples) {
		m.next = 0
		m.full = true
	}
}

// Report builds a snapshot of the current statistics.
func (m *Monitor) Report() performance.Report {
	var stats cache.Stats
	if m.cache != nil {
		stats = m.cache.Stats()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tools := make(map[string]performance.ToolStat, len(m.tools))
	for name, s := range m.tools {
		tools[name] = s.ToolStat
	}

	window := m.window()
	now := m.now()
	return performance.Report{
		CachePerformance: stats,
		ToolMetrics:      tools,
		Latency: performance.Latency{
			Samples: len(window),
			P50:     Percentile(window, 50),
			P95:     Percentile(window, 95),
			P99:     Percentile(window, 99),
		},
		UptimeSeconds:       now.Sub(m.started).Seconds(),
		MemoryEstimateBytes: int64(stats.Size)*bytesPerEntry + baseMemory,
		GeneratedAt:         now.UTC(),
	}
}

// SlowTools returns the tools whose average latency exceeds threshold, by name.
func (m *Monitor) SlowTools(threshold time.Duration) []performance.ToolStat {
	limit := float64(threshold) / float64(time.Millisecond)

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []performance.ToolStat
	for _, s := range m.tools {
		if s.AverageMs > limit {
			out = append(out, s.ToolStat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ToolName < out[j].ToolName })
	return out
}

// Reset drops all tool statistics and latency samples.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = make(map[string]*toolStat)
	m.next = 0
	m.full = false
}

// LogSummary writes the current report at info level and slow tools at warn.
func (m *Monitor) LogSummary() {
	r := m.Report()
	logging.Info().
		Add(logging.Component("performance")).
		Add(logging.Ratio("hit_rate", r.CachePerformance.HitRate)).
		Add(logging.Count("cache_size", r.CachePerformance.Size)).
		Add(logging.Count("samples", r.Latency.Samples)).
		Add(logging.Ratio("p95_ms", r.Latency.P95)).
		Msg("performance summary")

	for _, s := range m.SlowTools(SlowToolThreshold) {
		logging.Warn().
			Add(logging.Component("performance")).
			Add(logging.ToolName(s.ToolName)).
			Add(logging.Ratio("average_ms", s.AverageMs)).
			Msg("slow tool")
	}
}

// window returns a copy of the recorded samples. Callers hold m.mu.
func (m *Monitor) window() []float64 {
	n := m.next
	if m.full {
		n = len(m.samples)
	}
	out := make([]float64, n)
	copy(out, m.samples[:n])
	return out
}

// Percentile returns the p-th percentile (0..100) of values using linear
// interpolation between closest ranks. It returns 0 for no values.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p = math.Max(0, math.Min(100, p))
	idx := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper {
		return sorted[lower]
	}
	return sorted[lower] + (idx-float64(lower))*(sorted[upper]-sorted[lower])
}
