package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/concept-analytics/domain/tool"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/performance"
)

// Benchmark targets.
const (
	TargetHitRate = 0.8
	TargetSpeedUp = 5.0
)

// Caller invokes a tool by name.
type Caller interface {
	Call(ctx context.Context, name string, input json.RawMessage) (tool.Result, error)
}

// BenchConfig configures a benchmark run.
type BenchConfig struct {
	// MissIterations is the number of cold calls, each after a clear.
	MissIterations int
	// HitIterations is the number of warm calls.
	HitIterations int
	// ConcurrentUsers is the number of simulated clients.
	ConcurrentUsers int
	// RequestsPerUser is the number of calls each client makes.
	RequestsPerUser int
	// ToolIterations is the number of calls per tool for latency percentiles.
	ToolIterations int
}

// DefaultBenchConfig returns the standard benchmark shape.
func DefaultBenchConfig() BenchConfig {
	return BenchConfig{
		MissIterations:  10,
		HitIterations:   20,
		ConcurrentUsers: 10,
		RequestsPerUser: 5,
		ToolIterations:  20,
	}
}

// CacheBench compares cold and warm latency of one query.
type CacheBench struct {
	MissMs           float64 `json:"cache_miss_latency_ms"`
	HitMs            float64 `json:"cache_hit_latency_ms"`
	SpeedUp          float64 `json:"speed_improvement"`
	HitRate          float64 `json:"hit_rate"`
	UnexpectedMisses int     `json:"unexpected_misses"`
	MeetsHitRate     bool    `json:"meets_hit_rate_target"`
	MeetsSpeedUp     bool    `json:"meets_speed_improvement"`
}

// ToolBench is the latency distribution of one tool.
type ToolBench struct {
	Tool    string  `json:"tool"`
	Samples int     `json:"samples"`
	Errors  int     `json:"errors"`
	MeanMs  float64 `json:"mean_ms"`
	P50     float64 `json:"p50_ms"`
	P95     float64 `json:"p95_ms"`
	P99     float64 `json:"p99_ms"`
}

// ConcurrencyBench summarizes concurrent clients.
type ConcurrencyBench struct {
	Users             int     `json:"users"`
	Requests          int     `json:"requests"`
	Errors            int64   `json:"errors"`
	DurationMs        float64 `json:"duration_ms"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

// BenchReport is the result of Bench.
type BenchReport struct {
	Cache       CacheBench       `json:"cache"`
	Tools       []ToolBench      `json:"tools"`
	Concurrency ConcurrencyBench `json:"concurrency"`
	Passed      bool             `json:"passed"`
}

type benchCase struct {
	tool  string
	input json.RawMessage
}

var benchCases = []benchCase{
	{ToolFindSimilarConcepts, json.RawMessage(`{"concept":"machine learning","max_results":5}`)},
	{ToolAnalyzePatterns, json.RawMessage(`{"analysis_type":"centrality"}`)},
	{ToolGetSemanticClusters, json.RawMessage(`{"cluster_method":"hierarchical"}`)},
	{ToolGetTemporalPatterns, json.RawMessage(`{"time_granularity":"week","days_back":90}`)},
}

// withDefaults replaces every non-positive field with its default.
func (cfg BenchConfig) withDefaults() BenchConfig {
	def := DefaultBenchConfig()
	if cfg.MissIterations <= 0 {
		cfg.MissIterations = def.MissIterations
	}
	if cfg.HitIterations <= 0 {
		cfg.HitIterations = def.HitIterations
	}
	if cfg.ConcurrentUsers <= 0 {
		cfg.ConcurrentUsers = def.ConcurrentUsers
	}
	if cfg.RequestsPerUser <= 0 {
		cfg.RequestsPerUser = def.RequestsPerUser
	}
	if cfg.ToolIterations <= 0 {
		cfg.ToolIterations = def.ToolIterations
	}
	return cfg
}

// Bench measures cache effectiveness, per-tool latency and concurrent
// throughput through c. Non-positive config fields take their defaults.
func Bench(ctx context.Context, c Caller, cfg BenchConfig) (BenchReport, error) {
	cfg = cfg.withDefaults()

	var report BenchReport
	var err error
	if report.Cache, err = benchCache(ctx, c, cfg); err != nil {
		return report, err
	}
	for _, bc := range benchCases {
		tb, err := benchTool(ctx, c, bc, cfg.ToolIterations)
		if err != nil {
			return report, err
		}
		report.Tools = append(report.Tools, tb)
	}
	if report.Concurrency, err = benchConcurrency(ctx, c, cfg); err != nil {
		return report, err
	}
	report.Passed = report.Cache.MeetsHitRate && report.Cache.MeetsSpeedUp

	logging.Info().
		Add(logging.Component("bench")).
		Add(logging.Ratio("speed_improvement", report.Cache.SpeedUp)).
		Add(logging.Ratio("hit_rate", report.Cache.HitRate)).
		Add(logging.Ratio("requests_per_second", report.Concurrency.RequestsPerSecond)).
		Add(logging.Success(report.Passed)).
		Msg("benchmark finished")
	return report, nil
}

func benchCache(ctx context.Context, c Caller, cfg BenchConfig) (CacheBench, error) {
	query := json.RawMessage(`{"concept":"machine learning performance","max_results":5}`)
	var out CacheBench

	var miss time.Duration
	for i := 0; i < cfg.MissIterations; i++ {
		if _, err := c.Call(ctx, ToolClearPerformanceCache, nil); err != nil {
			return out, err
		}
		d, _, err := timed(ctx, c, ToolFindSimilarConcepts, query)
		if err != nil {
			return out, err
		}
		miss += d
	}

	if _, _, err := timed(ctx, c, ToolFindSimilarConcepts, query); err != nil {
		return out, err
	}
	var hit time.Duration
	for i := 0; i < cfg.HitIterations; i++ {
		d, result, err := timed(ctx, c, ToolFindSimilarConcepts, query)
		if err != nil {
			return out, err
		}
		if !result.Cached() {
			out.UnexpectedMisses++
		}
		hit += d
	}

	out.MissMs = meanMs(miss, cfg.MissIterations)
	out.HitMs = meanMs(hit, cfg.HitIterations)
	if out.HitMs > 0 {
		out.SpeedUp = out.MissMs / out.HitMs
	}

	result, err := c.Call(ctx, ToolGetPerformanceStats, nil)
	if err != nil {
		return out, err
	}
	var stats StatsResponse
	if err := json.Unmarshal(result.Output, &stats); err != nil {
		return out, fmt.Errorf("decode stats: %w", err)
	}
	out.HitRate = stats.CachePerformance.HitRate
	out.MeetsHitRate = out.HitRate >= TargetHitRate
	out.MeetsSpeedUp = out.SpeedUp >= TargetSpeedUp
	return out, nil
}

func benchTool(ctx context.Context, c Caller, bc benchCase, n int) (ToolBench, error) {
	out := ToolBench{Tool: bc.tool, Samples: n}
	samples := make([]float64, 0, n)
	var total float64
	for i := 0; i < n; i++ {
		d, result, err := timed(ctx, c, bc.tool, bc.input)
		if err != nil {
			return out, err
		}
		if result.Failed {
			out.Errors++
		}
		samples = append(samples, ms(d))
		total += ms(d)
	}
	if n > 0 {
		out.MeanMs = total / float64(n)
	}
	out.P50 = performance.Percentile(samples, 50)
	out.P95 = performance.Percentile(samples, 95)
	out.P99 = performance.Percentile(samples, 99)
	return out, nil
}

func benchConcurrency(ctx context.Context, c Caller, cfg BenchConfig) (ConcurrencyBench, error) {
	out := ConcurrencyBench{
		Users:    cfg.ConcurrentUsers,
		Requests: cfg.ConcurrentUsers * cfg.RequestsPerUser,
	}
	var failed atomic.Int64

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for u := 0; u < cfg.ConcurrentUsers; u++ {
		g.Go(func() error {
			for r := 0; r < cfg.RequestsPerUser; r++ {
				bc := benchCases[(u+r)%len(benchCases)]
				result, err := c.Call(gctx, bc.tool, bc.input)
				if err != nil {
					return err
				}
				if result.Failed {
					failed.Add(1)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	elapsed := time.Since(start)

	out.Errors = failed.Load()
	out.DurationMs = ms(elapsed)
	if elapsed > 0 {
		out.RequestsPerSecond = float64(out.Requests) / elapsed.Seconds()
	}
	return out, nil
}

func timed(ctx context.Context, c Caller, name string, input json.RawMessage) (time.Duration, tool.Result, error) {
	start := time.Now()
	result, err := c.Call(ctx, name, input)
	return time.Since(start), result, err
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// meanMs is the average of total over n samples, zero when n is not positive.
func meanMs(total time.Duration, n int) float64 {
	if n <= 0 {
		return 0
	}
	return ms(total) / float64(n)
}
