package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/concept-analytics/application"
)

// ErrBelowTarget is returned by bench --strict when a target is missed.
var ErrBelowTarget = errors.New("benchmark below target")

// benchOptions holds options for the bench command.
type benchOptions struct {
	cfg        application.BenchConfig
	jsonOutput bool
	strict     bool
}

// newBenchCmd creates the bench command.
func (a *App) newBenchCmd() *cobra.Command {
	opts := &benchOptions{cfg: application.DefaultBenchConfig()}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure cache effectiveness and tool latency",
		Long: fmt.Sprintf(`Run the analytics tools in-process and report:
  - cold (cleared cache) vs warm latency of one query and the speed-up
  - cache hit rate
  - p50/p95/p99 latency per analytic tool
  - throughput of concurrent clients

Targets: hit rate >= %.1f, speed-up >= %.0fx.

Examples:
  conceptd bench
  conceptd bench --users 50 --requests 20 --json
  conceptd bench --strict`, application.TargetHitRate, application.TargetSpeedUp),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.bench(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.cfg.MissIterations, "misses", opts.cfg.MissIterations, "Cold calls, each after a cache clear")
	cmd.Flags().IntVar(&opts.cfg.HitIterations, "hits", opts.cfg.HitIterations, "Warm calls")
	cmd.Flags().IntVar(&opts.cfg.ToolIterations, "samples", opts.cfg.ToolIterations, "Calls per tool for latency percentiles")
	cmd.Flags().IntVar(&opts.cfg.ConcurrentUsers, "users", opts.cfg.ConcurrentUsers, "Concurrent clients")
	cmd.Flags().IntVar(&opts.cfg.RequestsPerUser, "requests", opts.cfg.RequestsPerUser, "Calls per client")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the report as JSON")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail when a target is missed")

	return cmd
}

func (a *App) bench(ctx context.Context, opts *benchOptions) error {
	app, err := a.openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close(context.Background()) }()

	report, err := application.Bench(ctx, app.Server(), opts.cfg)
	if err != nil {
		return fmt.Errorf("benchmark: %w", err)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		a.printBench(report)
	}

	if opts.strict && !report.Passed {
		return ErrBelowTarget
	}
	return nil
}

func (a *App) printBench(r application.BenchReport) {
	mark := func(ok bool) string {
		if ok {
			return "✓"
		}
		return "✗"
	}

	c := r.Cache
	_, _ = fmt.Fprintf(a.stdout, "Cache:\n")
	_, _ = fmt.Fprintf(a.stdout, "  Miss latency: %.3f ms\n", c.MissMs)
	_, _ = fmt.Fprintf(a.stdout, "  Hit latency:  %.3f ms\n", c.HitMs)
	_, _ = fmt.Fprintf(a.stdout, "  %s Speed-up: %.1fx (target %.0fx)\n", mark(c.MeetsSpeedUp), c.SpeedUp, application.TargetSpeedUp)
	_, _ = fmt.Fprintf(a.stdout, "  %s Hit rate: %.2f (target %.1f)\n", mark(c.MeetsHitRate), c.HitRate, application.TargetHitRate)

	_, _ = fmt.Fprintf(a.stdout, "\nTools:\n")
	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "  TOOL\tSAMPLES\tERRORS\tMEAN ms\tP50 ms\tP95 ms\tP99 ms")
	for _, t := range r.Tools {
		_, _ = fmt.Fprintf(w, "  %s\t%d\t%d\t%.3f\t%.3f\t%.3f\t%.3f\n",
			t.Tool, t.Samples, t.Errors, t.MeanMs, t.P50, t.P95, t.P99)
	}
	_ = w.Flush()

	cc := r.Concurrency
	_, _ = fmt.Fprintf(a.stdout, "\nConcurrency:\n")
	_, _ = fmt.Fprintf(a.stdout, "  %d users, %d requests, %d errors in %.1f ms (%.0f req/s)\n",
		cc.Users, cc.Requests, cc.Errors, cc.DurationMs, cc.RequestsPerSecond)
}
