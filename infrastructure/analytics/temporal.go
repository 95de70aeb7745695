package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
	"github.com/felixgeelhaar/concept-analytics/domain/concept"
)

// trendBand is the relative change below which activity counts as stable.
const trendBand = 0.10

// temporal buckets activity events of the last p.DaysBack days. Every bucket
// of the window is reported, oldest first, including empty ones.
func temporal(ctx context.Context, g *concept.Graph, p analytics.TemporalParams, now time.Time) ([]analytics.TemporalPattern, error) {
	now = now.UTC()
	from := now.Add(-days(p.DaysBack))

	keys := bucketKeys(p.TimeGranularity, from, now)
	counts := make(map[string]int, len(keys))

	record := func(ts time.Time) {
		if ts.Before(from) || ts.After(now) {
			return
		}
		counts[bucketKey(p.TimeGranularity, ts.UTC())]++
	}

	filter := strings.ToLower(p.ConceptFilter)
	selected := make(map[string]struct{})
	for i, c := range g.Concepts() {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if filter != "" && !strings.Contains(strings.ToLower(c.Name), filter) {
			continue
		}
		selected[c.ID] = struct{}{}
		record(c.CreatedAt)
		if c.UpdatedAt.After(c.CreatedAt) {
			record(c.UpdatedAt)
		}
	}
	for _, r := range g.Relationships() {
		if filter != "" {
			_, a := selected[r.From]
			_, b := selected[r.To]
			if !a && !b {
				continue
			}
		}
		record(r.CreatedAt)
	}

	peak := 0
	for _, k := range keys {
		if counts[k] > peak {
			peak = counts[k]
		}
	}

	out := make([]analytics.TemporalPattern, 0, len(keys))
	prev := -1
	for _, k := range keys {
		n := counts[k]
		var level float64
		if peak > 0 {
			level = float64(n) / float64(peak)
		}
		out = append(out, analytics.TemporalPattern{
			TimePeriod:    k,
			ActivityLevel: round4(clamp01(level)),
			Trend:         trend(prev, n),
			EventCount:    n,
		})
		prev = n
	}
	return out, nil
}

// trend compares a bucket with its predecessor; prev < 0 marks the first bucket.
func trend(prev, cur int) analytics.Trend {
	switch {
	case prev < 0 || prev == cur:
		return analytics.TrendStable
	case prev == 0:
		return analytics.TrendIncreasing
	}
	delta := float64(cur-prev) / float64(prev)
	switch {
	case delta > trendBand:
		return analytics.TrendIncreasing
	case delta < -trendBand:
		return analytics.TrendDecreasing
	}
	return analytics.TrendStable
}

func bucketStart(g analytics.Granularity, t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch g {
	case analytics.GranularityWeek:
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	case analytics.GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return day
}

func bucketKey(g analytics.Granularity, t time.Time) string {
	switch g {
	case analytics.GranularityWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case analytics.GranularityMonth:
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

func bucketKeys(g analytics.Granularity, from, to time.Time) []string {
	var keys []string
	for t := bucketStart(g, from); !t.After(to); {
		keys = append(keys, bucketKey(g, t))
		switch g {
		case analytics.GranularityWeek:
			t = t.AddDate(0, 0, 7)
		case analytics.GranularityMonth:
			t = t.AddDate(0, 1, 0)
		default:
			t = t.AddDate(0, 0, 1)
		}
	}
	return keys
}
