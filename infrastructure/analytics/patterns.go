package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
	"github.com/felixgeelhaar/concept-analytics/domain/concept"
)

// MaxPropagationRounds bounds label propagation.
const MaxPropagationRounds = 100

func patterns(ctx context.Context, g *concept.Graph, p analytics.PatternParams, now time.Time) ([]analytics.Pattern, error) {
	var out []analytics.Pattern
	switch p.AnalysisType {
	case analytics.AnalysisRelationships:
		for _, r := range relationshipPatterns(g, now.Add(-days(p.TimeRangeDays)), now) {
			out = append(out, r)
		}
	case analytics.AnalysisClusters:
		clusters, err := communities(ctx, g)
		if err != nil {
			return nil, err
		}
		for _, c := range clusters {
			out = append(out, c)
		}
	case analytics.AnalysisTemporal:
		buckets, err := temporal(ctx, g, analytics.TemporalParams{
			TimeGranularity: analytics.GranularityDay,
			DaysBack:        p.TimeRangeDays,
		}, now)
		if err != nil {
			return nil, err
		}
		// Most recent buckets survive truncation.
		if len(buckets) > p.MaxResults {
			buckets = buckets[len(buckets)-p.MaxResults:]
		}
		for _, b := range buckets {
			out = append(out, b)
		}
		return out, nil
	case analytics.AnalysisCentrality:
		for _, c := range centrality(g) {
			out = append(out, c)
		}
	default:
		return nil, analytics.ValidationError{Field: "analysis_type", Message: "unknown value " + string(p.AnalysisType)}
	}
	if out == nil {
		out = []analytics.Pattern{}
	}
	if len(out) > p.MaxResults {
		out = out[:p.MaxResults]
	}
	return out, nil
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// relationshipPatterns groups edges created in [from, to] by type, most
// frequent first.
func relationshipPatterns(g *concept.Graph, from, to time.Time) []analytics.RelationshipPattern {
	type agg struct {
		n   int
		sum float64
	}
	byType := make(map[concept.RelationType]*agg)
	for _, r := range g.Relationships() {
		if r.CreatedAt.Before(from) || r.CreatedAt.After(to) {
			continue
		}
		a, ok := byType[r.Type]
		if !ok {
			a = &agg{}
			byType[r.Type] = a
		}
		a.n++
		a.sum += r.Weight
	}

	out := make([]analytics.RelationshipPattern, 0, len(byType))
	for typ, a := range byType {
		out = append(out, analytics.RelationshipPattern{
			Pattern:   string(typ),
			Frequency: a.n,
			Strength:  round4(clamp01(a.sum / float64(a.n))),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Pattern < out[j].Pattern
	})
	return out
}

// communities runs label propagation over the undirected graph. Nodes are
// visited in name order and ties go to the smallest label, so the result is
// a function of the graph alone. Singletons are not reported.
func communities(ctx context.Context, g *concept.Graph) ([]analytics.ClusterPattern, error) {
	nodes := g.Concepts()
	index := make(map[string]int, len(nodes))
	labels := make([]int, len(nodes))
	for i, c := range nodes {
		index[c.ID] = i
		labels[i] = i
	}

	for round := 0; round < MaxPropagationRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		changed := false
		for i, c := range nodes {
			votes := make(map[int]float64)
			for _, e := range g.Neighbors(c.ID) {
				w := e.Weight
				if w <= 0 {
					w = 1
				}
				votes[labels[index[e.To]]] += w
			}
			if len(votes) == 0 {
				continue
			}
			var top float64
			for _, v := range votes {
				if v > top {
					top = v
				}
			}
			// A node keeps its label while that label is among the winners.
			if votes[labels[i]] == top {
				continue
			}
			best := -1
			for label, v := range votes {
				if v == top && (best < 0 || label < best) {
					best = label
				}
			}
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	groups := make(map[int][]int)
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}
	out := make([]analytics.ClusterPattern, 0, len(groups))
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		names := make([]string, len(members))
		inGroup := make(map[string]struct{}, len(members))
		for k, i := range members {
			names[k] = nodes[i].Name
			inGroup[nodes[i].ID] = struct{}{}
		}
		sort.Strings(names)
		out = append(out, analytics.ClusterPattern{
			Size:      len(members),
			Coherence: round4(density(g, inGroup)),
			Members:   names,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].Members[0] < out[j].Members[0]
	})
	for i := range out {
		out[i].ClusterID = i
	}
	return out, nil
}

// density is the share of possible undirected edges present within members.
func density(g *concept.Graph, members map[string]struct{}) float64 {
	n := len(members)
	if n < 2 {
		return 0
	}
	pairs := make(map[[2]string]struct{})
	for id := range members {
		for _, e := range g.Neighbors(id) {
			if _, ok := members[e.To]; !ok {
				continue
			}
			a, b := id, e.To
			if b < a {
				a, b = b, a
			}
			pairs[[2]string{a, b}] = struct{}{}
		}
	}
	return clamp01(float64(len(pairs)) / float64(n*(n-1)/2))
}

// centrality ranks concepts by normalized degree.
func centrality(g *concept.Graph) []analytics.CentralityPattern {
	n := g.Len()
	out := make([]analytics.CentralityPattern, 0, n)
	for _, c := range g.Concepts() {
		d := g.Degree(c.ID)
		var dc float64
		if n > 1 {
			dc = float64(d) / float64(n-1)
		}
		out = append(out, analytics.CentralityPattern{
			Node:             c.Name,
			DegreeCentrality: round4(clamp01(dc)),
			Degree:           d,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Degree > out[j].Degree
	})
	return out
}
