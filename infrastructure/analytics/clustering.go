package analytics

import (
	"context"
	"sort"

	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
	"github.com/felixgeelhaar/concept-analytics/domain/concept"
)

// Clustering defaults.
const (
	MaxKMeansIterations  = 50
	DefaultDBSCANEpsilon = 0.6
)

// clusters groups the concepts of g by their feature vectors.
func clusters(ctx context.Context, g *concept.Graph, p analytics.ClusterParams, dims int, eps float64) ([]analytics.Cluster, error) {
	nodes := g.Concepts()
	if len(nodes) == 0 {
		return []analytics.Cluster{}, nil
	}
	vs := make([]vector, len(nodes))
	for i, c := range nodes {
		vs[i] = conceptVector(c, dims)
	}

	var (
		groups [][]int
		err    error
	)
	switch p.ClusterMethod {
	case analytics.MethodKMeans:
		groups, err = kmeans(ctx, vs, p.NumClusters, dims)
	case analytics.MethodHierarchical:
		groups, err = agglomerate(ctx, vs, p.NumClusters)
	case analytics.MethodDBSCAN:
		groups, err = dbscan(ctx, vs, eps, p.MinClusterSize)
	default:
		return nil, analytics.ValidationError{Field: "cluster_method", Message: "unknown value " + string(p.ClusterMethod)}
	}
	if err != nil {
		return nil, err
	}

	out := make([]analytics.Cluster, 0, len(groups))
	for _, members := range groups {
		if len(members) < p.MinClusterSize || len(members) == 0 {
			continue
		}
		out = append(out, describe(nodes, vs, members, dims))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		if out[i].CoherenceScore != out[j].CoherenceScore {
			return out[i].CoherenceScore > out[j].CoherenceScore
		}
		return out[i].Concepts[0] < out[j].Concepts[0]
	})
	if len(out) > p.NumClusters {
		out = out[:p.NumClusters]
	}
	for i := range out {
		out[i].ClusterID = i
	}
	return out, nil
}

// describe computes the centroid coherence and label of one group.
func describe(nodes []concept.Concept, vs []vector, members []int, dims int) analytics.Cluster {
	group := make([]vector, len(members))
	names := make([]string, len(members))
	tags := make(map[string]int)
	for k, i := range members {
		group[k] = vs[i]
		names[k] = nodes[i].Name
		for t := range tagSet(nodes[i].Tags) {
			tags[t]++
		}
	}
	sort.Strings(names)

	c := centroid(group, dims)
	var sum float64
	for _, v := range group {
		sum += cosine(v, c)
	}

	var label string
	for t, n := range tags {
		if n > tags[label] || (n == tags[label] && t < label) {
			label = t
		}
	}

	return analytics.Cluster{
		Size:           len(members),
		CoherenceScore: round4(clamp01(sum / float64(len(group)))),
		Concepts:       names,
		Label:          label,
	}
}

// kmeans partitions vs into at most k groups. Centroids start at the first
// vector and then at the vector farthest from all chosen centroids.
func kmeans(ctx context.Context, vs []vector, k, dims int) ([][]int, error) {
	if k > len(vs) {
		k = len(vs)
	}
	centroids := []vector{vs[0]}
	chosen := map[int]bool{0: true}
	for len(centroids) < k {
		far, farDist := -1, -1.0
		for i, v := range vs {
			if chosen[i] {
				continue
			}
			nearest := 2.0
			for _, c := range centroids {
				if d := 1 - cosine(v, c); d < nearest {
					nearest = d
				}
			}
			if nearest > farDist {
				far, farDist = i, nearest
			}
		}
		chosen[far] = true
		centroids = append(centroids, vs[far])
	}

	assign := make([]int, len(vs))
	for i := range assign {
		assign[i] = -1
	}
	for iter := 0; iter < MaxKMeansIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		changed := false
		for i, v := range vs {
			best, bestSim := 0, -1.0
			for j, c := range centroids {
				if s := cosine(v, c); s > bestSim {
					best, bestSim = j, s
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		for j := range centroids {
			var members []vector
			for i, a := range assign {
				if a == j {
					members = append(members, vs[i])
				}
			}
			if len(members) > 0 {
				centroids[j] = centroid(members, dims)
			}
		}
	}

	groups := make([][]int, k)
	for i, a := range assign {
		groups[a] = append(groups[a], i)
	}
	return groups, nil
}

// agglomerate merges groups by average linkage until k remain.
func agglomerate(ctx context.Context, vs []vector, k int) ([][]int, error) {
	n := len(vs)
	groups := make([][]int, n)
	sim := make([][]float64, n)
	for i := range vs {
		groups[i] = []int{i}
		sim[i] = make([]float64, n)
		for j := range vs {
			if i != j {
				sim[i][j] = cosine(vs[i], vs[j])
			}
		}
	}
	alive := make([]bool, n)
	for i := range alive {
		alive[i] = true
	}

	for remaining := n; remaining > k; remaining-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, b, best := -1, -1, -1.0
		for i := 0; i < n; i++ {
			if !alive[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if alive[j] && sim[i][j] > best {
					a, b, best = i, j, sim[i][j]
				}
			}
		}
		na, nb := float64(len(groups[a])), float64(len(groups[b]))
		for c := 0; c < n; c++ {
			if !alive[c] || c == a || c == b {
				continue
			}
			s := (na*sim[a][c] + nb*sim[b][c]) / (na + nb)
			sim[a][c], sim[c][a] = s, s
		}
		groups[a] = append(groups[a], groups[b]...)
		groups[b] = nil
		alive[b] = false
	}

	out := make([][]int, 0, k)
	for i, g := range groups {
		if alive[i] {
			sort.Ints(g)
			out = append(out, g)
		}
	}
	return out, nil
}

// dbscan groups density-connected vectors under cosine distance. Noise is
// not reported.
func dbscan(ctx context.Context, vs []vector, eps float64, minPts int) ([][]int, error) {
	const (
		unvisited = -2
		noise     = -1
	)
	n := len(vs)
	neighbors := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if 1-cosine(vs[i], vs[j]) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	label := make([]int, n)
	for i := range label {
		label[i] = unvisited
	}
	var groups [][]int
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if label[i] != unvisited {
			continue
		}
		seeds := neighbors(i)
		if len(seeds) < minPts {
			label[i] = noise
			continue
		}
		id := len(groups)
		groups = append(groups, nil)
		label[i] = id
		for q := 0; q < len(seeds); q++ {
			j := seeds[q]
			if label[j] == noise {
				label[j] = id
			}
			if label[j] != unvisited {
				continue
			}
			label[j] = id
			if more := neighbors(j); len(more) >= minPts {
				seeds = append(seeds, more...)
			}
		}
	}
	for i, l := range label {
		if l >= 0 {
			groups[l] = append(groups[l], i)
		}
	}
	return groups, nil
}
