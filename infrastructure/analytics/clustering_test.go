package analytics

import (
	"context"
	"reflect"
	"testing"

	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
)

func checkClusters(t *testing.T, got []analytics.Cluster, p analytics.ClusterParams, total int) {
	t.Helper()
	if got == nil {
		t.Fatal("clusters = nil, want non-nil slice")
	}
	if len(got) > p.NumClusters {
		t.Errorf("len = %d, want at most %d", len(got), p.NumClusters)
	}
	seen := make(map[string]bool)
	for i, c := range got {
		if c.ClusterID != i {
			t.Errorf("cluster %d has id %d", i, c.ClusterID)
		}
		if c.Size < p.MinClusterSize || c.Size != len(c.Concepts) {
			t.Errorf("cluster %d size = %d, concepts = %d, min = %d", i, c.Size, len(c.Concepts), p.MinClusterSize)
		}
		if c.CoherenceScore < 0 || c.CoherenceScore > 1 {
			t.Errorf("cluster %d coherence = %v, want [0,1]", i, c.CoherenceScore)
		}
		if i > 0 && got[i-1].Size < c.Size {
			t.Errorf("clusters not ordered by size at %d", i)
		}
		for _, name := range c.Concepts {
			if seen[name] {
				t.Errorf("%s appears in two clusters", name)
			}
			seen[name] = true
		}
	}
	if len(seen) > total {
		t.Errorf("clustered %d concepts, graph has %d", len(seen), total)
	}
}

func TestEngine_Clusters(t *testing.T) {
	t.Parallel()

	g := sampleGraph(t)
	e := NewEngine(Static{G: g})

	for _, m := range []analytics.ClusterMethod{analytics.MethodKMeans, analytics.MethodHierarchical, analytics.MethodDBSCAN} {
		t.Run(string(m), func(t *testing.T) {
			t.Parallel()

			p := analytics.NewClusterParams(m)
			got, err := e.Clusters(context.Background(), p)
			if err != nil {
				t.Fatalf("Clusters() error = %v", err)
			}
			checkClusters(t, got, p, g.Len())

			again, err := e.Clusters(context.Background(), p)
			if err != nil {
				t.Fatalf("Clusters() error = %v", err)
			}
			if !reflect.DeepEqual(got, again) {
				t.Error("Clusters() is not deterministic")
			}
		})
	}
}

func TestEngine_Clusters_SingleGroup(t *testing.T) {
	t.Parallel()

	g := sampleGraph(t)
	e := NewEngine(Static{G: g})

	p := analytics.ClusterParams{ClusterMethod: analytics.MethodKMeans, NumClusters: 1, MinClusterSize: 1}
	got, err := e.Clusters(context.Background(), p)
	if err != nil {
		t.Fatalf("Clusters() error = %v", err)
	}
	if len(got) != 1 || got[0].Size != g.Len() {
		t.Errorf("Clusters() = %+v, want one cluster of %d", got, g.Len())
	}
}

func TestEngine_Clusters_MinSizeDropsSingletons(t *testing.T) {
	t.Parallel()

	g := sampleGraph(t)
	e := NewEngine(Static{G: g})

	p := analytics.ClusterParams{ClusterMethod: analytics.MethodHierarchical, NumClusters: 50, MinClusterSize: 2}
	got, err := e.Clusters(context.Background(), p)
	if err != nil {
		t.Fatalf("Clusters() error = %v", err)
	}
	// With at least as many clusters as concepts nothing is merged.
	if len(got) != 0 {
		t.Errorf("Clusters() = %+v, want none", got)
	}
}

func TestEngine_Clusters_TightEpsilon(t *testing.T) {
	t.Parallel()

	e := NewEngine(Static{G: sampleGraph(t)}, WithDBSCANEpsilon(1e-6))
	got, err := e.Clusters(context.Background(), analytics.NewClusterParams(analytics.MethodDBSCAN))
	if err != nil {
		t.Fatalf("Clusters() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Clusters() = %+v, want none with a tiny radius", got)
	}
}

func TestEngine_Clusters_EmptyGraph(t *testing.T) {
	t.Parallel()

	e := NewEngine(Static{})
	got, err := e.Clusters(context.Background(), analytics.NewClusterParams(analytics.MethodKMeans))
	if err != nil {
		t.Fatalf("Clusters() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Clusters() = %#v, want empty slice", got)
	}
}

func TestAgglomerate(t *testing.T) {
	t.Parallel()

	vs := []vector{
		embed("alpha", 64), embed("alphas", 64),
		embed("zulu", 64), embed("zulus", 64),
	}
	got, err := agglomerate(context.Background(), vs, 2)
	if err != nil {
		t.Fatalf("agglomerate() error = %v", err)
	}
	want := [][]int{{0, 1}, {2, 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("agglomerate() = %v, want %v", got, want)
	}
}
