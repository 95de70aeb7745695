package analytics

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/concept"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func sampleGraph(t *testing.T) *concept.Graph {
	t.Helper()
	concepts, rels, err := concept.SampleDataset().Build(testNow)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return concept.NewGraph(concepts, rels)
}

func node(name string, created time.Time, tags ...string) concept.Concept {
	return concept.Concept{
		ID:        concept.NewID(name),
		Name:      name,
		Tags:      tags,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func edge(from, to string, weight float64, created time.Time) concept.Relationship {
	a, b := concept.NewID(from), concept.NewID(to)
	return concept.Relationship{
		ID:        concept.NewRelationshipID(a, b, concept.RelatedTo),
		From:      a,
		To:        b,
		Type:      concept.RelatedTo,
		Weight:    weight,
		CreatedAt: created,
	}
}

// twoTriangles is {a,b,c} and {d,e,f}, fully connected inside, plus an isolated g.
func twoTriangles() *concept.Graph {
	at := testNow.AddDate(0, 0, -1)
	var cs []concept.Concept
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		cs = append(cs, node(n, at))
	}
	rels := []concept.Relationship{
		edge("a", "b", 1, at), edge("b", "c", 1, at), edge("a", "c", 1, at),
		edge("d", "e", 1, at), edge("e", "f", 1, at), edge("d", "f", 1, at),
	}
	return concept.NewGraph(cs, rels)
}
