package concept

import (
	"context"
	"sort"
)

// Edge is an adjacency entry seen from one endpoint.
type Edge struct {
	To     string
	Type   RelationType
	Weight float64
}

// Graph is an immutable snapshot of a store, indexed for analysis.
type Graph struct {
	concepts      []Concept
	relationships []Relationship
	byID          map[string]int
	byName        map[string]int
	adjacency     map[string][]Edge
}

// Load snapshots a store.
func Load(ctx context.Context, s Store) (*Graph, error) {
	concepts, err := s.ListConcepts(ctx)
	if err != nil {
		return nil, err
	}
	rels, err := s.ListRelationships(ctx)
	if err != nil {
		return nil, err
	}
	return NewGraph(concepts, rels), nil
}

// NewGraph builds a graph. Relationships whose endpoints are unknown are
// dropped. Concepts are ordered by name, relationships by id.
func NewGraph(concepts []Concept, rels []Relationship) *Graph {
	g := &Graph{
		concepts:  append([]Concept(nil), concepts...),
		byID:      make(map[string]int, len(concepts)),
		byName:    make(map[string]int, len(concepts)),
		adjacency: make(map[string][]Edge, len(concepts)),
	}
	sort.Slice(g.concepts, func(i, j int) bool {
		if g.concepts[i].Name != g.concepts[j].Name {
			return g.concepts[i].Name < g.concepts[j].Name
		}
		return g.concepts[i].ID < g.concepts[j].ID
	})
	for i, c := range g.concepts {
		g.byID[c.ID] = i
		g.byName[NormalizeName(c.Name)] = i
	}

	for _, r := range rels {
		if _, ok := g.byID[r.From]; !ok {
			continue
		}
		if _, ok := g.byID[r.To]; !ok {
			continue
		}
		g.relationships = append(g.relationships, r)
	}
	sort.Slice(g.relationships, func(i, j int) bool {
		return g.relationships[i].ID < g.relationships[j].ID
	})
	for _, r := range g.relationships {
		g.adjacency[r.From] = append(g.adjacency[r.From], Edge{To: r.To, Type: r.Type, Weight: r.Weight})
		g.adjacency[r.To] = append(g.adjacency[r.To], Edge{To: r.From, Type: r.Type, Weight: r.Weight})
	}
	return g
}

// Concepts returns the concepts ordered by name. The slice must not be modified.
func (g *Graph) Concepts() []Concept {
	return g.concepts
}

// Relationships returns the relationships ordered by id. The slice must not be modified.
func (g *Graph) Relationships() []Relationship {
	return g.relationships
}

// Len returns the number of concepts.
func (g *Graph) Len() int {
	return len(g.concepts)
}

// Concept returns the concept with id.
func (g *Graph) Concept(id string) (Concept, bool) {
	i, ok := g.byID[id]
	if !ok {
		return Concept{}, false
	}
	return g.concepts[i], true
}

// ByName returns the concept with the given normalized name.
func (g *Graph) ByName(name string) (Concept, bool) {
	i, ok := g.byName[NormalizeName(name)]
	if !ok {
		return Concept{}, false
	}
	return g.concepts[i], true
}

// Neighbors returns the undirected adjacency of id.
func (g *Graph) Neighbors(id string) []Edge {
	return g.adjacency[id]
}

// Degree returns the number of distinct neighbors of id.
func (g *Graph) Degree(id string) int {
	seen := make(map[string]struct{})
	for _, e := range g.adjacency[id] {
		seen[e.To] = struct{}{}
	}
	return len(seen)
}
