package analytics

import (
	"context"
	"sort"

	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
	"github.com/felixgeelhaar/concept-analytics/domain/concept"
)

// Similarity weights. Lexical similarity is bounded by nameWeight+tokenWeight;
// when the query names a known concept, its edges and tags add evidence.
const (
	nameWeight  = 0.7
	tokenWeight = 0.3
	edgeWeight  = 0.3
	tagWeight   = 0.2
)

// similar ranks every concept of g against the query text of p.
func similar(ctx context.Context, g *concept.Graph, p analytics.SimilarityParams, dims int) ([]analytics.SimilarConcept, error) {
	query := embed(p.Concept, dims)
	queryTokens := tokenSet(p.Concept)

	anchor, anchored := g.ByName(p.Concept)
	var anchorTags map[string]struct{}
	edges := make(map[string]float64)
	if anchored {
		anchorTags = tagSet(anchor.Tags)
		for _, e := range g.Neighbors(anchor.ID) {
			if e.Weight > edges[e.To] {
				edges[e.To] = e.Weight
			}
		}
	}

	results := make([]analytics.SimilarConcept, 0)
	for i, c := range g.Concepts() {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if anchored && c.ID == anchor.ID {
			continue
		}
		if concept.NormalizeName(c.Name) == concept.NormalizeName(p.Concept) {
			continue
		}

		score := nameWeight*cosine(query, embed(c.Name, dims)) +
			tokenWeight*jaccard(queryTokens, tokenSet(append([]string{c.Name}, c.Tags...)...))

		var shared []string
		if anchored {
			tags := tagSet(c.Tags)
			score += edgeWeight*edges[c.ID] + tagWeight*jaccard(anchorTags, tags)
			shared = intersect(anchorTags, tags)
		} else {
			shared = intersect(queryTokens, tagSet(c.Tags))
		}

		score = round4(clamp01(score))
		if score < p.MinSimilarity() {
			continue
		}
		results = append(results, analytics.SimilarConcept{
			Concept:     c.Name,
			ConceptID:   c.ID,
			Similarity:  score,
			Description: c.Description,
			SharedTags:  shared,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Concept < results[j].Concept
	})
	if len(results) > p.MaxResults {
		results = results[:p.MaxResults]
	}
	return results, nil
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[concept.NormalizeName(t)] = struct{}{}
	}
	return set
}

func intersect(a, b map[string]struct{}) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
