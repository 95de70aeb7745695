// Package analytics defines the analytic operations over the concept graph:
// their parameter variants, result shapes and the Analyzer contract.
package analytics

import "context"

// SimilarConcept is one similarity search match.
type SimilarConcept struct {
	Concept     string   `json:"concept"`
	ConceptID   string   `json:"concept_id"`
	Similarity  float64  `json:"similarity"`
	Description string   `json:"description,omitempty"`
	SharedTags  []string `json:"shared_tags,omitempty"`
}

// Pattern is one record of a pattern analysis. The concrete type depends on
// the analysis kind.
type Pattern interface {
	Kind() AnalysisType
}

// RelationshipPattern summarizes edges of one type.
type RelationshipPattern struct {
	Pattern   string  `json:"pattern"`
	Frequency int     `json:"frequency"`
	Strength  float64 `json:"strength"`
}

// Kind implements Pattern.
func (RelationshipPattern) Kind() AnalysisType { return AnalysisRelationships }

// ClusterPattern is a densely connected community of the graph.
type ClusterPattern struct {
	ClusterID int      `json:"cluster_id"`
	Size      int      `json:"size"`
	Coherence float64  `json:"coherence"`
	Members   []string `json:"members"`
}

// Kind implements Pattern.
func (ClusterPattern) Kind() AnalysisType { return AnalysisClusters }

// TemporalPattern is the activity of one time bucket.
type TemporalPattern struct {
	TimePeriod    string  `json:"time_period"`
	ActivityLevel float64 `json:"activity_level"`
	Trend         Trend   `json:"trend"`
	EventCount    int     `json:"event_count"`
}

// Kind implements Pattern.
func (TemporalPattern) Kind() AnalysisType { return AnalysisTemporal }

// CentralityPattern is the degree centrality of one concept.
type CentralityPattern struct {
	Node             string  `json:"node"`
	DegreeCentrality float64 `json:"degree_centrality"`
	Degree           int     `json:"degree"`
}

// Kind implements Pattern.
func (CentralityPattern) Kind() AnalysisType { return AnalysisCentrality }

// Cluster is a semantic cluster of concepts.
type Cluster struct {
	ClusterID      int      `json:"cluster_id"`
	Size           int      `json:"size"`
	CoherenceScore float64  `json:"coherence_score"`
	Concepts       []string `json:"concepts"`
	Label          string   `json:"label,omitempty"`
}

// Trend is the direction of activity between consecutive buckets.
type Trend string

// Trends.
const (
	TrendIncreasing Trend = "increasing"
	TrendStable     Trend = "stable"
	TrendDecreasing Trend = "decreasing"
)

// Analyzer runs the analytic operations. Implementations are pure with
// respect to their graph snapshot and may be slow.
type Analyzer interface {
	Similar(ctx context.Context, p SimilarityParams) ([]SimilarConcept, error)
	Patterns(ctx context.Context, p PatternParams) ([]Pattern, error)
	Clusters(ctx context.Context, p ClusterParams) ([]Cluster, error)
	Temporal(ctx context.Context, p TemporalParams) ([]TemporalPattern, error)
}
