package application

import (
	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
	"github.com/felixgeelhaar/concept-analytics/domain/cache"
	"github.com/felixgeelhaar/concept-analytics/domain/concept"
	"github.com/felixgeelhaar/concept-analytics/domain/performance"
)

// SimilarityResponse is the record returned by find_similar_concepts.
type SimilarityResponse struct {
	Success             bool                       `json:"success"`
	Concept             string                     `json:"concept"`
	MaxResults          int                        `json:"max_results"`
	SimilarityThreshold float64                    `json:"similarity_threshold"`
	SimilarConcepts     []analytics.SimilarConcept `json:"similar_concepts"`
	TotalFound          int                        `json:"total_found"`
	CacheStatus         cache.Status               `json:"cache_status"`
}

// PatternResponse is the record returned by analyze_patterns.
type PatternResponse struct {
	Success       bool                   `json:"success"`
	AnalysisType  analytics.AnalysisType `json:"analysis_type"`
	MaxResults    int                    `json:"max_results"`
	TimeRangeDays int                    `json:"time_range_days"`
	Patterns      []analytics.Pattern    `json:"patterns"`
	TotalPatterns int                    `json:"total_patterns"`
	CacheStatus   cache.Status           `json:"cache_status"`
}

// ClusterResponse is the record returned by get_semantic_clusters.
type ClusterResponse struct {
	Success        bool                    `json:"success"`
	ClusterMethod  analytics.ClusterMethod `json:"cluster_method"`
	NumClusters    int                     `json:"num_clusters"`
	MinClusterSize int                     `json:"min_cluster_size"`
	Clusters       []analytics.Cluster     `json:"clusters"`
	TotalClusters  int                     `json:"total_clusters"`
	CacheStatus    cache.Status            `json:"cache_status"`
}

// TemporalResponse is the record returned by get_temporal_patterns.
type TemporalResponse struct {
	Success         bool                        `json:"success"`
	TimeGranularity analytics.Granularity       `json:"time_granularity"`
	DaysBack        int                         `json:"days_back"`
	ConceptFilter   string                      `json:"concept_filter,omitempty"`
	Patterns        []analytics.TemporalPattern `json:"patterns"`
	TotalPeriods    int                         `json:"total_periods"`
	CacheStatus     cache.Status                `json:"cache_status"`
}

// StatsResponse is the record returned by get_performance_stats.
type StatsResponse struct {
	Success bool `json:"success"`
	performance.Report
}

// ClearResponse is the record returned by clear_performance_cache.
type ClearResponse struct {
	Success        bool `json:"success"`
	Cleared        bool `json:"cleared"`
	EntriesRemoved int  `json:"entries_removed"`
}

// RelationshipInput links a new concept to an existing one by name.
type RelationshipInput struct {
	To     string               `json:"to"`
	Type   concept.RelationType `json:"type,omitempty"`
	Weight float64              `json:"weight,omitempty"`
}

// AddConceptInput is the input of add_concept.
type AddConceptInput struct {
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Tags          []string            `json:"tags,omitempty"`
	Relationships []RelationshipInput `json:"relationships,omitempty"`
}

// AddConceptResponse is the record returned by add_concept.
type AddConceptResponse struct {
	Success       bool            `json:"success"`
	Concept       concept.Concept `json:"concept"`
	Relationships int             `json:"relationships"`
	CacheCleared  int             `json:"cache_entries_removed"`
}
