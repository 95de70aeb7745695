package analytics

import "strings"

// Operation names an analytic family. It is also the cache key namespace.
type Operation string

// Analytic operations.
const (
	OpSimilarity Operation = "similarity"
	OpPatterns   Operation = "patterns"
	OpClusters   Operation = "clusters"
	OpTemporal   Operation = "temporal"
)

// Operations lists every analytic operation.
func Operations() []Operation {
	return []Operation{OpSimilarity, OpPatterns, OpClusters, OpTemporal}
}

// AnalysisType selects the kind of pattern analysis.
type AnalysisType string

// Analysis types.
const (
	AnalysisRelationships AnalysisType = "relationships"
	AnalysisClusters      AnalysisType = "clusters"
	AnalysisTemporal      AnalysisType = "temporal"
	AnalysisCentrality    AnalysisType = "centrality"
)

// Valid reports whether a is a known analysis type.
func (a AnalysisType) Valid() bool {
	switch a {
	case AnalysisRelationships, AnalysisClusters, AnalysisTemporal, AnalysisCentrality:
		return true
	}
	return false
}

// ClusterMethod selects the clustering algorithm.
type ClusterMethod string

// Cluster methods.
const (
	MethodKMeans       ClusterMethod = "kmeans"
	MethodHierarchical ClusterMethod = "hierarchical"
	MethodDBSCAN       ClusterMethod = "dbscan"
)

// Valid reports whether m is a known method.
func (m ClusterMethod) Valid() bool {
	switch m {
	case MethodKMeans, MethodHierarchical, MethodDBSCAN:
		return true
	}
	return false
}

// Granularity is the bucket width of temporal analysis.
type Granularity string

// Granularities.
const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityDay, GranularityWeek, GranularityMonth:
		return true
	}
	return false
}

// Parameter defaults and limits.
const (
	DefaultMaxResults          = 10
	DefaultPatternResults      = 20
	DefaultSimilarityThreshold = 0.7
	DefaultTimeRangeDays       = 30
	DefaultNumClusters         = 5
	DefaultMinClusterSize      = 2
	DefaultDaysBack            = 30

	MaxResultsLimit  = 100
	MaxDaysLimit     = 3650
	MaxClustersLimit = 50
	MaxConceptLength = 256
)

// Params is implemented by every parameter variant.
type Params interface {
	// Operation returns the analytic family the parameters belong to.
	Operation() Operation
	// Normalize fills defaults in place.
	Normalize()
	// Validate checks documented constraints.
	Validate() error
	// KeyParams returns the canonical mapping used for cache keys.
	KeyParams() map[string]any
}

// SimilarityParams parameterize similarity search. A nil threshold takes
// DefaultSimilarityThreshold; an explicit zero requests unfiltered results.
type SimilarityParams struct {
	Concept             string   `json:"concept"`
	MaxResults          int      `json:"max_results,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
}

// Threshold returns a similarity threshold for SimilarityParams.
func Threshold(v float64) *float64 {
	return &v
}

// MinSimilarity returns the effective threshold.
func (p *SimilarityParams) MinSimilarity() float64 {
	if p.SimilarityThreshold == nil {
		return DefaultSimilarityThreshold
	}
	return *p.SimilarityThreshold
}

// Operation implements Params.
func (p *SimilarityParams) Operation() Operation { return OpSimilarity }

// Normalize implements Params.
func (p *SimilarityParams) Normalize() {
	p.Concept = strings.TrimSpace(p.Concept)
	if p.MaxResults == 0 {
		p.MaxResults = DefaultMaxResults
	}
	if p.SimilarityThreshold == nil {
		p.SimilarityThreshold = Threshold(DefaultSimilarityThreshold)
	}
}

// Validate implements Params.
func (p *SimilarityParams) Validate() error {
	var l errorList
	if p.Concept == "" {
		l.add("concept", "is required")
	} else if len(p.Concept) > MaxConceptLength {
		l.add("concept", "must be at most %d bytes", MaxConceptLength)
	}
	l.intRange("max_results", p.MaxResults, 1, MaxResultsLimit)
	if t := p.MinSimilarity(); t < 0 || t > 1 {
		l.add("similarity_threshold", "must be between 0 and 1, got %v", t)
	}
	return l.err()
}

// KeyParams implements Params.
func (p *SimilarityParams) KeyParams() map[string]any {
	return map[string]any{
		"concept":              strings.ToLower(p.Concept),
		"max_results":          p.MaxResults,
		"similarity_threshold": p.MinSimilarity(),
	}
}

// PatternParams parameterize pattern analysis.
type PatternParams struct {
	AnalysisType  AnalysisType `json:"analysis_type"`
	MaxResults    int          `json:"max_results,omitempty"`
	TimeRangeDays int          `json:"time_range_days,omitempty"`
}

// Operation implements Params.
func (p *PatternParams) Operation() Operation { return OpPatterns }

// Normalize implements Params.
func (p *PatternParams) Normalize() {
	if p.AnalysisType == "" {
		p.AnalysisType = AnalysisRelationships
	}
	if p.MaxResults == 0 {
		p.MaxResults = DefaultPatternResults
	}
	if p.TimeRangeDays == 0 {
		p.TimeRangeDays = DefaultTimeRangeDays
	}
}

// Validate implements Params.
func (p *PatternParams) Validate() error {
	var l errorList
	if !p.AnalysisType.Valid() {
		l.add("analysis_type", "unknown value %q", p.AnalysisType)
	}
	l.intRange("max_results", p.MaxResults, 1, MaxResultsLimit)
	l.intRange("time_range_days", p.TimeRangeDays, 1, MaxDaysLimit)
	return l.err()
}

// KeyParams implements Params.
func (p *PatternParams) KeyParams() map[string]any {
	return map[string]any{
		"analysis_type":   string(p.AnalysisType),
		"max_results":     p.MaxResults,
		"time_range_days": p.TimeRangeDays,
	}
}

// ClusterParams parameterize semantic clustering.
type ClusterParams struct {
	ClusterMethod  ClusterMethod `json:"cluster_method"`
	NumClusters    int           `json:"num_clusters,omitempty"`
	MinClusterSize int           `json:"min_cluster_size,omitempty"`
}

// Operation implements Params.
func (p *ClusterParams) Operation() Operation { return OpClusters }

// Normalize implements Params.
func (p *ClusterParams) Normalize() {
	if p.ClusterMethod == "" {
		p.ClusterMethod = MethodKMeans
	}
	if p.NumClusters == 0 {
		p.NumClusters = DefaultNumClusters
	}
	if p.MinClusterSize == 0 {
		p.MinClusterSize = DefaultMinClusterSize
	}
}

// Validate implements Params.
func (p *ClusterParams) Validate() error {
	var l errorList
	if !p.ClusterMethod.Valid() {
		l.add("cluster_method", "unknown value %q", p.ClusterMethod)
	}
	l.intRange("num_clusters", p.NumClusters, 1, MaxClustersLimit)
	l.intRange("min_cluster_size", p.MinClusterSize, 1, 1000)
	return l.err()
}

// KeyParams implements Params.
func (p *ClusterParams) KeyParams() map[string]any {
	return map[string]any{
		"cluster_method":   string(p.ClusterMethod),
		"num_clusters":     p.NumClusters,
		"min_cluster_size": p.MinClusterSize,
	}
}

// TemporalParams parameterize temporal pattern extraction.
type TemporalParams struct {
	TimeGranularity Granularity `json:"time_granularity"`
	DaysBack        int         `json:"days_back,omitempty"`
	ConceptFilter   string      `json:"concept_filter,omitempty"`
}

// Operation implements Params.
func (p *TemporalParams) Operation() Operation { return OpTemporal }

// Normalize implements Params.
func (p *TemporalParams) Normalize() {
	if p.TimeGranularity == "" {
		p.TimeGranularity = GranularityDay
	}
	if p.DaysBack == 0 {
		p.DaysBack = DefaultDaysBack
	}
	p.ConceptFilter = strings.TrimSpace(p.ConceptFilter)
}

// Validate implements Params.
func (p *TemporalParams) Validate() error {
	var l errorList
	if !p.TimeGranularity.Valid() {
		l.add("time_granularity", "unknown value %q", p.TimeGranularity)
	}
	l.intRange("days_back", p.DaysBack, 1, MaxDaysLimit)
	if len(p.ConceptFilter) > MaxConceptLength {
		l.add("concept_filter", "must be at most %d bytes", MaxConceptLength)
	}
	return l.err()
}

// KeyParams implements Params.
func (p *TemporalParams) KeyParams() map[string]any {
	params := map[string]any{
		"time_granularity": string(p.TimeGranularity),
		"days_back":        p.DaysBack,
	}
	if p.ConceptFilter != "" {
		params["concept_filter"] = strings.ToLower(p.ConceptFilter)
	}
	return params
}

// Defaults returns the default key parameters of an operation, for
// registration with the cache key codec.
func Defaults(op Operation) map[string]any {
	switch op {
	case OpSimilarity:
		return map[string]any{"max_results": DefaultMaxResults, "similarity_threshold": DefaultSimilarityThreshold}
	case OpPatterns:
		return map[string]any{"analysis_type": string(AnalysisRelationships), "max_results": DefaultPatternResults, "time_range_days": DefaultTimeRangeDays}
	case OpClusters:
		return map[string]any{"cluster_method": string(MethodKMeans), "num_clusters": DefaultNumClusters, "min_cluster_size": DefaultMinClusterSize}
	case OpTemporal:
		return map[string]any{"time_granularity": string(GranularityDay), "days_back": DefaultDaysBack}
	}
	return nil
}

// NewSimilarityParams returns similarity parameters with defaults applied.
func NewSimilarityParams(concept string) SimilarityParams {
	return SimilarityParams{
		Concept:             concept,
		MaxResults:          DefaultMaxResults,
		SimilarityThreshold: Threshold(DefaultSimilarityThreshold),
	}
}

// NewPatternParams returns pattern parameters with defaults applied.
func NewPatternParams(t AnalysisType) PatternParams {
	return PatternParams{AnalysisType: t, MaxResults: DefaultPatternResults, TimeRangeDays: DefaultTimeRangeDays}
}

// NewClusterParams returns clustering parameters with defaults applied.
func NewClusterParams(m ClusterMethod) ClusterParams {
	return ClusterParams{ClusterMethod: m, NumClusters: DefaultNumClusters, MinClusterSize: DefaultMinClusterSize}
}

// NewTemporalParams returns temporal parameters with defaults applied.
func NewTemporalParams(g Granularity) TemporalParams {
	return TemporalParams{TimeGranularity: g, DaysBack: DefaultDaysBack}
}

// Prepare normalizes and validates p.
func Prepare(p Params) error {
	p.Normalize()
	return p.Validate()
}
