package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
	"github.com/felixgeelhaar/concept-analytics/domain/tool"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/storage/memory"
)

// Tool names.
const (
	ToolFindSimilarConcepts   = "find_similar_concepts"
	ToolAnalyzePatterns       = "analyze_patterns"
	ToolGetSemanticClusters   = "get_semantic_clusters"
	ToolGetTemporalPatterns   = "get_temporal_patterns"
	ToolGetPerformanceStats   = "get_performance_stats"
	ToolClearPerformanceCache = "clear_performance_cache"
	ToolAddConcept            = "add_concept"
)

// Tools returns the tools backed by s.
func Tools(s *Service) []tool.Tool {
	maxResults := float64(analytics.MaxResultsLimit)
	maxDays := float64(analytics.MaxDaysLimit)

	return []tool.Tool{
		tool.NewBuilder(ToolFindSimilarConcepts).
			WithDescription("Find concepts similar to the given concept.").
			WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
				"concept":              tool.String("Concept name to compare against"),
				"max_results":          tool.Integer("Maximum number of matches", analytics.DefaultMaxResults, 1, maxResults),
				"similarity_threshold": tool.Number("Minimum similarity score", analytics.DefaultSimilarityThreshold, 0, 1),
			}, "concept")).
			ReadOnly().
			Cacheable().
			WithTags("analytics", "similarity").
			WithHandler(s.queryHandler(analytics.OpSimilarity)).
			MustBuild(),

		tool.NewBuilder(ToolAnalyzePatterns).
			WithDescription("Analyze relationship, cluster, temporal or centrality patterns of the concept graph.").
			WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
				"analysis_type": tool.Enum("Kind of analysis", string(analytics.AnalysisRelationships),
					string(analytics.AnalysisRelationships), string(analytics.AnalysisClusters),
					string(analytics.AnalysisTemporal), string(analytics.AnalysisCentrality)),
				"max_results":     tool.Integer("Maximum number of patterns", analytics.DefaultPatternResults, 1, maxResults),
				"time_range_days": tool.Integer("Days of history for temporal analysis", analytics.DefaultTimeRangeDays, 1, maxDays),
			})).
			ReadOnly().
			Cacheable().
			WithTags("analytics", "patterns").
			WithHandler(s.queryHandler(analytics.OpPatterns)).
			MustBuild(),

		tool.NewBuilder(ToolGetSemanticClusters).
			WithDescription("Group concepts into semantic clusters.").
			WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
				"cluster_method": tool.Enum("Clustering algorithm", string(analytics.MethodKMeans),
					string(analytics.MethodKMeans), string(analytics.MethodHierarchical), string(analytics.MethodDBSCAN)),
				"num_clusters":     tool.Integer("Maximum number of clusters", analytics.DefaultNumClusters, 1, analytics.MaxClustersLimit),
				"min_cluster_size": tool.Integer("Minimum concepts per cluster", analytics.DefaultMinClusterSize, 1, 1000),
			})).
			ReadOnly().
			Cacheable().
			WithTags("analytics", "clusters").
			WithHandler(s.queryHandler(analytics.OpClusters)).
			MustBuild(),

		tool.NewBuilder(ToolGetTemporalPatterns).
			WithDescription("Bucket concept graph activity over time.").
			WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
				"time_granularity": tool.Enum("Bucket size", string(analytics.GranularityDay),
					string(analytics.GranularityDay), string(analytics.GranularityWeek), string(analytics.GranularityMonth)),
				"days_back":      tool.Integer("Days of history", analytics.DefaultDaysBack, 1, maxDays),
				"concept_filter": tool.String("Only count concepts whose name contains this text"),
			})).
			ReadOnly().
			Cacheable().
			WithTags("analytics", "temporal").
			WithHandler(s.queryHandler(analytics.OpTemporal)).
			MustBuild(),

		tool.NewBuilder(ToolGetPerformanceStats).
			WithDescription("Report cache statistics, per-tool latency and uptime.").
			WithInputSchema(tool.EmptySchema()).
			WithAnnotations(tool.Annotations{ReadOnly: true}).
			WithTags("admin").
			WithHandler(func(context.Context, json.RawMessage) (tool.Result, error) {
				return tool.JSONResult(s.GetPerformanceStats())
			}).
			MustBuild(),

		tool.NewBuilder(ToolClearPerformanceCache).
			WithDescription("Empty the analytics cache and reset its counters.").
			WithInputSchema(tool.EmptySchema()).
			Destructive().
			WithTags("admin").
			WithHandler(func(ctx context.Context, _ json.RawMessage) (tool.Result, error) {
				resp := s.ClearPerformanceCache(ctx)
				logging.Info().
					Add(logging.Component("service")).
					Add(logging.Count("entries_removed", resp.EntriesRemoved)).
					Msg("analytics cache cleared")
				return tool.JSONResult(resp)
			}).
			MustBuild(),

		tool.NewBuilder(ToolAddConcept).
			WithDescription("Add or update a concept and link it to existing concepts.").
			WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
				"name":        tool.String("Concept name"),
				"description": tool.String("Concept description"),
				"tags":        tool.Strings("Concept tags"),
				"relationships": {
					Type:        "array",
					Description: "Links to existing concepts: {to, type, weight}",
					Items:       &tool.Property{Type: "object"},
				},
			}, "name")).
			WithTags("graph").
			WithHandler(s.addConceptHandler).
			MustBuild(),
	}
}

// NewToolRegistry returns a registry holding the tools of s.
func NewToolRegistry(s *Service) (*memory.ToolRegistry, error) {
	return memory.NewToolRegistry(Tools(s)...)
}

func (s *Service) queryHandler(op analytics.Operation) tool.Handler {
	return func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
		start := time.Now()
		resp, status, err := s.Query(ctx, op, input)
		if err != nil {
			return failure(err), nil
		}
		result, err := tool.JSONResult(resp)
		if err != nil {
			return tool.Result{}, fmt.Errorf("encode %s response: %w", op, err)
		}
		result.CacheStatus = string(status)
		result.Duration = time.Since(start)
		return result, nil
	}
}

func (s *Service) addConceptHandler(ctx context.Context, input json.RawMessage) (tool.Result, error) {
	var in AddConceptInput
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return tool.FailureResult(tool.ErrorValidation, fmt.Sprintf("malformed input: %v", err)), nil
	}
	resp, err := s.AddConcept(ctx, in)
	if err != nil {
		return failure(err), nil
	}
	return tool.JSONResult(resp)
}

// failure turns a service error into a failed response record.
func failure(err error) tool.Result {
	t := Classify(err)
	if t == tool.ErrorInternal {
		logging.Error().
			Add(logging.Component("service")).
			Add(logging.ErrorField(err)).
			Msg("internal error")
	}
	return tool.FailureResult(t, err.Error())
}
