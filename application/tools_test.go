package application

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/felixgeelhaar/concept-analytics/domain/tool"
)

func TestNewToolRegistry(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ServiceConfig{})
	reg, err := NewToolRegistry(svc)
	if err != nil {
		t.Fatalf("NewToolRegistry() error = %v", err)
	}

	want := []string{
		ToolAddConcept,
		ToolAnalyzePatterns,
		ToolClearPerformanceCache,
		ToolFindSimilarConcepts,
		ToolGetPerformanceStats,
		ToolGetSemanticClusters,
		ToolGetTemporalPatterns,
	}
	got := reg.Names()
	sort.Strings(got)
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	for _, name := range []string{ToolFindSimilarConcepts, ToolAnalyzePatterns, ToolGetSemanticClusters, ToolGetTemporalPatterns} {
		tl, _ := reg.Get(name)
		if a := tl.Annotations(); !a.ReadOnly || !a.Cacheable {
			t.Errorf("%s annotations = %+v, want read-only cacheable", name, a)
		}
	}
	if tl, _ := reg.Get(ToolClearPerformanceCache); !tl.Annotations().Destructive {
		t.Error("clear_performance_cache is not destructive")
	}
}

func execute(t *testing.T, svc *Service, name, input string) tool.Result {
	t.Helper()
	for _, tl := range Tools(svc) {
		if tl.Name() != name {
			continue
		}
		result, err := tl.Execute(context.Background(), json.RawMessage(input))
		if err != nil {
			t.Fatalf("Execute(%s) error = %v", name, err)
		}
		return result
	}
	t.Fatalf("tool %s not found", name)
	return tool.Result{}
}

func TestTools_QueryHandlerReportsCacheStatus(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ServiceConfig{})
	input := `{"concept":"neural networks","max_results":3}`

	first := execute(t, svc, ToolFindSimilarConcepts, input)
	if first.CacheStatus != "miss" {
		t.Errorf("first CacheStatus = %q, want miss", first.CacheStatus)
	}
	second := execute(t, svc, ToolFindSimilarConcepts, input)
	if !second.Cached() {
		t.Errorf("second CacheStatus = %q, want hit", second.CacheStatus)
	}

	var resp SimilarityResponse
	if err := json.Unmarshal(second.Output, &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !resp.Success || resp.CacheStatus != "hit" {
		t.Errorf("response = %+v, want success hit", resp)
	}
	if len(resp.SimilarConcepts) > 3 {
		t.Errorf("len(SimilarConcepts) = %d, want <= 3", len(resp.SimilarConcepts))
	}
}

func TestTools_FailureRecords(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ServiceConfig{})

	tests := []struct {
		name  string
		tool  string
		input string
		want  tool.ErrorType
	}{
		{"invalid enum", ToolAnalyzePatterns, `{"analysis_type":"sideways"}`, tool.ErrorValidation},
		{"missing concept", ToolFindSimilarConcepts, `{}`, tool.ErrorValidation},
		{"unknown add field", ToolAddConcept, `{"name":"x","colour":"red"}`, tool.ErrorValidation},
		{"unknown target", ToolAddConcept, `{"name":"x","relationships":[{"to":"nowhere"}]}`, tool.ErrorValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := execute(t, svc, tt.tool, tt.input)
			if !result.Failed {
				t.Fatalf("Failed = false, output = %s", result.Output)
			}
			var f tool.Failure
			if err := json.Unmarshal(result.Output, &f); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if f.Success {
				t.Error("Success = true, want false")
			}
			if f.Error.Type != tt.want {
				t.Errorf("Error.Type = %q, want %q", f.Error.Type, tt.want)
			}
			if f.Error.Message == "" {
				t.Error("Error.Message is empty")
			}
		})
	}
}

func TestTools_StatsAndClear(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ServiceConfig{})
	execute(t, svc, ToolGetSemanticClusters, `{"cluster_method":"dbscan"}`)

	cleared := execute(t, svc, ToolClearPerformanceCache, `{}`)
	var clear ClearResponse
	if err := json.Unmarshal(cleared.Output, &clear); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if clear.EntriesRemoved != 1 {
		t.Errorf("EntriesRemoved = %d, want 1", clear.EntriesRemoved)
	}

	statsResult := execute(t, svc, ToolGetPerformanceStats, `{}`)
	var stats StatsResponse
	if err := json.Unmarshal(statsResult.Output, &stats); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !stats.Success {
		t.Error("Success = false")
	}
	if stats.CachePerformance.Size != 0 {
		t.Errorf("Size = %d, want 0", stats.CachePerformance.Size)
	}
}
