package config

import (
	"encoding/json"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	ID                   string                 `json:"$id,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	AdditionalProperties *JSONSchema            `json:"additionalProperties,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	Maximum              *float64               `json:"maximum,omitempty"`
	Format               string                 `json:"format,omitempty"`
}

// GenerateSchema generates a JSON Schema for the server configuration.
func GenerateSchema() *JSONSchema {
	return &JSONSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		ID:          "https://github.com/felixgeelhaar/concept-analytics/server-config.schema.json",
		Title:       "Concept Analytics Configuration",
		Description: "Configuration schema for the concept analytics server",
		Type:        "object",
		Required:    []string{"name", "version"},
		Properties: map[string]*JSONSchema{
			"name":    {Type: "string", Description: "Server name", Default: "concept-analytics"},
			"version": {Type: "string", Description: "Configuration schema version", Default: "1.0"},
			"logging": object("Structured logging", map[string]*JSONSchema{
				"level":  enum("Minimum log level", "info", "trace", "debug", "info", "warn", "error"),
				"format": enum("Output format", "json", "json", "console"),
			}),
			"cache": object("Analytics result cache", map[string]*JSONSchema{
				"default_ttl": duration("TTL for operations without an explicit TTL; 0 never expires", "5m"),
				"ttls": {
					Type:                 "object",
					Description:          "Per-operation TTLs (similarity, patterns, clusters, temporal)",
					AdditionalProperties: duration("", nil),
				},
				"max_entries":     integer("LRU capacity; 0 is unbounded", 10000, 0, nil),
				"shards":          integer("Number of lock shards", 16, 1, nil),
				"sweep_interval":  duration("Expired entry purge interval", "1m"),
				"compute_timeout": duration("Maximum duration of one computation", "30s"),
			}),
			"analytics": object("Analytic defaults", map[string]*JSONSchema{
				"similarity_threshold": number("Minimum similarity", 0.7, 0, 1),
				"max_results":          integer("Result limit", 10, 1, floatPtr(100)),
				"num_clusters":         integer("Cluster count", 5, 1, floatPtr(50)),
				"min_cluster_size":     integer("Minimum cluster size", 2, 1, nil),
				"dbscan_epsilon":       number("Cosine distance radius for dbscan", 0.6, 0, 2),
				"days_back":            integer("Temporal window in days", 30, 1, floatPtr(3650)),
				"vector_dims":          integer("Feature vector width", 256, 1, nil),
			}),
			"resilience": object("Guards around analytic computations", map[string]*JSONSchema{
				"timeout":        duration("Guarded computation timeout", "30s"),
				"max_concurrent": integer("Bulkhead size", 10, 1, nil),
				"retry": object("Retry behavior", map[string]*JSONSchema{
					"max_attempts":  integer("Maximum attempts", 3, 1, nil),
					"initial_delay": duration("First retry delay", "100ms"),
					"multiplier":    number("Backoff multiplier", 2.0, 1, 0),
				}),
				"circuit_breaker": object("Circuit breaker behavior", map[string]*JSONSchema{
					"threshold": integer("Consecutive failures before opening", 5, 1, nil),
					"timeout":   duration("How long the circuit stays open", "30s"),
				}),
				"rate_limit": object("Tool call rate limiting", map[string]*JSONSchema{
					"enabled": {Type: "boolean", Default: false},
					"rate":    integer("Tokens per second", 50, 1, nil),
					"burst":   integer("Maximum burst", 100, 1, nil),
				}),
			}),
			"storage": object("Concept store", map[string]*JSONSchema{
				"driver":    enum("Store implementation", "memory", "memory", "sqlite", "badger", "postgres"),
				"dsn":       {Type: "string", Description: "Connection string for sqlite and postgres"},
				"dir":       {Type: "string", Description: "Badger data directory; empty is in-memory"},
				"seed_file": {Type: "string", Description: "Dataset file loaded at startup"},
				"watch":     {Type: "boolean", Description: "Reload seed_file on change", Default: false},
			}),
			"observability": object("Tracing and metrics", map[string]*JSONSchema{
				"tracing": object("Trace exporter", map[string]*JSONSchema{
					"enabled":     {Type: "boolean", Default: false},
					"exporter":    enum("Exporter", "noop", "stdout", "otlp", "noop"),
					"endpoint":    {Type: "string", Description: "OTLP collector address"},
					"insecure":    {Type: "boolean", Default: false},
					"sample_rate": number("Sampled fraction of traces", 1.0, 0, 1),
				}),
				"metrics": object("Metric instruments", map[string]*JSONSchema{
					"enabled": {Type: "boolean", Default: false},
				}),
			}),
			"transport": object("Tool transport", map[string]*JSONSchema{
				"mode": enum("Transport mode", "stdio", "stdio", "http"),
				"addr": {Type: "string", Description: "HTTP listen address", Default: ":8080"},
			}),
		},
	}
}

func object(description string, props map[string]*JSONSchema) *JSONSchema {
	return &JSONSchema{Type: "object", Description: description, Properties: props}
}

func enum(description, def string, values ...string) *JSONSchema {
	return &JSONSchema{Type: "string", Description: description, Enum: values, Default: def}
}

func duration(description string, def any) *JSONSchema {
	return &JSONSchema{Type: "string", Description: description, Format: "duration", Default: def}
}

func integer(description string, def int, minimum float64, maximum *float64) *JSONSchema {
	return &JSONSchema{Type: "integer", Description: description, Default: def, Minimum: floatPtr(minimum), Maximum: maximum}
}

// number describes a float field; a zero maximum leaves it unbounded.
func number(description string, def, minimum, maximum float64) *JSONSchema {
	s := &JSONSchema{Type: "number", Description: description, Default: def, Minimum: floatPtr(minimum)}
	if maximum > 0 {
		s.Maximum = floatPtr(maximum)
	}
	return s
}

func floatPtr(f float64) *float64 {
	return &f
}

// SchemaJSON returns the JSON Schema as a JSON string.
func SchemaJSON() (string, error) {
	data, err := json.MarshalIndent(GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
