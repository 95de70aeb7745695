package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Schema wraps the JSON Schema of a tool input.
type Schema struct {
	raw json.RawMessage
}

// NewSchema creates a schema from raw JSON.
func NewSchema(raw json.RawMessage) Schema {
	return Schema{raw: raw}
}

// EmptySchema returns a schema for an object without properties.
func EmptySchema() Schema {
	return Schema{raw: json.RawMessage(`{"type":"object","properties":{}}`)}
}

// Property describes one input property.
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Default     any       `json:"default,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty"`
	Maximum     *float64  `json:"maximum,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// String describes a string property.
func String(description string) Property {
	return Property{Type: "string", Description: description}
}

// Enum describes a string property restricted to values.
func Enum(description string, def string, values ...string) Property {
	return Property{Type: "string", Description: description, Enum: values, Default: def}
}

// Integer describes a bounded integer property.
func Integer(description string, def int, minimum, maximum float64) Property {
	return Property{Type: "integer", Description: description, Default: def, Minimum: &minimum, Maximum: &maximum}
}

// Number describes a bounded number property.
func Number(description string, def, minimum, maximum float64) Property {
	return Property{Type: "number", Description: description, Default: def, Minimum: &minimum, Maximum: &maximum}
}

// Strings describes an array of strings.
func Strings(description string) Property {
	return Property{Type: "array", Description: description, Items: &Property{Type: "string"}}
}

// ObjectSchema returns a schema for an object with the given properties.
// Unknown properties are rejected.
func ObjectSchema(properties map[string]Property, required ...string) Schema {
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	raw, _ := json.Marshal(schema)
	return Schema{raw: raw}
}

// Raw returns the underlying JSON schema.
func (s Schema) Raw() json.RawMessage {
	return s.raw
}

// Validate checks that data is a JSON object, or empty.
func (s Schema) Validate(data json.RawMessage) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if !json.Valid(trimmed) {
		return fmt.Errorf("%w: malformed JSON", ErrInvalidInput)
	}
	if trimmed[0] != '{' {
		return fmt.Errorf("%w: input must be an object", ErrInvalidInput)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s.raw == nil {
		return []byte("{}"), nil
	}
	return s.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Schema) UnmarshalJSON(data []byte) error {
	s.raw = append(json.RawMessage(nil), data...)
	return nil
}
