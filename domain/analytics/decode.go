package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// New returns the defaulted parameter variant of op.
func New(op Operation) (Params, error) {
	switch op {
	case OpSimilarity:
		p := NewSimilarityParams("")
		return &p, nil
	case OpPatterns:
		p := NewPatternParams(AnalysisRelationships)
		return &p, nil
	case OpClusters:
		p := NewClusterParams(MethodKMeans)
		return &p, nil
	case OpTemporal:
		p := NewTemporalParams(GranularityDay)
		return &p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
}

// Decode parses JSON parameters of op over its defaults, then normalizes and
// validates them. Unknown fields are rejected. Empty input yields the defaults.
func Decode(op Operation, data []byte) (Params, error) {
	p, err := New(op)
	if err != nil {
		return nil, err
	}
	if err := DecodeInto(p, data); err != nil {
		return nil, err
	}
	return p, nil
}

// DecodeInto parses JSON parameters over the values already in p, then
// normalizes and validates p.
func DecodeInto(p Params, data []byte) error {
	if len(bytes.TrimSpace(data)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(p); err != nil {
			return ValidationErrors{{Message: fmt.Sprintf("malformed parameters: %v", err)}}
		}
	}
	return Prepare(p)
}
