// Package concept defines the concept graph the analytics operate on.
package concept

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// namespace scopes name-derived concept ids.
var namespace = uuid.MustParse("6f1c3a52-9b0e-4e8c-a1d2-6b7f0c9e4d21")

// Concept is a node of the graph.
type Concept struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// RelationType classifies an edge.
type RelationType string

// Relationship types used by the sample dataset. Stores accept any non-empty type.
const (
	RelatedTo RelationType = "related_to"
	IsA       RelationType = "is_a"
	PartOf    RelationType = "part_of"
	UsedIn    RelationType = "used_in"
	Enables   RelationType = "enables"
)

// Relationship is a weighted, typed edge between two concepts.
type Relationship struct {
	ID        string       `json:"id" yaml:"id"`
	From      string       `json:"from" yaml:"from"`
	To        string       `json:"to" yaml:"to"`
	Type      RelationType `json:"type" yaml:"type"`
	Weight    float64      `json:"weight" yaml:"weight"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
}

// NewID derives a stable concept id from its name. Names differing only in
// case or surrounding whitespace map to the same id.
func NewID(name string) string {
	return uuid.NewSHA1(namespace, []byte(NormalizeName(name))).String()
}

// NewRelationshipID derives a stable id for an edge.
func NewRelationshipID(from, to string, typ RelationType) string {
	return uuid.NewSHA1(namespace, []byte(from+"|"+to+"|"+string(typ))).String()
}

// NormalizeName lowercases and trims a concept name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Validate checks required fields.
func (c Concept) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConcept)
	}
	if c.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidConcept)
	}
	return nil
}

// Validate checks required fields and the weight range.
func (r Relationship) Validate() error {
	switch {
	case r.From == "" || r.To == "":
		return fmt.Errorf("%w: both endpoints are required", ErrInvalidRelationship)
	case r.From == r.To:
		return fmt.Errorf("%w: self loops are not allowed", ErrInvalidRelationship)
	case r.Type == "":
		return fmt.Errorf("%w: type is required", ErrInvalidRelationship)
	case r.Weight < 0 || r.Weight > 1:
		return fmt.Errorf("%w: weight %v outside [0,1]", ErrInvalidRelationship, r.Weight)
	}
	return nil
}
