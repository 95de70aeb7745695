package concept

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Dataset is a portable description of a concept graph. Relationships
// refer to concepts by name. Ages are relative to the load time so that
// temporal analysis stays meaningful for bundled data.
type Dataset struct {
	Concepts      []ConceptSpec      `yaml:"concepts" json:"concepts"`
	Relationships []RelationshipSpec `yaml:"relationships" json:"relationships"`
}

// ConceptSpec describes one concept of a dataset.
type ConceptSpec struct {
	Name           string   `yaml:"name" json:"name"`
	Description    string   `yaml:"description" json:"description"`
	Tags           []string `yaml:"tags" json:"tags"`
	CreatedDaysAgo int      `yaml:"created_days_ago" json:"created_days_ago"`
	UpdatedDaysAgo int      `yaml:"updated_days_ago" json:"updated_days_ago"`
}

// RelationshipSpec describes one relationship of a dataset.
type RelationshipSpec struct {
	From           string       `yaml:"from" json:"from"`
	To             string       `yaml:"to" json:"to"`
	Type           RelationType `yaml:"type" json:"type"`
	Weight         float64      `yaml:"weight" json:"weight"`
	CreatedDaysAgo int          `yaml:"created_days_ago" json:"created_days_ago"`
}

// ParseDataset decodes a YAML or JSON dataset.
func ParseDataset(data []byte) (Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	return ds, nil
}

// Build materializes the dataset relative to now.
func (d Dataset) Build(now time.Time) ([]Concept, []Relationship, error) {
	now = now.UTC()
	concepts := make([]Concept, 0, len(d.Concepts))
	ids := make(map[string]string, len(d.Concepts))
	for _, spec := range d.Concepts {
		created := now.AddDate(0, 0, -spec.CreatedDaysAgo)
		updated := created
		if spec.UpdatedDaysAgo > 0 && spec.UpdatedDaysAgo < spec.CreatedDaysAgo {
			updated = now.AddDate(0, 0, -spec.UpdatedDaysAgo)
		}
		c := Concept{
			ID:          NewID(spec.Name),
			Name:        spec.Name,
			Description: spec.Description,
			Tags:        spec.Tags,
			CreatedAt:   created,
			UpdatedAt:   updated,
		}
		if err := c.Validate(); err != nil {
			return nil, nil, err
		}
		ids[NormalizeName(spec.Name)] = c.ID
		concepts = append(concepts, c)
	}

	rels := make([]Relationship, 0, len(d.Relationships))
	for _, spec := range d.Relationships {
		from, ok := ids[NormalizeName(spec.From)]
		if !ok {
			return nil, nil, fmt.Errorf("%w: unknown concept %q", ErrInvalidDataset, spec.From)
		}
		to, ok := ids[NormalizeName(spec.To)]
		if !ok {
			return nil, nil, fmt.Errorf("%w: unknown concept %q", ErrInvalidDataset, spec.To)
		}
		typ := spec.Type
		if typ == "" {
			typ = RelatedTo
		}
		r := Relationship{
			ID:        NewRelationshipID(from, to, typ),
			From:      from,
			To:        to,
			Type:      typ,
			Weight:    spec.Weight,
			CreatedAt: now.AddDate(0, 0, -spec.CreatedDaysAgo),
		}
		if err := r.Validate(); err != nil {
			return nil, nil, err
		}
		rels = append(rels, r)
	}
	return concepts, rels, nil
}

// Apply writes the dataset into s.
func (d Dataset) Apply(ctx context.Context, s Store, now time.Time) error {
	concepts, rels, err := d.Build(now)
	if err != nil {
		return err
	}
	for _, c := range concepts {
		if err := s.AddConcept(ctx, c); err != nil {
			return err
		}
	}
	for _, r := range rels {
		if err := s.AddRelationship(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
