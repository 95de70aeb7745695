package concept

import "context"

// Store persists concepts and relationships.
type Store interface {
	// AddConcept inserts or replaces a concept by id.
	AddConcept(ctx context.Context, c Concept) error

	// GetConcept returns the concept with the given id.
	GetConcept(ctx context.Context, id string) (Concept, error)

	// FindByName returns the concept whose normalized name matches.
	FindByName(ctx context.Context, name string) (Concept, error)

	// ListConcepts returns all concepts ordered by name.
	ListConcepts(ctx context.Context) ([]Concept, error)

	// AddRelationship inserts or replaces a relationship by id.
	// Both endpoints must exist.
	AddRelationship(ctx context.Context, r Relationship) error

	// ListRelationships returns all relationships ordered by id.
	ListRelationships(ctx context.Context) ([]Relationship, error)

	// Count returns the number of concepts and relationships.
	Count(ctx context.Context) (concepts, relationships int, err error)

	// Close releases resources.
	Close() error
}
