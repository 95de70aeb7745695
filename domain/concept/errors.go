package concept

import "errors"

// Domain errors for concept storage.
var (
	// ErrConceptNotFound is returned when a concept does not exist.
	ErrConceptNotFound = errors.New("concept not found")

	// ErrInvalidConcept is returned when a concept fails validation.
	ErrInvalidConcept = errors.New("invalid concept")

	// ErrInvalidRelationship is returned when a relationship fails validation.
	ErrInvalidRelationship = errors.New("invalid relationship")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("concept store closed")

	// ErrInvalidDataset is returned when a dataset cannot be parsed or applied.
	ErrInvalidDataset = errors.New("invalid dataset")
)
