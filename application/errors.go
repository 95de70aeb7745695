package application

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/concept-analytics/domain/analytics"
	"github.com/felixgeelhaar/concept-analytics/domain/cache"
	"github.com/felixgeelhaar/concept-analytics/domain/concept"
	"github.com/felixgeelhaar/concept-analytics/domain/tool"
)

// Classify maps a service error to the failure type reported to clients.
// Timeouts and cancellation are checked first because a ComputationError
// unwraps to its context cause.
func Classify(err error) tool.ErrorType {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return tool.ErrorTimeout
	case errors.Is(err, context.Canceled):
		return tool.ErrorCancelled
	case errors.Is(err, analytics.ErrValidation),
		errors.Is(err, tool.ErrInvalidInput),
		errors.Is(err, concept.ErrInvalidConcept),
		errors.Is(err, concept.ErrInvalidRelationship),
		errors.Is(err, concept.ErrConceptNotFound):
		return tool.ErrorValidation
	case errors.Is(err, cache.ErrKeyDerivation):
		return tool.ErrorKeyDerivation
	case errors.Is(err, cache.ErrComputation):
		return tool.ErrorComputation
	}
	return tool.ErrorInternal
}
