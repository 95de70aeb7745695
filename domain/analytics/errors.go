package analytics

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks caller parameters that violate a documented constraint.
var ErrValidation = errors.New("invalid parameters")

// ErrUnknownOperation is returned when dispatching an unregistered operation.
var ErrUnknownOperation = errors.New("unknown analytic operation")

// ValidationError describes one invalid parameter.
type ValidationError struct {
	// Field is the parameter name.
	Field string
	// Message describes the violated constraint.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors: %s", len(e), strings.Join(msgs, "; "))
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// errorList accumulates validation errors.
type errorList struct {
	errs ValidationErrors
}

func (l *errorList) add(field, format string, args ...any) {
	l.errs = append(l.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (l *errorList) intRange(field string, v, lo, hi int) {
	if v < lo || v > hi {
		l.add(field, "must be between %d and %d, got %d", lo, hi, v)
	}
}

func (l *errorList) err() error {
	if len(l.errs) == 0 {
		return nil
	}
	return l.errs
}
