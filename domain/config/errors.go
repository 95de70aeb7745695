package config

import "errors"

// Loading errors.
var (
	ErrConfigNotFound    = errors.New("config file not found")
	ErrInvalidFormat     = errors.New("malformed config")
	ErrUnsupportedFormat = errors.New("config must be .yaml, .yml or .json")
	ErrMissingEnvVar     = errors.New("referenced environment variable is unset")
)

// ErrValidationFailed wraps the ValidationErrors of a rejected config.
var ErrValidationFailed = errors.New("invalid server config")
