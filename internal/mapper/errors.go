package mapper

import "errors"

var (
	ErrMissingSpec         = errors.New("document has no spec")
	ErrInvalidAPIVersion   = errors.New("unsupported api_version")
	ErrInvalidInterval     = errors.New("invalid monitor interval")
	ErrNonPositiveInterval = errors.New("monitor interval must be positive")
)
