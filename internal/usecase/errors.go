package usecase

import "errors"

// Shared service-level errors. Handlers translate these into HTTP statuses.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrConflict              = errors.New("conflict")
)
