package usecase

import "github.com/cockroachdb/errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrDataUnavailable marks a failed aggregation cycle. No partial
	// statistics accompany it.
	ErrDataUnavailable = errors.New("data unavailable")
)
