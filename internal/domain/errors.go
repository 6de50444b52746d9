package domain

import "errors"

// Error taxonomy shared by the grid, calendar, and lookup packages.
// Callers match with errors.Is; every returned error wraps one of these
// or a collaborator failure.
var (
	// ErrOutOfBounds reports a coordinate outside the built grid span.
	ErrOutOfBounds = errors.New("coordinate outside grid span")
	// ErrNotFound reports a missing box, band, or calendar interval.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput reports a malformed radius, box name, date, or parameter.
	ErrInvalidInput = errors.New("invalid input")
	// ErrGridIncomplete reports a store that holds no completed grid build.
	ErrGridIncomplete = errors.New("grid build incomplete")
)
