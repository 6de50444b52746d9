package observability

import (
	"errors"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
)

// LookupOutcome classifies a lookup error as the outcome label of the
// Lookups counter.
func LookupOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
