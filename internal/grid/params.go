package grid

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
)

var validate = validator.New()

// MinSideM is the smallest box side accepted. A full-width equatorial band
// at this side holds about 4,000 boxes, which a store must be able to commit
// in one transaction.
const MinSideM = 10_000

// Params configures a grid build. Longitudes follow the [-180, 180)
// convention, so LonStart+LonSpan may not pass 180.
type Params struct {
	LonStart    float64 `json:"lon_start" validate:"gte=-180,lt=180"`
	LatStart    float64 `json:"lat_start" validate:"gte=-90,lt=90"`
	LonSpan     float64 `json:"lon_span" validate:"gt=0,lte=360"`
	LatSpan     float64 `json:"lat_span" validate:"gt=0,lte=180"`
	SideM       float64 `json:"side_m" validate:"gte=10000,lte=5000000"`
	Concurrency int     `json:"concurrency" validate:"gte=1,lte=256"`
}

// DefaultParams is a 100 km grid over the mid-latitude and tropical ocean.
func DefaultParams() Params {
	return Params{
		LonStart:    -180,
		LatStart:    -60,
		LonSpan:     360,
		LatSpan:     120,
		SideM:       100_000,
		Concurrency: 4,
	}
}

// LatEnd is the northern limit of the grid.
func (p Params) LatEnd() float64 { return p.LatStart + p.LatSpan }

// LonEnd is the eastern limit of the grid.
func (p Params) LonEnd() float64 { return p.LonStart + p.LonSpan }

// Validate checks field ranges and that the spans stay on the globe.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("grid params: %w: %w", domain.ErrInvalidInput, err)
	}
	if p.LatEnd() > 90+edgeEpsilon {
		return fmt.Errorf("grid params: latitude span ends at %.4f: %w", p.LatEnd(), domain.ErrInvalidInput)
	}
	if p.LonEnd() > 180+edgeEpsilon {
		return fmt.Errorf("grid params: longitude span ends at %.4f: %w", p.LonEnd(), domain.ErrInvalidInput)
	}
	return nil
}
