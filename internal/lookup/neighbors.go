package lookup

import (
	"fmt"
	"math"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/geo"
)

// IndexWindow is the half-width, in box indices, of the candidate window
// for a radius search. Two extra box sides pad for the longitude step
// narrowing away from the center band.
func IndexWindow(radiusKm, sideM float64) int {
	sideKm := sideM / 1000
	return int(math.Ceil((radiusKm + 2*sideKm) / sideKm))
}

// BoxesWithin returns every box whose center lies within radiusKm of the
// center box's center, by great-circle distance. The center box itself is
// included. Results are ordered by latitude index, then longitude index.
func (x *Index) BoxesWithin(center domain.BoxID, radiusKm float64) ([]domain.BoxID, error) {
	if math.IsNaN(radiusKm) || radiusKm < 0 {
		return nil, fmt.Errorf("radius %v km: %w", radiusKm, domain.ErrInvalidInput)
	}
	c, ok := x.Box(center)
	if !ok {
		return nil, fmt.Errorf("center box %s: %w", center, domain.ErrInvalidInput)
	}

	window := IndexWindow(radiusKm, c.SideM)
	var out []domain.BoxID
	for lat := center.Lat - window; lat <= center.Lat+window; lat++ {
		row := x.BandBoxes(lat)
		if row == nil {
			continue
		}
		lo := max(0, center.Lon-window)
		hi := min(len(row)-1, center.Lon+window)
		for lon := lo; lon <= hi; lon++ {
			if geo.Distance(c.Center, row[lon].Center) <= radiusKm {
				out = append(out, row[lon].ID)
			}
		}
	}
	return out, nil
}

// BoxesWithinName is BoxesWithin for a "{lat}_{lon}" box name.
func (x *Index) BoxesWithinName(name string, radiusKm float64) ([]domain.BoxID, error) {
	id, err := domain.ParseBoxID(name)
	if err != nil {
		return nil, err
	}
	return x.BoxesWithin(id, radiusKm)
}
