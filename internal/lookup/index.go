// Package lookup resolves coordinates to grid boxes and gathers boxes near
// a reference box. An Index is loaded once from a store holding a completed
// build and is then read-only; all methods are safe for concurrent use.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/grid"
)

// GridReader is the read side of a grid store.
type GridReader interface {
	// Manifest returns domain.ErrNotFound when no build has completed.
	Manifest(ctx context.Context) (grid.Manifest, error)
	// Bands returns every band ordered by index.
	Bands(ctx context.Context) ([]grid.LatitudeBand, error)
	// BandBoxes returns a band's boxes ordered by longitude index.
	BandBoxes(ctx context.Context, latIndex int) ([]grid.Box, error)
}

// Index is an in-memory view of a completed grid.
type Index struct {
	manifest grid.Manifest
	bands    []grid.LatitudeBand
	boxes    [][]grid.Box // by band index, then lon index
}

// Load reads the grid behind r. A store without a manifest, or whose
// contents disagree with it, is ErrGridIncomplete.
func Load(ctx context.Context, r GridReader) (*Index, error) {
	m, err := r.Manifest(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load grid: %w", domain.ErrGridIncomplete)
	}
	if err != nil {
		return nil, fmt.Errorf("load grid manifest: %w", err)
	}
	bands, err := r.Bands(ctx)
	if err != nil {
		return nil, fmt.Errorf("load grid bands: %w", err)
	}
	if len(bands) != m.Bands {
		return nil, fmt.Errorf("load grid: %d bands stored, manifest lists %d: %w", len(bands), m.Bands, domain.ErrGridIncomplete)
	}

	idx := &Index{manifest: m, bands: bands, boxes: make([][]grid.Box, len(bands))}
	total := 0
	for i, b := range bands {
		if b.Index != i {
			return nil, fmt.Errorf("load grid: band %d stored at position %d: %w", b.Index, i, domain.ErrGridIncomplete)
		}
		boxes, err := r.BandBoxes(ctx, b.Index)
		if err != nil {
			return nil, fmt.Errorf("load boxes of band %d: %w", b.Index, err)
		}
		idx.boxes[i] = boxes
		total += len(boxes)
	}
	if total != m.Boxes {
		return nil, fmt.Errorf("load grid: %d boxes stored, manifest lists %d: %w", total, m.Boxes, domain.ErrGridIncomplete)
	}
	return idx, nil
}

// NewIndex builds an Index directly from grid values; bands must be ordered
// by index and boxes[i] must belong to bands[i].
func NewIndex(m grid.Manifest, bands []grid.LatitudeBand, boxes [][]grid.Box) *Index {
	return &Index{manifest: m, bands: bands, boxes: boxes}
}

// Manifest describes the loaded build.
func (x *Index) Manifest() grid.Manifest { return x.manifest }

// Bands returns the loaded bands.
func (x *Index) Bands() []grid.LatitudeBand { return x.bands }

// BandBoxes returns the boxes of band latIndex, or nil.
func (x *Index) BandBoxes(latIndex int) []grid.Box {
	if latIndex < 0 || latIndex >= len(x.boxes) {
		return nil
	}
	return x.boxes[latIndex]
}

// Box returns the box with the given ID.
func (x *Index) Box(id domain.BoxID) (grid.Box, bool) {
	row := x.BandBoxes(id.Lat)
	if id.Lon < 0 || id.Lon >= len(row) {
		return grid.Box{}, false
	}
	return row[id.Lon], true
}

// BoxFor returns the box owning (lon, lat). Longitudes must already be on
// the [-180, 180) convention. Coordinates outside the built span are
// ErrOutOfBounds; coordinates inside the span that fall on a discarded land
// box are ErrNotFound.
func (x *Index) BoxFor(lon, lat float64) (domain.BoxID, error) {
	p := x.manifest.Params
	if len(x.bands) == 0 ||
		lat < x.bands[0].Boundary || lat >= x.bands[len(x.bands)-1].Top() ||
		lon < p.LonStart || lon >= p.LonEnd() {
		return domain.BoxID{}, fmt.Errorf("box for (%v, %v): %w", lon, lat, domain.ErrOutOfBounds)
	}

	// Last band whose boundary is <= lat.
	bi := sort.Search(len(x.bands), func(i int) bool { return x.bands[i].Boundary > lat }) - 1
	row := x.boxes[bi]

	// Last box whose western edge is <= lon.
	li := sort.Search(len(row), func(i int) bool { return row[i].West() > lon }) - 1
	if li < 0 || lon >= row[li].East() {
		return domain.BoxID{}, fmt.Errorf("box for (%v, %v): land at band %d: %w", lon, lat, bi, domain.ErrNotFound)
	}
	return row[li].ID, nil
}
