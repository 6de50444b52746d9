// Package store defines the persistence contract for grids, the pentad
// calendar, and tagged observations. Implementations live in subpackages.
package store

import (
	"cmp"
	"context"
	"slices"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/grid"
	"github.com/couchcryptid/ocean-grid-etl/internal/lookup"
	"github.com/couchcryptid/ocean-grid-etl/internal/pentad"
)

// Store persists every artifact of the system. Missing keys are reported
// as domain.ErrNotFound.
type Store interface {
	grid.Sink
	lookup.GridReader

	Box(ctx context.Context, id domain.BoxID) (grid.Box, error)

	SaveCalendar(ctx context.Context, halves []pentad.HalfMonth) error
	Calendar(ctx context.Context) ([]pentad.HalfMonth, error)
	HalfMonth(ctx context.Context, month, half int) (pentad.HalfMonth, error)

	// LoadBatch upserts tagged observations by ID.
	LoadBatch(ctx context.Context, obs []domain.TaggedObservation) error
	Query(ctx context.Context, q Query) ([]domain.TaggedObservation, error)

	CheckReadiness(ctx context.Context) error
	Close() error
}

// Query selects observations by box, year, and optionally pentad.
type Query struct {
	Boxes   []domain.BoxID
	Years   domain.YearRange
	Pentads []int // empty selects every pentad
}

// Matches reports whether o satisfies the query.
func (q Query) Matches(o domain.TaggedObservation) bool {
	if !slices.Contains(q.Boxes, o.Box) || !q.Years.Contains(o.Time.Year()) {
		return false
	}
	return len(q.Pentads) == 0 || slices.Contains(q.Pentads, o.Pentad)
}

// UniqueBoxes returns q.Boxes without repeats, in first-seen order.
func (q Query) UniqueBoxes() []domain.BoxID {
	seen := make(map[domain.BoxID]struct{}, len(q.Boxes))
	out := make([]domain.BoxID, 0, len(q.Boxes))
	for _, b := range q.Boxes {
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}

// SortObservations orders query results by box, then time, then ID.
func SortObservations(obs []domain.TaggedObservation) {
	slices.SortFunc(obs, func(a, b domain.TaggedObservation) int {
		return cmp.Or(
			cmp.Compare(a.Box.Lat, b.Box.Lat),
			cmp.Compare(a.Box.Lon, b.Box.Lon),
			a.Time.Compare(b.Time),
			cmp.Compare(a.ID, b.ID),
		)
	})
}
