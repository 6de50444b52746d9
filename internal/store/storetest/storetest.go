// Package storetest is a contract suite run against every store.Store
// implementation.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/geo"
	"github.com/couchcryptid/ocean-grid-etl/internal/grid"
	"github.com/couchcryptid/ocean-grid-etl/internal/lookup"
	"github.com/couchcryptid/ocean-grid-etl/internal/pentad"
	"github.com/couchcryptid/ocean-grid-etl/internal/store"
)

// Opener returns a fresh, empty store. The suite closes it.
type Opener func(t *testing.T) store.Store

// Run exercises the full store contract.
func Run(t *testing.T, open Opener) {
	t.Run("grid", func(t *testing.T) { testGrid(t, open) })
	t.Run("reset", func(t *testing.T) { testReset(t, open) })
	t.Run("lookup index loads", func(t *testing.T) { testLoadIndex(t, open) })
	t.Run("calendar", func(t *testing.T) { testCalendar(t, open) })
	t.Run("observations", func(t *testing.T) { testObservations(t, open) })
	t.Run("readiness", func(t *testing.T) { testReadiness(t, open) })
}

func openStore(t *testing.T, open Opener) store.Store {
	t.Helper()
	s := open(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func band(i int) grid.LatitudeBand {
	return grid.LatitudeBand{Index: i, Boundary: -10 + float64(i), North: -9 + float64(i), Height: 1}
}

func boxes(b grid.LatitudeBand, n int) []grid.Box {
	out := make([]grid.Box, n)
	for j := range out {
		west, east := float64(j), float64(j+1)
		out[j] = grid.Box{
			ID: domain.BoxID{Lat: b.Index, Lon: j},
			Corners: [4]geo.Point{
				grid.LowerLeft:  {Lon: west, Lat: b.Boundary},
				grid.UpperLeft:  {Lon: west, Lat: b.Top()},
				grid.UpperRight: {Lon: east, Lat: b.Top()},
				grid.LowerRight: {Lon: east, Lat: b.Boundary},
			},
			Center: geo.Point{Lon: west + 0.5, Lat: b.Boundary + 0.5},
			SideM:  111_000,
		}
	}
	return out
}

// commitGrid writes a grid of nBands bands with 12 boxes each. Band order
// is scrambled to check that reads are ordered by index.
func commitGrid(t *testing.T, s store.Store, nBands int) grid.Manifest {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Reset(ctx))
	total := 0
	for i := nBands - 1; i >= 0; i-- {
		b := band(i)
		require.NoError(t, s.CommitBand(ctx, b, boxes(b, 12)))
		total += 12
	}
	m := grid.Manifest{
		BuildID: fmt.Sprintf("build-%d", nBands),
		Params:  grid.Params{LonStart: 0, LatStart: -10, LonSpan: 12, LatSpan: float64(nBands), SideM: 111_000, Concurrency: 1},
		Bands:   nBands,
		Boxes:   total,
		BuiltAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CommitManifest(ctx, m))
	return m
}

func testGrid(t *testing.T, open Opener) {
	ctx := context.Background()
	s := openStore(t, open)

	_, err := s.Manifest(ctx)
	require.ErrorIs(t, err, domain.ErrNotFound)

	want := commitGrid(t, s, 12)

	got, err := s.Manifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	bands, err := s.Bands(ctx)
	require.NoError(t, err)
	require.Len(t, bands, 12)
	for i, b := range bands {
		assert.Equal(t, band(i), b)
	}

	row, err := s.BandBoxes(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, boxes(band(10), 12), row)

	box, err := s.Box(ctx, domain.BoxID{Lat: 3, Lon: 11})
	require.NoError(t, err)
	assert.Equal(t, boxes(band(3), 12)[11], box)

	_, err = s.Box(ctx, domain.BoxID{Lat: 3, Lon: 12})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	empty, err := s.BandBoxes(ctx, 40)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testReset(t *testing.T, open Opener) {
	ctx := context.Background()
	s := openStore(t, open)
	commitGrid(t, s, 5)

	require.NoError(t, s.Reset(ctx))

	_, err := s.Manifest(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	bands, err := s.Bands(ctx)
	require.NoError(t, err)
	assert.Empty(t, bands)
	_, err = s.Box(ctx, domain.BoxID{Lat: 0, Lon: 0})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	m := commitGrid(t, s, 2)
	got, err := s.Manifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, m.BuildID, got.BuildID)
}

func testLoadIndex(t *testing.T, open Opener) {
	ctx := context.Background()
	s := openStore(t, open)

	_, err := lookup.Load(ctx, s)
	require.ErrorIs(t, err, domain.ErrGridIncomplete)

	require.NoError(t, s.CommitBand(ctx, band(0), boxes(band(0), 12)))
	_, err = lookup.Load(ctx, s)
	require.ErrorIs(t, err, domain.ErrGridIncomplete, "bands without a manifest are not a grid")

	commitGrid(t, s, 3)
	idx, err := lookup.Load(ctx, s)
	require.NoError(t, err)

	id, err := idx.BoxFor(4.5, -8.5)
	require.NoError(t, err)
	assert.Equal(t, domain.BoxID{Lat: 1, Lon: 4}, id)
}

func testCalendar(t *testing.T, open Opener) {
	ctx := context.Background()
	s := openStore(t, open)

	_, err := s.HalfMonth(ctx, 3, 1)
	require.ErrorIs(t, err, domain.ErrNotFound)

	cal := pentad.Build()
	require.NoError(t, s.SaveCalendar(ctx, cal.HalfMonths()))

	got, err := s.Calendar(ctx)
	require.NoError(t, err)
	assert.Equal(t, cal.HalfMonths(), got)

	march, err := s.HalfMonth(ctx, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{13, 14, 15, 16}, march.Pentads)
	assert.Equal(t, 5, march.ID)

	// Saving again replaces rather than duplicates.
	require.NoError(t, s.SaveCalendar(ctx, cal.HalfMonths()))
	got, err = s.Calendar(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 24)
}

func observation(id string, box domain.BoxID, when time.Time, p int, sst float64) domain.TaggedObservation {
	return domain.TaggedObservation{
		Observation: domain.Observation{ID: id, Lon: 1, Lat: 2, Time: when, Value: sst, Source: "icoads"},
		Box:         box,
		Pentad:      p,
		HalfMonth:   (p + 2) / 3,
		ProcessedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testObservations(t *testing.T, open Opener) {
	ctx := context.Background()
	s := openStore(t, open)

	a := domain.BoxID{Lat: 1, Lon: 1}
	b := domain.BoxID{Lat: 1, Lon: 2}
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	batch := []domain.TaggedObservation{
		observation("o1", a, day(1990, time.January, 3), 1, 20.1),
		observation("o2", a, day(1991, time.March, 4), 13, 21.5),
		observation("o3", a, day(1995, time.March, 4), 13, 22.0),
		observation("o4", b, day(1991, time.January, 1), 1, 19.0),
		observation("o5", b, day(1991, time.January, 2), 1, 19.2),
	}
	require.NoError(t, s.LoadBatch(ctx, batch))
	require.NoError(t, s.LoadBatch(ctx, nil))

	ids := func(obs []domain.TaggedObservation) []string {
		out := make([]string, len(obs))
		for i, o := range obs {
			out[i] = o.ID
		}
		return out
	}

	got, err := s.Query(ctx, store.Query{Boxes: []domain.BoxID{a, b}, Years: domain.YearRange{From: 1990, To: 1991}})
	require.NoError(t, err)
	assert.Equal(t, []string{"o1", "o2", "o4", "o5"}, ids(got))
	assert.Equal(t, batch[0], got[0])

	got, err = s.Query(ctx, store.Query{Boxes: []domain.BoxID{a}, Years: domain.YearRange{From: 1980, To: 2000}, Pentads: []int{13}})
	require.NoError(t, err)
	assert.Equal(t, []string{"o2", "o3"}, ids(got))

	got, err = s.Query(ctx, store.Query{Boxes: []domain.BoxID{b, a, b}, Years: domain.SingleYear(1991)})
	require.NoError(t, err)
	assert.Equal(t, []string{"o2", "o4", "o5"}, ids(got), "repeated boxes are read once")

	got, err = s.Query(ctx, store.Query{Boxes: []domain.BoxID{b}, Years: domain.SingleYear(1995)})
	require.NoError(t, err)
	assert.Empty(t, got)

	// Reloading an ID replaces the stored observation.
	updated := observation("o4", b, day(1991, time.January, 1), 1, 18.5)
	require.NoError(t, s.LoadBatch(ctx, []domain.TaggedObservation{updated}))
	got, err = s.Query(ctx, store.Query{Boxes: []domain.BoxID{b}, Years: domain.SingleYear(1991)})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 18.5, got[0].Value)
}

func testReadiness(t *testing.T, open Opener) {
	s := open(t)
	require.NoError(t, s.CheckReadiness(context.Background()))
	require.NoError(t, s.Close())
	assert.Error(t, s.CheckReadiness(context.Background()))
}
