package lookup_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/geo"
	"github.com/couchcryptid/ocean-grid-etl/internal/grid"
	"github.com/couchcryptid/ocean-grid-etl/internal/lookup"
)

func scenarioParams() grid.Params {
	return grid.Params{LonStart: -180, LatStart: -40, LonSpan: 360, LatSpan: 80, SideM: 1_000_000, Concurrency: 4}
}

func TestBoxFor_RoundTripsBoxCenters(t *testing.T) {
	for name, idx := range map[string]*lookup.Index{
		"open ocean": buildIndex(t, scenarioParams(), nil),
		"with land": buildIndex(t,
			grid.Params{LonStart: -40, LatStart: -10, LonSpan: 80, LatSpan: 20, SideM: 200_000, Concurrency: 2},
			[][][]geo.Point{{square(-5, -20, 12, 20)}}),
	} {
		t.Run(name, func(t *testing.T) {
			boxes := allBoxes(idx)
			require.NotEmpty(t, boxes)
			for _, b := range boxes {
				got, err := idx.BoxFor(b.Center.Lon, b.Center.Lat)
				require.NoError(t, err, "box %s", b.ID)
				assert.Equal(t, b.ID, got)
			}
		})
	}
}

func TestBoxFor_Partition(t *testing.T) {
	idx := buildIndex(t,
		grid.Params{LonStart: -30, LatStart: -6, LonSpan: 60, LatSpan: 12, SideM: 150_000, Concurrency: 3},
		[][][]geo.Point{{square(-2, -3, 6, 4)}})
	boxes := allBoxes(idx)

	found, gaps := 0, 0
	for lat := -5.97; lat < 6; lat += 0.173 {
		for lon := -29.99; lon < 30; lon += 0.311 {
			id, err := idx.BoxFor(lon, lat)
			if errors.Is(err, domain.ErrNotFound) {
				gaps++
				for _, b := range boxes {
					assert.False(t, b.Contains(lon, lat), "(%v, %v) in box %s but lookup says land", lon, lat, b.ID)
				}
				continue
			}
			require.NoError(t, err)
			found++

			owners := 0
			for _, b := range boxes {
				if b.Contains(lon, lat) {
					owners++
					assert.Equal(t, b.ID, id)
				}
			}
			assert.Equal(t, 1, owners, "(%v, %v) owned by %d boxes", lon, lat, owners)
		}
	}
	assert.Positive(t, found)
	assert.Positive(t, gaps, "land gap never sampled")
}

func TestBoxFor_PartitionAtBandSeams(t *testing.T) {
	idx := buildIndex(t,
		grid.Params{LonStart: -30, LatStart: -60, LonSpan: 60, LatSpan: 120, SideM: 100_000, Concurrency: 4}, nil)
	bands := idx.Bands()
	require.Greater(t, len(bands), 100)

	for i := 1; i < len(bands); i++ {
		require.Equal(t, bands[i-1].Top(), bands[i].Boundary, "seam %d", i)

		lat := bands[i].Boundary
		candidates := append(slices.Clone(idx.BandBoxes(i-1)), idx.BandBoxes(i)...)
		for _, lon := range []float64{-30, -12.345, 0, 17.5, 29.99} {
			id, err := idx.BoxFor(lon, lat)
			require.NoError(t, err, "(%v, %v)", lon, lat)
			assert.Equal(t, i, id.Lat, "seam latitude belongs to the band above")

			box, ok := idx.Box(id)
			require.True(t, ok)
			assert.True(t, box.Contains(lon, lat), "%s does not hold (%v, %v)", id, lon, lat)

			owners := 0
			for _, b := range candidates {
				if b.Contains(lon, lat) {
					owners++
				}
			}
			assert.Equal(t, 1, owners, "(%v, %v) owned by %d boxes", lon, lat, owners)
		}
	}
	assert.True(t, idx.Validate(0, 1).OK())
}

func TestBoxFor_OutOfBounds(t *testing.T) {
	idx := buildIndex(t, scenarioParams(), nil)

	tests := []struct {
		name     string
		lon, lat float64
	}{
		{"south of grid", 0, -40.0001},
		{"north edge", 0, 40},
		{"north of grid", 0, 60},
		{"east edge", 180, 0},
		{"unnormalized longitude", 200, 0},
		{"west of grid", -180.0001, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := idx.BoxFor(tc.lon, tc.lat)
			assert.ErrorIs(t, err, domain.ErrOutOfBounds)
		})
	}

	_, err := idx.BoxFor(-180, -40)
	assert.NoError(t, err, "south-west corner of the grid is inside")
}

func TestBoxFor_EmptyIndex(t *testing.T) {
	idx := lookup.NewIndex(grid.Manifest{Params: scenarioParams()}, nil, nil)
	_, err := idx.BoxFor(0, 0)
	assert.ErrorIs(t, err, domain.ErrOutOfBounds)
}

func TestIndex_Box(t *testing.T) {
	idx := buildIndex(t, scenarioParams(), nil)

	b, ok := idx.Box(domain.BoxID{Lat: 2, Lon: 3})
	require.True(t, ok)
	assert.Equal(t, domain.BoxID{Lat: 2, Lon: 3}, b.ID)

	for _, missing := range []domain.BoxID{{Lat: 99, Lon: 0}, {Lat: 0, Lon: 999}, {Lat: -1, Lon: 0}} {
		_, ok := idx.Box(missing)
		assert.False(t, ok, "box %s", missing)
	}
}

// --- Load ---

type fakeReader struct {
	manifest    *grid.Manifest
	bands       []grid.LatitudeBand
	boxes       map[int][]grid.Box
	manifestErr error
	boxesErr    error
}

func (r *fakeReader) Manifest(context.Context) (grid.Manifest, error) {
	if r.manifestErr != nil {
		return grid.Manifest{}, r.manifestErr
	}
	if r.manifest == nil {
		return grid.Manifest{}, domain.ErrNotFound
	}
	return *r.manifest, nil
}

func (r *fakeReader) Bands(context.Context) ([]grid.LatitudeBand, error) {
	return r.bands, nil
}

func (r *fakeReader) BandBoxes(_ context.Context, latIndex int) ([]grid.Box, error) {
	if r.boxesErr != nil {
		return nil, r.boxesErr
	}
	return r.boxes[latIndex], nil
}

func readerFor(t *testing.T) *fakeReader {
	t.Helper()
	idx := buildIndex(t, scenarioParams(), nil)
	m := idx.Manifest()
	r := &fakeReader{manifest: &m, bands: idx.Bands(), boxes: map[int][]grid.Box{}}
	for _, b := range idx.Bands() {
		r.boxes[b.Index] = idx.BandBoxes(b.Index)
	}
	return r
}

func TestLoad(t *testing.T) {
	t.Run("complete grid", func(t *testing.T) {
		r := readerFor(t)
		idx, err := lookup.Load(context.Background(), r)
		require.NoError(t, err)
		assert.Len(t, idx.Bands(), 9)

		id, err := idx.BoxFor(0.5, 0.5)
		require.NoError(t, err)
		assert.Equal(t, 4, id.Lat)
	})

	t.Run("no manifest", func(t *testing.T) {
		r := readerFor(t)
		r.manifest = nil
		_, err := lookup.Load(context.Background(), r)
		assert.ErrorIs(t, err, domain.ErrGridIncomplete)
	})

	t.Run("missing band", func(t *testing.T) {
		r := readerFor(t)
		r.bands = r.bands[:len(r.bands)-1]
		_, err := lookup.Load(context.Background(), r)
		assert.ErrorIs(t, err, domain.ErrGridIncomplete)
	})

	t.Run("missing boxes", func(t *testing.T) {
		r := readerFor(t)
		r.boxes[3] = r.boxes[3][:2]
		_, err := lookup.Load(context.Background(), r)
		assert.ErrorIs(t, err, domain.ErrGridIncomplete)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		boom := errors.New("store unavailable")
		r := readerFor(t)
		r.boxesErr = boom
		_, err := lookup.Load(context.Background(), r)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, domain.ErrGridIncomplete)
	})
}
