package lookup_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ocean-grid-etl/internal/geo"
	"github.com/couchcryptid/ocean-grid-etl/internal/grid"
	"github.com/couchcryptid/ocean-grid-etl/internal/land"
	"github.com/couchcryptid/ocean-grid-etl/internal/lookup"
	"github.com/couchcryptid/ocean-grid-etl/internal/observability"
)

// collectingSink keeps a build in memory for NewIndex.
type collectingSink struct {
	manifest grid.Manifest
	bands    []grid.LatitudeBand
	boxes    [][]grid.Box
}

func (s *collectingSink) Reset(context.Context) error {
	*s = collectingSink{}
	return nil
}

func (s *collectingSink) CommitBand(_ context.Context, band grid.LatitudeBand, boxes []grid.Box) error {
	s.bands = append(s.bands, band)
	s.boxes = append(s.boxes, boxes)
	return nil
}

func (s *collectingSink) CommitManifest(_ context.Context, m grid.Manifest) error {
	s.manifest = m
	return nil
}

func buildIndex(t *testing.T, p grid.Params, polygons [][][]geo.Point) *lookup.Index {
	t.Helper()
	mask, err := land.NewMask(polygons)
	require.NoError(t, err)

	sink := &collectingSink{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err = grid.NewBuilder(p, mask, sink, logger, observability.NewMetricsForTesting()).Build(context.Background())
	require.NoError(t, err)
	return lookup.NewIndex(sink.manifest, sink.bands, sink.boxes)
}

func square(west, south, east, north float64) []geo.Point {
	return []geo.Point{
		{Lon: west, Lat: south},
		{Lon: east, Lat: south},
		{Lon: east, Lat: north},
		{Lon: west, Lat: north},
	}
}

func allBoxes(idx *lookup.Index) []grid.Box {
	var out []grid.Box
	for _, b := range idx.Bands() {
		out = append(out, idx.BandBoxes(b.Index)...)
	}
	return out
}
