package pipeline_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/grid"
	"github.com/couchcryptid/ocean-grid-etl/internal/land"
	"github.com/couchcryptid/ocean-grid-etl/internal/lookup"
	"github.com/couchcryptid/ocean-grid-etl/internal/observability"
	"github.com/couchcryptid/ocean-grid-etl/internal/pentad"
	"github.com/couchcryptid/ocean-grid-etl/internal/pipeline"
	"github.com/couchcryptid/ocean-grid-etl/internal/store/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// oceanIndex builds a coarse all-ocean grid over 60S..60N.
func oceanIndex(t *testing.T) *lookup.Index {
	t.Helper()
	ctx := context.Background()
	mask, err := land.NewMask(nil)
	require.NoError(t, err)

	s := memory.New()
	t.Cleanup(func() { _ = s.Close() })
	params := grid.DefaultParams()
	params.SideM = 250_000
	_, err = grid.NewBuilder(params, mask, s, discardLogger(), observability.NewMetricsForTesting()).Build(ctx)
	require.NoError(t, err)

	idx, err := lookup.Load(ctx, s)
	require.NoError(t, err)
	return idx
}

func readMockRecords(t *testing.T) []json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "data", "mock", "observations_raw.json"))
	require.NoError(t, err)
	var rows []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &rows))
	require.NotEmpty(t, rows)
	return rows
}

func TestObservationTagger_WithMockJSONData(t *testing.T) {
	processedAt := time.Date(2024, time.May, 1, 6, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(processedAt))
	t.Cleanup(func() { domain.SetClock(nil) })

	idx := oceanIndex(t)
	cal := pentad.Build()
	tagger := pipeline.NewTagger(idx, cal, discardLogger(), observability.NewMetricsForTesting())

	for i, row := range readMockRecords(t) {
		t.Run(fmt.Sprintf("record %d", i), func(t *testing.T) {
			var rec domain.RawObservationRecord
			require.NoError(t, json.Unmarshal(row, &rec))

			out, err := tagger.Transform(context.Background(), domain.RawEvent{Value: row})
			if *rec.Lat < -60 || *rec.Lat >= 60 {
				require.ErrorIs(t, err, domain.ErrOutOfBounds)
				return
			}
			require.NoError(t, err)

			box, ok := idx.Box(out.Box)
			require.True(t, ok)
			assert.True(t, box.Contains(out.Lon, out.Lat), "box %s does not hold (%v, %v)", out.Box, out.Lon, out.Lat)
			assert.GreaterOrEqual(t, out.Lon, -180.0)
			assert.Less(t, out.Lon, 180.0)

			want, err := cal.Resolve(out.Time)
			require.NoError(t, err)
			assert.Equal(t, want.Pentad, out.Pentad)
			assert.Equal(t, want.HalfMonth, out.HalfMonth)
			assert.Equal(t, processedAt, out.ProcessedAt)
			assert.Equal(t, *rec.SST, out.Value)
		})
	}
}

func TestObservationTagger_KnownDates(t *testing.T) {
	tagger := pipeline.NewTagger(oceanIndex(t), pentad.Build(), discardLogger(), observability.NewMetricsForTesting())

	tests := []struct {
		date      string
		pentad    int
		halfMonth int
	}{
		{"1998-01-01", 1, 1},
		{"1996-02-29", 12, 4},
		{"1996-03-01", 12, 4},
		{"2001-03-02", 13, 5},
		{"2003-07-20T12:30:00Z", 41, 14},
		{"2010-12-31", 73, 24},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			payload := fmt.Sprintf(`{"lon": -150, "lat": 10, "date": %q, "sst": 25}`, tt.date)
			out, err := tagger.Transform(context.Background(), domain.RawEvent{Value: []byte(payload)})
			require.NoError(t, err)
			assert.Equal(t, tt.pentad, out.Pentad)
			assert.Equal(t, tt.halfMonth, out.HalfMonth)
		})
	}
}

type stubLocator struct {
	err error
}

func (s stubLocator) BoxFor(float64, float64) (domain.BoxID, error) {
	return domain.BoxID{Lat: 3, Lon: 7}, s.err
}

func TestObservationTagger_Errors(t *testing.T) {
	valid := []byte(`{"lon": 10, "lat": 10, "date": "2000-06-01", "sst": 20}`)

	tests := []struct {
		name    string
		locErr  error
		payload []byte
		want    error
	}{
		{name: "land gap", locErr: domain.ErrNotFound, payload: valid, want: domain.ErrNotFound},
		{name: "outside grid", locErr: domain.ErrOutOfBounds, payload: valid, want: domain.ErrOutOfBounds},
		{name: "missing sst", payload: []byte(`{"lon": 10, "lat": 10, "date": "2000-06-01"}`), want: domain.ErrInvalidInput},
		{name: "bad date", payload: []byte(`{"lon": 10, "lat": 10, "date": "June 1", "sst": 20}`), want: domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tagger := pipeline.NewTagger(stubLocator{err: tt.locErr}, pentad.Build(), discardLogger(), observability.NewMetricsForTesting())
			_, err := tagger.Transform(context.Background(), domain.RawEvent{Value: tt.payload})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("not json", func(t *testing.T) {
		tagger := pipeline.NewTagger(stubLocator{}, pentad.Build(), discardLogger(), observability.NewMetricsForTesting())
		_, err := tagger.Transform(context.Background(), domain.RawEvent{Value: []byte("not json")})
		assert.Error(t, err)
	})
}
