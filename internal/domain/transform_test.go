package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRawEvent(t *testing.T) {
	msgTime := time.Date(1996, 3, 2, 6, 0, 0, 0, time.UTC)

	t.Run("full record", func(t *testing.T) {
		data := []byte(`{"lon":-30.5,"lat":12.25,"date":"1996-02-29","sst":26.4,"source":"icoads"}`)
		obs, err := ParseRawEvent(RawEvent{Value: data, Timestamp: msgTime})

		require.NoError(t, err)
		assert.Equal(t, -30.5, obs.Lon)
		assert.Equal(t, 12.25, obs.Lat)
		assert.Equal(t, time.Date(1996, 2, 29, 0, 0, 0, 0, time.UTC), obs.Time)
		assert.Equal(t, 26.4, obs.Value)
		assert.Equal(t, "icoads", obs.Source)
		assert.Equal(t, data, obs.RawPayload)
		assert.NotEmpty(t, obs.ID)
	})

	t.Run("longitude on 0-360 convention", func(t *testing.T) {
		data := []byte(`{"lon":312.5,"lat":-41.25,"date":"1990-07-01","sst":11.0}`)
		obs, err := ParseRawEvent(RawEvent{Value: data})

		require.NoError(t, err)
		assert.Equal(t, -47.5, obs.Lon)
	})

	t.Run("RFC 3339 date", func(t *testing.T) {
		data := []byte(`{"lon":1,"lat":1,"date":"2001-09-18T12:30:00Z","sst":20}`)
		obs, err := ParseRawEvent(RawEvent{Value: data})

		require.NoError(t, err)
		assert.Equal(t, time.Date(2001, 9, 18, 12, 30, 0, 0, time.UTC), obs.Time)
	})

	t.Run("missing date uses message timestamp", func(t *testing.T) {
		data := []byte(`{"lon":1,"lat":1,"sst":20}`)
		obs, err := ParseRawEvent(RawEvent{Value: data, Timestamp: msgTime})

		require.NoError(t, err)
		assert.Equal(t, msgTime, obs.Time)
	})

	t.Run("zero sst is a valid reading", func(t *testing.T) {
		data := []byte(`{"lon":1,"lat":70,"date":"2001-01-01","sst":0}`)
		obs, err := ParseRawEvent(RawEvent{Value: data})

		require.NoError(t, err)
		assert.Equal(t, 0.0, obs.Value)
	})

	invalid := []struct {
		name string
		data string
	}{
		{"invalid JSON", `{invalid json`},
		{"missing sst", `{"lon":1,"lat":1,"date":"2001-01-01"}`},
		{"missing lat", `{"lon":1,"sst":3,"date":"2001-01-01"}`},
		{"latitude out of range", `{"lon":1,"lat":91,"sst":3,"date":"2001-01-01"}`},
		{"longitude out of range", `{"lon":360,"lat":1,"sst":3,"date":"2001-01-01"}`},
		{"unparseable date", `{"lon":1,"lat":1,"sst":3,"date":"02/29/1996"}`},
		{"no date and no timestamp", `{"lon":1,"lat":1,"sst":3}`},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRawEvent(RawEvent{Value: []byte(tc.data)})
			require.Error(t, err)
		})
	}

	t.Run("range errors are invalid input", func(t *testing.T) {
		_, err := ParseRawEvent(RawEvent{Value: []byte(`{"lon":1,"lat":-95,"sst":3,"date":"2001-01-01"}`)})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestGenerateID(t *testing.T) {
	when := time.Date(1996, 2, 29, 0, 0, 0, 0, time.UTC)

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, generateID(10, 20, when, 15.5), generateID(10, 20, when, 15.5))
	})

	t.Run("differs by value", func(t *testing.T) {
		assert.NotEqual(t, generateID(10, 20, when, 15.5), generateID(10, 20, when, 15.6))
	})

	t.Run("differs by time", func(t *testing.T) {
		assert.NotEqual(t, generateID(10, 20, when, 15.5), generateID(10, 20, when.AddDate(0, 0, 1), 15.5))
	})

	t.Run("shares geohash prefix for the same position", func(t *testing.T) {
		a := generateID(10, 20, when, 1)
		b := generateID(10, 20, when.AddDate(1, 0, 0), 2)
		assert.Equal(t, strings.SplitN(a, "-", 2)[0], strings.SplitN(b, "-", 2)[0])
	})
}

func TestNewTaggedObservation(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	obs := Observation{ID: "x", Lon: 1, Lat: 2}
	tagged := NewTaggedObservation(obs, BoxID{Lat: 4, Lon: 9}, 13, 5)

	assert.Equal(t, obs, tagged.Observation)
	assert.Equal(t, BoxID{Lat: 4, Lon: 9}, tagged.Box)
	assert.Equal(t, 13, tagged.Pentad)
	assert.Equal(t, 5, tagged.HalfMonth)
	assert.Equal(t, fixed, tagged.ProcessedAt)
}
