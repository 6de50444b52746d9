package store

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
)

func tagged(id string, box domain.BoxID, when time.Time, p int) domain.TaggedObservation {
	return domain.TaggedObservation{
		Observation: domain.Observation{ID: id, Time: when},
		Box:         box,
		Pentad:      p,
	}
}

func TestQuery_Matches(t *testing.T) {
	box := domain.BoxID{Lat: 1, Lon: 2}
	when := time.Date(1995, 3, 3, 0, 0, 0, 0, time.UTC)
	q := Query{Boxes: []domain.BoxID{box}, Years: domain.YearRange{From: 1990, To: 1995}}

	assert.True(t, q.Matches(tagged("a", box, when, 13)))
	assert.False(t, q.Matches(tagged("a", domain.BoxID{Lat: 1, Lon: 3}, when, 13)))
	assert.False(t, q.Matches(tagged("a", box, when.AddDate(1, 0, 0), 13)))

	q.Pentads = []int{14, 15}
	assert.False(t, q.Matches(tagged("a", box, when, 13)))
	assert.True(t, q.Matches(tagged("a", box, when, 14)))
}

func TestSortObservations(t *testing.T) {
	t0 := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := []domain.TaggedObservation{
		tagged("c", domain.BoxID{Lat: 1, Lon: 0}, t0, 1),
		tagged("b", domain.BoxID{Lat: 0, Lon: 5}, t0.Add(time.Hour), 1),
		tagged("a", domain.BoxID{Lat: 0, Lon: 5}, t0.Add(time.Hour), 1),
		tagged("d", domain.BoxID{Lat: 0, Lon: 5}, t0, 1),
	}
	SortObservations(obs)

	ids := make([]string, len(obs))
	for i, o := range obs {
		ids[i] = o.ID
	}
	if diff := cmp.Diff([]string{"d", "a", "b", "c"}, ids); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestQuery_UniqueBoxes(t *testing.T) {
	a, b := domain.BoxID{Lat: 0, Lon: 1}, domain.BoxID{Lat: 2, Lon: 0}
	q := Query{Boxes: []domain.BoxID{b, a, b, a}}
	assert.Equal(t, []domain.BoxID{b, a}, q.UniqueBoxes())
	assert.Empty(t, Query{}.UniqueBoxes())
}
