package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	geohash "github.com/TomiHiltunen/geohash-golang"

	"github.com/couchcryptid/ocean-grid-etl/internal/geo"
)

// dateLayouts are tried in order when parsing an observation date.
var dateLayouts = []string{time.DateOnly, time.RFC3339, "2006-01-02T15:04:05"}

// ParseRawEvent deserializes a RawEvent's value into an Observation.
// Longitudes on the [0, 360) convention are remapped to [-180, 180).
// When the record carries no date, the message timestamp is used.
func ParseRawEvent(raw RawEvent) (Observation, error) {
	var rec RawObservationRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Observation{}, fmt.Errorf("parse raw event: %w", err)
	}
	if rec.Lon == nil || rec.Lat == nil || rec.SST == nil {
		return Observation{}, fmt.Errorf("parse raw event: missing lon, lat, or sst: %w", ErrInvalidInput)
	}

	lat, lon := *rec.Lat, *rec.Lon
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return Observation{}, fmt.Errorf("parse raw event: latitude %v: %w", lat, ErrInvalidInput)
	}
	if math.IsNaN(lon) || lon < -180 || lon >= 360 {
		return Observation{}, fmt.Errorf("parse raw event: longitude %v: %w", lon, ErrInvalidInput)
	}
	lon = geo.NormalizeLongitude(lon)

	when, err := parseObservationTime(rec.Date, raw.Timestamp)
	if err != nil {
		return Observation{}, err
	}

	return Observation{
		ID:         generateID(lat, lon, when, *rec.SST),
		Lon:        lon,
		Lat:        lat,
		Time:       when,
		Value:      *rec.SST,
		Source:     strings.TrimSpace(rec.Source),
		RawPayload: raw.Value,
	}, nil
}

func parseObservationTime(s string, fallback time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if fallback.IsZero() {
			return time.Time{}, fmt.Errorf("parse raw event: no date: %w", ErrInvalidInput)
		}
		return fallback.UTC(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse raw event: date %q: %w", s, ErrInvalidInput)
}

// generateID produces a deterministic ID from the observation's position,
// time, and value. The geohash prefix keeps IDs for nearby observations
// adjacent in key order; replaying the same record yields the same ID.
func generateID(lat, lon float64, when time.Time, value float64) string {
	cell := geohash.Encode(lat, lon)
	input := fmt.Sprintf("%s|%s|%g", cell, when.Format(time.RFC3339), value)
	hash := sha256.Sum256([]byte(input))
	prefix := cell
	if len(prefix) > 6 {
		prefix = prefix[:6]
	}
	return prefix + "-" + hex.EncodeToString(hash[:8])
}
