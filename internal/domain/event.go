package domain

import (
	"context"
	"time"
)

// RawObservationRecord is the JSON shape published by the observation
// collector. Longitudes may arrive on either the [-180, 180) or the
// [0, 360) convention.
type RawObservationRecord struct {
	Lon    *float64 `json:"lon"`
	Lat    *float64 `json:"lat"`
	Date   string   `json:"date"` // YYYY-MM-DD or RFC 3339; falls back to the message timestamp
	SST    *float64 `json:"sst"`  // sea surface temperature, degrees C
	Source string   `json:"source,omitempty"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Observation is a parsed point measurement with a normalized longitude.
type Observation struct {
	ID     string    `json:"id"`
	Lon    float64   `json:"lon"`
	Lat    float64   `json:"lat"`
	Time   time.Time `json:"time"`
	Value  float64   `json:"sst"`
	Source string    `json:"source,omitempty"`

	RawPayload []byte `json:"-"`
}

// TaggedObservation is an Observation keyed by its grid box and time buckets.
type TaggedObservation struct {
	Observation
	Box         BoxID     `json:"box"`
	Pentad      int       `json:"pentad"`
	HalfMonth   int       `json:"half_month"`
	ProcessedAt time.Time `json:"processed_at"`
}

// NewTaggedObservation stamps obs with its bucket keys and the processing time.
func NewTaggedObservation(obs Observation, box BoxID, pentad, halfMonth int) TaggedObservation {
	return TaggedObservation{
		Observation: obs,
		Box:         box,
		Pentad:      pentad,
		HalfMonth:   halfMonth,
		ProcessedAt: clock.Now().UTC(),
	}
}
