// Package domain models sea surface temperature observations as they move
// through the tagging pipeline, plus the identifiers and error taxonomy
// shared by the grid, calendar, and lookup packages.
//
// # Observation Records
//
// The collector publishes one flat JSON object per measurement:
//
//	{"lon": 312.5, "lat": -41.25, "date": "1996-02-29", "sst": 14.2, "source": "icoads"}
//
// Longitudes may use the [0, 360) convention common to marine archives;
// they are remapped to [-180, 180) during parsing so that box lookup sees a
// single convention. A missing date falls back to the Kafka message timestamp.
//
// # Bucket Keys
//
// Every observation is tagged with two keys before it is stored:
//
//	box:    "{lat_index}_{lon_index}" of the ocean grid box containing it
//	pentad: 1..73, the five-day bucket of its month and day (see package pentad)
//
// The half-month (1..24) holding the pentad is carried alongside so that
// downstream aggregation can group by the coarser bucket without a second lookup.
//
// # ID Generation
//
// Observation IDs are a geohash prefix followed by a truncated SHA-256 of
// position, time, and value. Replaying a record produces the same ID, which
// keeps store writes idempotent. See [generateID].
package domain
