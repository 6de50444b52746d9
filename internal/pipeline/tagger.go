package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/lookup"
	"github.com/couchcryptid/ocean-grid-etl/internal/observability"
	"github.com/couchcryptid/ocean-grid-etl/internal/pentad"
)

// ObservationTagger implements Transformer. It parses the raw payload,
// locates the observation's box, and resolves its pentad.
type ObservationTagger struct {
	locator  lookup.Locator
	calendar *pentad.Calendar
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewTagger creates an ObservationTagger over a loaded grid and calendar.
func NewTagger(locator lookup.Locator, calendar *pentad.Calendar, logger *slog.Logger, metrics *observability.Metrics) *ObservationTagger {
	return &ObservationTagger{
		locator:  locator,
		calendar: calendar,
		logger:   logger,
		metrics:  metrics,
	}
}

func (t *ObservationTagger) Transform(_ context.Context, raw domain.RawEvent) (domain.TaggedObservation, error) {
	obs, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.TaggedObservation{}, err
	}

	box, err := t.locator.BoxFor(obs.Lon, obs.Lat)
	t.metrics.Lookups.WithLabelValues("box", observability.LookupOutcome(err)).Inc()
	if err != nil {
		return domain.TaggedObservation{}, fmt.Errorf("locate observation %s: %w", obs.ID, err)
	}

	bucket, err := t.calendar.Resolve(obs.Time)
	t.metrics.Lookups.WithLabelValues("pentad", observability.LookupOutcome(err)).Inc()
	if err != nil {
		return domain.TaggedObservation{}, fmt.Errorf("pentad for observation %s: %w", obs.ID, err)
	}

	t.logger.Debug("observation tagged", "id", obs.ID, "box", box.String(), "pentad", bucket.Pentad)
	return domain.NewTaggedObservation(obs, box, bucket.Pentad, bucket.HalfMonth), nil
}
