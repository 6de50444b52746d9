package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
)

// MultiLoader fans a batch out to several loaders in order. The first
// failure aborts the call and the pipeline retries the whole batch, so
// loaders ahead of the failing one see it again and must tolerate repeats.
type MultiLoader []BatchLoader

func (m MultiLoader) LoadBatch(ctx context.Context, obs []domain.TaggedObservation) error {
	for i, l := range m {
		if err := l.LoadBatch(ctx, obs); err != nil {
			return fmt.Errorf("loader %d: %w", i, err)
		}
	}
	return nil
}
