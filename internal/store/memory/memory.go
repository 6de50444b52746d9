// Package memory is an in-process store.Store guarded by a RWMutex, used by
// tests and by single-shot CLI runs that do not need durability.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/grid"
	"github.com/couchcryptid/ocean-grid-etl/internal/pentad"
	"github.com/couchcryptid/ocean-grid-etl/internal/store"
)

var errClosed = errors.New("memory store closed")

type halfKey struct{ month, half int }

// Store is an in-process store.Store backed by maps, used by tests and
// one-shot tools.
type Store struct {
	mu       sync.RWMutex
	closed   bool
	manifest *grid.Manifest
	bands    map[int]grid.LatitudeBand
	boxes    map[int][]grid.Box
	calendar map[halfKey]pentad.HalfMonth
	obs      map[domain.BoxID]map[string]domain.TaggedObservation
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		bands:    make(map[int]grid.LatitudeBand),
		boxes:    make(map[int][]grid.Box),
		calendar: make(map[halfKey]pentad.HalfMonth),
		obs:      make(map[domain.BoxID]map[string]domain.TaggedObservation),
	}
}

func (s *Store) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest = nil
	s.bands = make(map[int]grid.LatitudeBand)
	s.boxes = make(map[int][]grid.Box)
	return nil
}

func (s *Store) CommitBand(_ context.Context, band grid.LatitudeBand, boxes []grid.Box) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bands[band.Index] = band
	s.boxes[band.Index] = slices.Clone(boxes)
	return nil
}

func (s *Store) CommitManifest(_ context.Context, m grid.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest = &m
	return nil
}

func (s *Store) Manifest(context.Context) (grid.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manifest == nil {
		return grid.Manifest{}, fmt.Errorf("grid manifest: %w", domain.ErrNotFound)
	}
	return *s.manifest, nil
}

func (s *Store) Bands(context.Context) ([]grid.LatitudeBand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]grid.LatitudeBand, 0, len(s.bands))
	for _, b := range s.bands {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b grid.LatitudeBand) int { return a.Index - b.Index })
	return out, nil
}

func (s *Store) BandBoxes(_ context.Context, latIndex int) ([]grid.Box, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.boxes[latIndex]), nil
}

func (s *Store) Box(_ context.Context, id domain.BoxID) (grid.Box, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.boxes[id.Lat]
	if id.Lon < 0 || id.Lon >= len(row) {
		return grid.Box{}, fmt.Errorf("box %s: %w", id, domain.ErrNotFound)
	}
	return row[id.Lon], nil
}

func (s *Store) SaveCalendar(_ context.Context, halves []pentad.HalfMonth) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendar = make(map[halfKey]pentad.HalfMonth, len(halves))
	for _, h := range halves {
		h.Pentads = slices.Clone(h.Pentads)
		s.calendar[halfKey{h.Month, h.Half}] = h
	}
	return nil
}

func (s *Store) Calendar(context.Context) ([]pentad.HalfMonth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pentad.HalfMonth, 0, len(s.calendar))
	for _, h := range s.calendar {
		h.Pentads = slices.Clone(h.Pentads)
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b pentad.HalfMonth) int { return a.ID - b.ID })
	return out, nil
}

func (s *Store) HalfMonth(_ context.Context, month, half int) (pentad.HalfMonth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.calendar[halfKey{month, half}]
	if !ok {
		return pentad.HalfMonth{}, fmt.Errorf("half-month %d/%d: %w", month, half, domain.ErrNotFound)
	}
	h.Pentads = slices.Clone(h.Pentads)
	return h, nil
}

func (s *Store) LoadBatch(_ context.Context, obs []domain.TaggedObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range obs {
		byID, ok := s.obs[o.Box]
		if !ok {
			byID = make(map[string]domain.TaggedObservation)
			s.obs[o.Box] = byID
		}
		byID[o.ID] = o
	}
	return nil
}

func (s *Store) Query(_ context.Context, q store.Query) ([]domain.TaggedObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.TaggedObservation
	for _, box := range q.UniqueBoxes() {
		for _, o := range s.obs[box] {
			if q.Matches(o) {
				out = append(out, o)
			}
		}
	}
	store.SortObservations(out)
	return out, nil
}

func (s *Store) CheckReadiness(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
