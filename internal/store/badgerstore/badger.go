// Package badgerstore persists grids, the calendar, and tagged observations
// in an embedded Badger key-value database.
//
// Key layout (all integers zero-padded so byte order is numeric order):
//
//	grid/manifest
//	grid/band/{lat}
//	grid/box/{lat}/{lon}
//	cal/{month}/{half}
//	obs/{lat}/{lon}/{year}/{pentad}/{id}
//
// Observation keys lead with the box and year so a query is one prefix
// scan per box that seeks straight to the first requested year.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/grid"
	"github.com/couchcryptid/ocean-grid-etl/internal/pentad"
	"github.com/couchcryptid/ocean-grid-etl/internal/store"
)

const (
	gridPrefix     = "grid/"
	manifestKey    = "grid/manifest"
	bandPrefix     = "grid/band/"
	boxPrefix      = "grid/box/"
	calendarPrefix = "cal/"
	obsPrefix      = "obs/"
)

// Store is a store.Store backed by Badger.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Open opens or creates the database at path. An empty path opens a
// throwaway in-memory database.
func Open(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{logger.With("component", "badger")})
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return &Store{db: db, logger: logger}, nil
}

func bandKey(lat int) []byte { return fmt.Appendf(nil, "%s%06d", bandPrefix, lat) }

func bandBoxPrefix(lat int) []byte { return fmt.Appendf(nil, "%s%06d/", boxPrefix, lat) }

func boxKey(id domain.BoxID) []byte { return fmt.Appendf(nil, "%s%06d/%06d", boxPrefix, id.Lat, id.Lon) }

func calendarKey(month, half int) []byte {
	return fmt.Appendf(nil, "%s%02d/%d", calendarPrefix, month, half)
}

func obsBoxPrefix(id domain.BoxID) []byte { return fmt.Appendf(nil, "%s%06d/%06d/", obsPrefix, id.Lat, id.Lon) }

func obsKey(o domain.TaggedObservation) []byte {
	return fmt.Appendf(obsBoxPrefix(o.Box), "%04d/%02d/%s", o.Time.Year(), o.Pentad, o.ID)
}

func (s *Store) Reset(context.Context) error {
	if err := s.db.DropPrefix([]byte(gridPrefix)); err != nil {
		return fmt.Errorf("drop grid: %w", err)
	}
	return nil
}

// CommitBand writes a band and its boxes in one transaction.
func (s *Store) CommitBand(_ context.Context, band grid.LatitudeBand, boxes []grid.Box) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, bandKey(band.Index), band); err != nil {
			return err
		}
		for _, b := range boxes {
			if err := setJSON(txn, boxKey(b.ID), b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) CommitManifest(_ context.Context, m grid.Manifest) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, []byte(manifestKey), m)
	})
}

func (s *Store) Manifest(context.Context) (grid.Manifest, error) {
	var m grid.Manifest
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(manifestKey), &m)
	})
	if err != nil {
		return grid.Manifest{}, fmt.Errorf("grid manifest: %w", err)
	}
	return m, nil
}

func (s *Store) Bands(context.Context) ([]grid.LatitudeBand, error) {
	return scan[grid.LatitudeBand](s.db, []byte(bandPrefix))
}

func (s *Store) BandBoxes(_ context.Context, latIndex int) ([]grid.Box, error) {
	return scan[grid.Box](s.db, bandBoxPrefix(latIndex))
}

func (s *Store) Box(_ context.Context, id domain.BoxID) (grid.Box, error) {
	var b grid.Box
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, boxKey(id), &b)
	})
	if err != nil {
		return grid.Box{}, fmt.Errorf("box %s: %w", id, err)
	}
	return b, nil
}

func (s *Store) SaveCalendar(_ context.Context, halves []pentad.HalfMonth) error {
	if err := s.db.DropPrefix([]byte(calendarPrefix)); err != nil {
		return fmt.Errorf("drop calendar: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, h := range halves {
			if err := setJSON(txn, calendarKey(h.Month, h.Half), h); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Calendar(context.Context) ([]pentad.HalfMonth, error) {
	return scan[pentad.HalfMonth](s.db, []byte(calendarPrefix))
}

func (s *Store) HalfMonth(_ context.Context, month, half int) (pentad.HalfMonth, error) {
	var h pentad.HalfMonth
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, calendarKey(month, half), &h)
	})
	if err != nil {
		return pentad.HalfMonth{}, fmt.Errorf("half-month %d/%d: %w", month, half, err)
	}
	return h, nil
}

// LoadBatch upserts observations through a write batch. It implements
// pipeline.BatchLoader.
func (s *Store) LoadBatch(_ context.Context, obs []domain.TaggedObservation) error {
	if len(obs) == 0 {
		return nil
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, o := range obs {
		if y := o.Time.Year(); y < 0 || y > 9999 {
			return fmt.Errorf("observation %s: year %d: %w", o.ID, y, domain.ErrInvalidInput)
		}
		data, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("encode observation %s: %w", o.ID, err)
		}
		if err := wb.Set(obsKey(o), data); err != nil {
			return fmt.Errorf("write observation %s: %w", o.ID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush observations: %w", err)
	}
	s.logger.Debug("observations stored", "count", len(obs))
	return nil
}

func (s *Store) Query(_ context.Context, q store.Query) ([]domain.TaggedObservation, error) {
	var out []domain.TaggedObservation
	err := s.db.View(func(txn *badger.Txn) error {
		for _, box := range q.UniqueBoxes() {
			prefix := obsBoxPrefix(box)
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			err := func() error {
				defer it.Close()
				start := fmt.Appendf(slices.Clone(prefix), "%04d/", max(q.Years.From, 0))
				for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
					year, p, err := parseObsKey(it.Item().Key(), len(prefix))
					if err != nil {
						return err
					}
					if year > q.Years.To {
						break
					}
					if len(q.Pentads) > 0 && !slices.Contains(q.Pentads, p) {
						continue
					}
					var o domain.TaggedObservation
					if err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &o) }); err != nil {
						return fmt.Errorf("decode observation: %w", err)
					}
					out = append(out, o)
				}
				return nil
			}()
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	store.SortObservations(out)
	return out, nil
}

// parseObsKey extracts year and pentad from the key suffix after the box prefix.
func parseObsKey(key []byte, prefixLen int) (year, p int, err error) {
	parts := strings.SplitN(string(key[prefixLen:]), "/", 3)
	if len(parts) != 3 {
		return 0, 0, fmt.Errorf("malformed observation key %q", key)
	}
	if year, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("observation key %q: %w", key, err)
	}
	if p, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("observation key %q: %w", key, err)
	}
	return year, p, nil
}

func (s *Store) CheckReadiness(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger store closed")
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := txn.Set(key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(data []byte) error { return json.Unmarshal(data, v) })
}

// scan decodes every value under prefix in key order.
func scan[T any](db *badger.DB, prefix []byte) ([]T, error) {
	var out []T
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var v T
			if err := it.Item().Value(func(data []byte) error { return json.Unmarshal(data, &v) }); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
