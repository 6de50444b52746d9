// Package bootstrap holds the startup steps shared by the ETL service and
// the oceangrid CLI: loading the land mask, building or loading the grid,
// and seeding the pentad calendar.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/grid"
	"github.com/couchcryptid/ocean-grid-etl/internal/land"
	"github.com/couchcryptid/ocean-grid-etl/internal/lookup"
	"github.com/couchcryptid/ocean-grid-etl/internal/observability"
	"github.com/couchcryptid/ocean-grid-etl/internal/pentad"
	"github.com/couchcryptid/ocean-grid-etl/internal/projection"
	"github.com/couchcryptid/ocean-grid-etl/internal/store"
)

// LandMask loads the shapefile at path. An empty path yields an empty
// mask, which keeps every candidate box.
func LandMask(path string, logger *slog.Logger) (*land.Mask, error) {
	if path == "" {
		logger.Warn("no land shapefile configured, building an all-ocean grid")
		return land.NewMask(nil)
	}
	mask, err := land.LoadShapefile(path)
	if err != nil {
		return nil, err
	}
	logger.Info("land mask loaded", "path", path, "polygons", mask.Len())
	return mask, nil
}

// BuildGrid builds params into s with web mercator corner projection and
// seeds the calendar alongside it.
func BuildGrid(ctx context.Context, params grid.Params, landPath string, s store.Store, logger *slog.Logger, metrics *observability.Metrics, opts ...grid.Option) (grid.Manifest, error) {
	mask, err := LandMask(landPath, logger)
	if err != nil {
		return grid.Manifest{}, err
	}
	proj, err := projection.NewWebMercator()
	if err != nil {
		return grid.Manifest{}, err
	}
	opts = append([]grid.Option{grid.WithProjector(proj)}, opts...)

	m, err := grid.NewBuilder(params, mask, s, logger, metrics, opts...).Build(ctx)
	if err != nil {
		return grid.Manifest{}, err
	}
	if _, err := EnsureCalendar(ctx, s, logger); err != nil {
		return grid.Manifest{}, err
	}
	return m, nil
}

// EnsureGrid loads the grid index from s, building it from params first
// when s holds no completed grid. A stored grid built with different
// params is served as is.
func EnsureGrid(ctx context.Context, params grid.Params, landPath string, s store.Store, logger *slog.Logger, metrics *observability.Metrics) (*lookup.Index, error) {
	idx, err := lookup.Load(ctx, s)
	if errors.Is(err, domain.ErrGridIncomplete) {
		logger.Info("no completed grid in store, building")
		if _, err := BuildGrid(ctx, params, landPath, s, logger, metrics); err != nil {
			return nil, fmt.Errorf("build grid: %w", err)
		}
		idx, err = lookup.Load(ctx, s)
	}
	if err != nil {
		return nil, err
	}

	m := idx.Manifest()
	if m.Params != params {
		logger.Warn("stored grid was built with different params; rebuild to apply",
			"build_id", m.BuildID, "stored_side_m", m.Params.SideM, "configured_side_m", params.SideM)
	}
	logger.Info("grid loaded", "build_id", m.BuildID, "bands", m.Bands, "boxes", m.Boxes)
	return idx, nil
}

// EnsureCalendar saves the pentad partition to s unless it is already
// there, and returns it.
func EnsureCalendar(ctx context.Context, s store.Store, logger *slog.Logger) (*pentad.Calendar, error) {
	cal := pentad.Build()
	stored, err := s.Calendar(ctx)
	if err != nil {
		return nil, fmt.Errorf("read calendar: %w", err)
	}
	if len(stored) == len(cal.HalfMonths()) {
		return cal, nil
	}
	if err := s.SaveCalendar(ctx, cal.HalfMonths()); err != nil {
		return nil, fmt.Errorf("save calendar: %w", err)
	}
	logger.Info("pentad calendar saved", "half_months", len(cal.HalfMonths()), "pentads", cal.PentadCount())
	return cal, nil
}
