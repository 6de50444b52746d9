// Package projection maps box corners into planar coordinates for plotting.
package projection

import (
	"fmt"

	"github.com/ctessum/geom/proj"

	"github.com/couchcryptid/ocean-grid-etl/internal/geo"
	"github.com/couchcryptid/ocean-grid-etl/internal/grid"
)

const (
	lonLatProj = "+proj=longlat"
	// WebMercatorProj is spherical (EPSG:3857) web mercator in meters.
	WebMercatorProj = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"

	// maxMercatorLat keeps corners off the poles, where mercator diverges.
	maxMercatorLat = 85.05112878
)

// Transform projects lon/lat corners through a proj4 definition.
type Transform struct {
	t proj.Transformer
}

var _ grid.Projector = (*Transform)(nil)

// New builds a transform from geographic coordinates to the proj4 target.
func New(target string) (*Transform, error) {
	src, err := proj.Parse(lonLatProj)
	if err != nil {
		return nil, fmt.Errorf("parse source projection: %w", err)
	}
	dst, err := proj.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse target projection %q: %w", target, err)
	}
	t, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("build transform: %w", err)
	}
	return &Transform{t: t}, nil
}

// NewWebMercator is New(WebMercatorProj).
func NewWebMercator() (*Transform, error) {
	return New(WebMercatorProj)
}

// Project returns p in target units. Latitudes beyond the mercator limit are
// clamped to it.
func (tr *Transform) Project(p geo.Point) (grid.XY, error) {
	lat := max(-maxMercatorLat, min(maxMercatorLat, p.Lat))
	x, y, err := tr.t(p.Lon, lat)
	if err != nil {
		return grid.XY{}, fmt.Errorf("project (%v, %v): %w", p.Lon, p.Lat, err)
	}
	return grid.XY{X: x, Y: y}, nil
}
