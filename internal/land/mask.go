// Package land answers point-in-polygon queries against continental
// outlines. Polygons are held as s2 loops and indexed by their lon/lat
// bounding boxes in an R-tree so a query only tests nearby outlines.
package land

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/golang/geo/s2"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/geo"
	"github.com/couchcryptid/ocean-grid-etl/internal/grid"
)

// pointPad turns a query point into a tiny box for the R-tree search.
const pointPad = 1e-9

// polygon is one landmass: an outer ring and zero or more holes. The
// embedded planar polygon is what the R-tree indexes; containment is tested
// on the s2 loops.
type polygon struct {
	geom.Polygon

	outer *s2.Loop
	holes []*s2.Loop
}

func (p *polygon) contains(pt s2.Point) bool {
	if !p.outer.ContainsPoint(pt) {
		return false
	}
	for _, h := range p.holes {
		if h.ContainsPoint(pt) {
			return false
		}
	}
	return true
}

// Mask is an immutable set of land polygons. It is safe for concurrent use.
type Mask struct {
	polygons []*polygon
	tree     *rtree.Rtree
}

var _ grid.LandMask = (*Mask)(nil)

// NewMask builds a mask from rings given as lon/lat points. The first ring
// of each polygon is its outline; any further rings are holes. Ring
// orientation does not matter and a closing vertex equal to the first is
// dropped.
func NewMask(polygons [][][]geo.Point) (*Mask, error) {
	built := make([]*polygon, 0, len(polygons))
	for i, rings := range polygons {
		if len(rings) == 0 {
			continue
		}
		p, err := newPolygon(rings)
		if err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}
		built = append(built, p)
	}
	return fromPolygons(built), nil
}

// FromGeom converts ctessum/geom polygons, X being longitude and Y latitude.
func FromGeom(polys []geom.Polygon) (*Mask, error) {
	rings := make([][][]geo.Point, 0, len(polys))
	for _, poly := range polys {
		pr := make([][]geo.Point, 0, len(poly))
		for _, path := range poly {
			ring := make([]geo.Point, len(path))
			for i, pt := range path {
				ring[i] = geo.Point{Lon: pt.X, Lat: pt.Y}
			}
			pr = append(pr, ring)
		}
		rings = append(rings, pr)
	}
	return NewMask(rings)
}

func fromPolygons(polys []*polygon) *Mask {
	tree := rtree.NewTree(25, 50)
	for _, p := range polys {
		tree.Insert(p)
	}
	return &Mask{polygons: polys, tree: tree}
}

func newPolygon(rings [][]geo.Point) (*polygon, error) {
	p := &polygon{Polygon: make(geom.Polygon, 0, len(rings))}
	for i, r := range rings {
		loop, path, err := newLoop(r)
		if err != nil {
			if i > 0 {
				return nil, fmt.Errorf("hole %d: %w", i, err)
			}
			return nil, err
		}
		p.Polygon = append(p.Polygon, path)
		if i == 0 {
			p.outer = loop
		} else {
			p.holes = append(p.holes, loop)
		}
	}
	return p, nil
}

// newLoop returns the ring as an s2 loop and as a planar path with X as
// longitude and Y as latitude.
func newLoop(ring []geo.Point) (*s2.Loop, []geom.Point, error) {
	if len(ring) == 0 {
		return nil, nil, fmt.Errorf("empty ring: %w", domain.ErrInvalidInput)
	}
	pts := make([]s2.Point, 0, len(ring))
	path := make([]geom.Point, 0, len(ring))
	for i, v := range ring {
		if i > 0 && v == ring[i-1] {
			continue
		}
		if i == len(ring)-1 && len(ring) > 1 && v == ring[0] {
			continue
		}
		pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(v.Lat, v.Lon)))
		path = append(path, geom.Point{X: v.Lon, Y: v.Lat})
	}
	if len(pts) < 3 {
		return nil, nil, fmt.Errorf("ring has %d distinct vertices: %w", len(pts), domain.ErrInvalidInput)
	}
	loop := s2.LoopFromPoints(pts)
	loop.Normalize()
	return loop, path, nil
}

// Len is the number of polygons in the mask.
func (m *Mask) Len() int { return len(m.polygons) }

// Restrict returns a mask holding only polygons whose latitude extent
// overlaps [minLat, maxLat].
func (m *Mask) Restrict(minLat, maxLat float64) grid.LandMask {
	window := &geom.Bounds{
		Min: geom.Point{X: -360, Y: minLat},
		Max: geom.Point{X: 360, Y: maxLat},
	}
	var subset []*polygon
	for _, s := range m.tree.SearchIntersect(window) {
		subset = append(subset, s.(*polygon))
	}
	return fromPolygons(subset)
}

// Contains reports, per point, whether it lies inside any polygon.
func (m *Mask) Contains(points []geo.Point) ([]bool, error) {
	out := make([]bool, len(points))
	if len(m.polygons) == 0 {
		return out, nil
	}
	for i, p := range points {
		query := &geom.Bounds{
			Min: geom.Point{X: p.Lon - pointPad, Y: p.Lat - pointPad},
			Max: geom.Point{X: p.Lon + pointPad, Y: p.Lat + pointPad},
		}
		candidates := m.tree.SearchIntersect(query)
		if len(candidates) == 0 {
			continue
		}
		pt := s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon))
		for _, c := range candidates {
			if c.(*polygon).contains(pt) {
				out[i] = true
				break
			}
		}
	}
	return out, nil
}
