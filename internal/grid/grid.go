// Package grid tiles the ocean between two latitudes into boxes of a fixed
// linear side. Bands are laid from the start latitude northward; within a
// band, boxes step east with a width that narrows with the cosine of the
// band's lower latitude. Boxes touching land at two or more corners are
// discarded and the survivors are indexed densely from zero.
package grid

import (
	"context"
	"iter"
	"time"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/geo"
)

// Corner order for Box.Corners and Box.Projected.
const (
	LowerLeft = iota
	UpperLeft
	UpperRight
	LowerRight
)

// edgeEpsilon absorbs float drift when comparing accumulated boundaries.
const edgeEpsilon = 1e-9

// LatitudeBand is one row of the grid. Boundary is the band's southern edge
// and North its northern edge, which is bit-for-bit the next band's Boundary.
type LatitudeBand struct {
	Index    int     `json:"lat_index"`
	Boundary float64 `json:"lat_boundary"`
	North    float64 `json:"lat_top"`
	Height   float64 `json:"angular_height"`
}

// Top is the band's northern edge.
func (b LatitudeBand) Top() float64 { return b.North }

// XY is a projected coordinate in meters.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is a kept ocean cell.
type Box struct {
	ID        domain.BoxID `json:"name"`
	Corners   [4]geo.Point `json:"corners"`
	Projected [4]XY        `json:"projected"`
	Center    geo.Point    `json:"center"`
	SideM     float64      `json:"side_length_m"`
	OnLand    bool         `json:"on_land"`
}

// West returns the inclusive western edge longitude.
func (b Box) West() float64 { return b.Corners[LowerLeft].Lon }

// East returns the exclusive eastern edge longitude.
func (b Box) East() float64 { return b.Corners[LowerRight].Lon }

// South returns the inclusive southern edge latitude.
func (b Box) South() float64 { return b.Corners[LowerLeft].Lat }

// North returns the exclusive northern edge latitude.
func (b Box) North() float64 { return b.Corners[UpperLeft].Lat }

// Contains reports whether (lon, lat) lies in the box. Western and southern
// edges are inclusive, eastern and northern exclusive, so adjacent boxes
// never share a point.
func (b Box) Contains(lon, lat float64) bool {
	return lon >= b.West() && lon < b.East() && lat >= b.South() && lat < b.North()
}

// Manifest records a completed build. A store without one holds no valid grid.
type Manifest struct {
	BuildID  string    `json:"build_id"`
	Params   Params    `json:"params"`
	Bands    int       `json:"bands"`
	Boxes    int       `json:"boxes"`
	Rejected int       `json:"rejected"`
	BuiltAt  time.Time `json:"built_at"`
}

// LandMask tests points against continental polygons. Implementations must
// be safe for concurrent use; bands are evaluated in parallel.
type LandMask interface {
	// Restrict returns a mask limited to polygons overlapping [minLat, maxLat].
	Restrict(minLat, maxLat float64) LandMask
	// Contains reports, per point, whether it lies on land.
	Contains(points []geo.Point) ([]bool, error)
}

// Projector maps geographic corners to a planar projection.
type Projector interface {
	Project(p geo.Point) (XY, error)
}

// Sink persists a grid as it is built. Each CommitBand call must be atomic
// so that readers never observe half a band.
type Sink interface {
	Reset(ctx context.Context) error
	CommitBand(ctx context.Context, band LatitudeBand, boxes []Box) error
	CommitManifest(ctx context.Context, m Manifest) error
}

// Bands yields latitude bands from start northward until upper is reached.
// The final band is clamped so its top is exactly upper. The sequence is
// restartable.
func Bands(start, upper, sideM float64) iter.Seq[LatitudeBand] {
	return func(yield func(LatitudeBand) bool) {
		h := geo.AngularHeight(sideM)
		if !(h > 0) {
			return
		}
		boundary := start
		for i := 0; upper-boundary > edgeEpsilon; i++ {
			// Both edges come from the same expression so adjacent bands
			// share their seam exactly.
			north := start + float64(i+1)*h
			if upper-north <= edgeEpsilon {
				north = upper
			}
			band := LatitudeBand{Index: i, Boundary: boundary, North: north, Height: north - boundary}
			if !yield(band) {
				return
			}
			boundary = north
		}
	}
}
