package grid

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/geo"
	"github.com/couchcryptid/ocean-grid-etl/internal/observability"
)

// landMargin widens the polygon pre-filter beyond the band's own extent.
const landMargin = 1.5

// Builder materializes a grid into a Sink.
type Builder struct {
	params  Params
	land    LandMask
	proj    Projector
	sink    Sink
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// Option customizes a Builder.
type Option func(*Builder)

// WithClock sets the clock used to stamp the manifest.
func WithClock(c clockwork.Clock) Option {
	return func(b *Builder) { b.clock = c }
}

// WithProjector sets the projection for Box.Projected. Without one the
// projected corners are left zero.
func WithProjector(p Projector) Option {
	return func(b *Builder) { b.proj = p }
}

// NewBuilder wires a build. land may not be nil; pass an empty mask to keep
// every candidate box.
func NewBuilder(params Params, land LandMask, sink Sink, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Builder {
	b := &Builder{
		params:  params,
		land:    land,
		sink:    sink,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type bandResult struct {
	boxes    []Box
	rejected int
}

// Build clears the sink, then computes bands in parallel chunks of
// Params.Concurrency and commits them in index order. The manifest is
// written only after every band has been committed.
func (b *Builder) Build(ctx context.Context) (Manifest, error) {
	if err := b.params.Validate(); err != nil {
		return Manifest{}, err
	}
	start := b.clock.Now()
	buildID := uuid.NewString()
	logger := b.logger.With("build_id", buildID)
	logger.Info("grid build started",
		"lon_start", b.params.LonStart, "lat_start", b.params.LatStart,
		"lon_span", b.params.LonSpan, "lat_span", b.params.LatSpan,
		"side_m", b.params.SideM, "concurrency", b.params.Concurrency)

	if err := b.sink.Reset(ctx); err != nil {
		return Manifest{}, fmt.Errorf("reset grid store: %w", err)
	}

	bands := slices.Collect(Bands(b.params.LatStart, b.params.LatEnd(), b.params.SideM))
	m := Manifest{BuildID: buildID, Params: b.params}

	for chunk := range slices.Chunk(bands, b.params.Concurrency) {
		results := make([]bandResult, len(chunk))
		g, gctx := errgroup.WithContext(ctx)
		for i, band := range chunk {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				boxes, rejected, err := b.buildBand(band)
				if err != nil {
					return fmt.Errorf("band %d: %w", band.Index, err)
				}
				results[i] = bandResult{boxes: boxes, rejected: rejected}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Manifest{}, err
		}

		for i, band := range chunk {
			r := results[i]
			if err := b.sink.CommitBand(ctx, band, r.boxes); err != nil {
				return Manifest{}, fmt.Errorf("commit band %d: %w", band.Index, err)
			}
			m.Bands++
			m.Boxes += len(r.boxes)
			m.Rejected += r.rejected
			b.metrics.GridBands.Inc()
			b.metrics.GridBoxesKept.Add(float64(len(r.boxes)))
			b.metrics.GridBoxesRejected.Add(float64(r.rejected))
			logger.Debug("band committed", "band", band.Index, "boundary", band.Boundary,
				"kept", len(r.boxes), "rejected", r.rejected)
		}
	}

	m.BuiltAt = b.clock.Now().UTC()
	if err := b.sink.CommitManifest(ctx, m); err != nil {
		return Manifest{}, fmt.Errorf("commit manifest: %w", err)
	}
	b.metrics.GridBuildDuration.Observe(b.clock.Since(start).Seconds())
	logger.Info("grid build complete", "bands", m.Bands, "boxes", m.Boxes, "rejected", m.Rejected,
		"duration", b.clock.Since(start).Round(time.Millisecond))
	return m, nil
}

// buildBand lays candidate boxes across one band and keeps those with fewer
// than two corners on land. Each meridian edge is tested once and shared by
// the boxes on either side of it.
func (b *Builder) buildBand(band LatitudeBand) ([]Box, int, error) {
	south, north := band.Boundary, band.Top()
	edges := lonEdges(b.params.LonStart, b.params.LonEnd(), geo.AngularWidth(b.params.SideM, south))

	points := make([]geo.Point, 0, 2*len(edges))
	for _, lon := range edges {
		points = append(points, geo.Point{Lon: lon, Lat: south}, geo.Point{Lon: lon, Lat: north})
	}
	mask := b.land.Restrict(south-landMargin, north+landMargin)
	onLand, err := mask.Contains(points)
	if err != nil {
		return nil, 0, fmt.Errorf("land test: %w", err)
	}
	if len(onLand) != len(points) {
		return nil, 0, fmt.Errorf("land test: got %d results for %d points", len(onLand), len(points))
	}

	var kept []Box
	rejected := 0
	for k := 0; k+1 < len(edges); k++ {
		landCorners := countTrue(onLand[2*k : 2*k+4])
		if landCorners >= 2 {
			rejected++
			continue
		}
		box, err := b.newBox(domain.BoxID{Lat: band.Index, Lon: len(kept)}, edges[k], edges[k+1], south, north)
		if err != nil {
			return nil, 0, err
		}
		kept = append(kept, box)
	}
	return kept, rejected, nil
}

// lonEdges lists box meridians from west to east; the last box is truncated
// so the final edge is exactly east.
func lonEdges(west, east, step float64) []float64 {
	if !(step > 0) {
		return nil
	}
	edges := []float64{west}
	for k := 1; ; k++ {
		lon := west + float64(k)*step
		if lon >= east-edgeEpsilon {
			return append(edges, east)
		}
		edges = append(edges, lon)
	}
}

func (b *Builder) newBox(id domain.BoxID, west, east, south, north float64) (Box, error) {
	box := Box{
		ID: id,
		Corners: [4]geo.Point{
			LowerLeft:  {Lon: west, Lat: south},
			UpperLeft:  {Lon: west, Lat: north},
			UpperRight: {Lon: east, Lat: north},
			LowerRight: {Lon: east, Lat: south},
		},
		Center: geo.Point{Lon: (west + east) / 2, Lat: (south + north) / 2},
		SideM:  b.params.SideM,
	}
	if b.proj == nil {
		return box, nil
	}
	for i, c := range box.Corners {
		xy, err := b.proj.Project(c)
		if err != nil {
			return Box{}, fmt.Errorf("project corner of box %s: %w", id, err)
		}
		box.Projected[i] = xy
	}
	return box, nil
}

func countTrue(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
