package grid

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/geo"
)

func TestBands_ThousandKilometerScenario(t *testing.T) {
	bands := slices.Collect(Bands(-40, 40, 1_000_000))
	h := geo.AngularHeight(1_000_000)

	require.Len(t, bands, 9)
	assert.Equal(t, -40.0, bands[0].Boundary)
	assert.InDelta(t, 40.0, bands[8].Top(), 1e-9)
	assert.InDelta(t, 80-8*h, bands[8].Height, 1e-9)

	for i, b := range bands {
		assert.Equal(t, i, b.Index)
		if i > 0 {
			assert.InDelta(t, bands[i-1].Top(), b.Boundary, 1e-9, "gap before band %d", i)
			assert.LessOrEqual(t, b.Height, bands[i-1].Height)
		}
	}
}

func TestBands_Restartable(t *testing.T) {
	seq := Bands(-10, 10, 250_000)
	assert.Equal(t, slices.Collect(seq), slices.Collect(seq))
}

func TestBands_StopsEarly(t *testing.T) {
	n := 0
	for range Bands(-60, 60, 100_000) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestBands_Empty(t *testing.T) {
	assert.Empty(t, slices.Collect(Bands(10, 10, 100_000)))
	assert.Empty(t, slices.Collect(Bands(20, 10, 100_000)))
	assert.Empty(t, slices.Collect(Bands(-10, 10, 0)))
}

func TestBands_ExactMultipleHasNoSliver(t *testing.T) {
	h := geo.AngularHeight(100_000)
	bands := slices.Collect(Bands(0, 5*h, 100_000))
	require.Len(t, bands, 5)
	assert.InDelta(t, h, bands[4].Height, 1e-9)
}

func TestLonEdges(t *testing.T) {
	t.Run("truncates last box", func(t *testing.T) {
		edges := lonEdges(-180, 180, 100)
		assert.Equal(t, []float64{-180, -80, 20, 120, 180}, edges)
	})
	t.Run("single narrow span", func(t *testing.T) {
		assert.Equal(t, []float64{0, 2}, lonEdges(0, 2, 5))
	})
	t.Run("exact multiple", func(t *testing.T) {
		edges := lonEdges(0, 30, 10)
		assert.Equal(t, []float64{0, 10, 20, 30}, edges)
	})
	t.Run("degenerate step", func(t *testing.T) {
		assert.Nil(t, lonEdges(0, 30, 0))
	})
}

func TestBox_Contains(t *testing.T) {
	b := Box{Corners: [4]geo.Point{
		LowerLeft:  {Lon: 10, Lat: -5},
		UpperLeft:  {Lon: 10, Lat: 5},
		UpperRight: {Lon: 20, Lat: 5},
		LowerRight: {Lon: 20, Lat: -5},
	}}

	assert.True(t, b.Contains(15, 0))
	assert.True(t, b.Contains(10, -5), "south-west corner is inclusive")
	assert.False(t, b.Contains(20, 0), "east edge is exclusive")
	assert.False(t, b.Contains(15, 5), "north edge is exclusive")
	assert.False(t, b.Contains(9.99, 0))
	assert.Equal(t, 10.0, b.West())
	assert.Equal(t, 20.0, b.East())
	assert.Equal(t, -5.0, b.South())
	assert.Equal(t, 5.0, b.North())
}

func TestParams_Validate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	mutate := func(f func(*Params)) Params {
		p := DefaultParams()
		f(&p)
		return p
	}
	tests := []struct {
		name string
		p    Params
	}{
		{"zero side", mutate(func(p *Params) { p.SideM = 0 })},
		{"side below minimum", mutate(func(p *Params) { p.SideM = MinSideM - 1 })},
		{"negative lat span", mutate(func(p *Params) { p.LatSpan = -1 })},
		{"lat span past pole", mutate(func(p *Params) { p.LatStart = 10; p.LatSpan = 100 })},
		{"lon span past antimeridian", mutate(func(p *Params) { p.LonStart = -100 })},
		{"lon start out of range", mutate(func(p *Params) { p.LonStart = 190; p.LonSpan = 1 })},
		{"zero concurrency", mutate(func(p *Params) { p.Concurrency = 0 })},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.p.Validate(), domain.ErrInvalidInput)
		})
	}

	assert.NoError(t, mutate(func(p *Params) { p.SideM = MinSideM }).Validate())
}

func TestParams_Extent(t *testing.T) {
	p := Params{LonStart: -30, LatStart: -20, LonSpan: 60, LatSpan: 50}
	assert.Equal(t, 30.0, p.LonEnd())
	assert.Equal(t, 30.0, p.LatEnd())
}

func TestBands_SeamsAreExact(t *testing.T) {
	bands := slices.Collect(Bands(-60, 60, 100_000))
	require.NotEmpty(t, bands)
	assert.Equal(t, -60.0, bands[0].Boundary)
	assert.Equal(t, 60.0, bands[len(bands)-1].Top())
	for i := 1; i < len(bands); i++ {
		assert.Equal(t, bands[i-1].Top(), bands[i].Boundary, "seam %d", i)
		assert.Positive(t, bands[i].Height)
	}
}
