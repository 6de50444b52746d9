package geo

import (
	"math"
	"testing"

	"github.com/golang/geo/s2"
	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lon1, lat1, lon2, lat2 float64
		wantKm                 float64
	}{
		{"same point", 10, 10, 10, 10, 0},
		{"one degree along equator", 0, 0, 1, 0, 111.19},
		{"one degree along meridian", 0, 0, 0, 1, 111.19},
		{"pole to pole", 0, -90, 0, 90, math.Pi * EarthRadiusKm},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.wantKm, Haversine(tc.lon1, tc.lat1, tc.lon2, tc.lat2), 0.01)
		})
	}
}

func TestHaversine_MatchesS2(t *testing.T) {
	pairs := [][4]float64{
		{-70.5, 41.2, -9.1, 38.7},
		{179.5, -10, -179.5, -10},
		{0, 0, 90, 45},
		{-120, -60, 30, 60},
	}
	for _, p := range pairs {
		a := s2.LatLngFromDegrees(p[1], p[0])
		b := s2.LatLngFromDegrees(p[3], p[2])
		want := a.Distance(b).Radians() * EarthRadiusKm
		assert.InDelta(t, want, Haversine(p[0], p[1], p[2], p[3]), 1e-6)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := Point{Lon: -45, Lat: 12}
	b := Point{Lon: 33, Lat: -7}
	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
}

func TestAngularHeight(t *testing.T) {
	assert.InDelta(t, 8.9932, AngularHeight(1_000_000), 1e-4)
	assert.InDelta(t, 0.89932, AngularHeight(100_000), 1e-5)
}

func TestAngularWidth(t *testing.T) {
	t.Run("equator equals height", func(t *testing.T) {
		assert.InDelta(t, AngularHeight(100_000), AngularWidth(100_000, 0), 1e-12)
	})
	t.Run("narrows poleward", func(t *testing.T) {
		assert.Less(t, AngularWidth(100_000, 60), AngularWidth(100_000, 30))
		assert.InDelta(t, AngularHeight(100_000)/2, AngularWidth(100_000, 60), 1e-9)
	})
	t.Run("symmetric about the equator", func(t *testing.T) {
		assert.InDelta(t, AngularWidth(50_000, -25), AngularWidth(50_000, 25), 1e-12)
	})
}

func TestNormalizeLongitude(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{-180, -180},
		{179.9, 179.9},
		{180, -180},
		{190, -170},
		{359.5, -0.5},
		{-45, -45},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, NormalizeLongitude(tc.in), 1e-12, "in=%v", tc.in)
	}
}
