// Package geo holds the spherical-earth helpers shared by grid construction,
// box lookup, and neighbor search: haversine distance and the conversions
// between a linear box side and its angular extent.
package geo

import "math"

const (
	// EarthRadiusM is the mean earth radius used for every metric/angle conversion.
	EarthRadiusM = 6_371_000.0
	// EarthRadiusKm is EarthRadiusM in kilometers.
	EarthRadiusKm = EarthRadiusM / 1000
)

// Point is a geographic coordinate in degrees.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Haversine returns the great-circle distance in kilometers between two
// coordinates given in degrees.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Distance is Haversine over two Points.
func Distance(a, b Point) float64 {
	return Haversine(a.Lon, a.Lat, b.Lon, b.Lat)
}

// AngularHeight converts a box side in meters to its latitudinal extent in degrees.
func AngularHeight(sideM float64) float64 {
	return degrees(sideM / EarthRadiusM)
}

// AngularWidth is the longitudinal step in degrees for a box of the given side
// whose lower edge sits at latDeg. The step narrows toward the poles.
func AngularWidth(sideM, latDeg float64) float64 {
	return degrees(sideM / EarthRadiusM * math.Cos(radians(latDeg)))
}

// NormalizeLongitude maps a longitude given in [0, 360) onto [-180, 180).
// Values already in range are returned unchanged.
func NormalizeLongitude(lon float64) float64 {
	if lon >= 180 {
		return lon - 360
	}
	return lon
}
