// Package geo converts coordinate pairs into distances and map zoom levels.
package geo

import "math"

const (
	// earthRadiusMeters is the IUGG mean Earth radius.
	earthRadiusMeters = 6371008.8

	// MilesPerMeter converts meters to statute miles.
	MilesPerMeter = 0.000621371
)

// DistanceMeters returns the great-circle (haversine) distance between two
// points given in degrees.
func DistanceMeters(fromLat, fromLng, toLat, toLng float64) float64 {
	φ1 := fromLat * math.Pi / 180
	φ2 := toLat * math.Pi / 180
	Δφ := (toLat - fromLat) * math.Pi / 180
	Δλ := (toLng - fromLng) * math.Pi / 180

	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistanceMiles returns the great-circle distance between two points in miles.
func DistanceMiles(fromLat, fromLng, toLat, toLng float64) float64 {
	return DistanceMeters(fromLat, fromLng, toLat, toLng) * MilesPerMeter
}

// zoomSteps maps exclusive upper distance bounds (meters) to zoom levels.
var zoomSteps = []struct {
	below float64
	zoom  float64
}{
	{100, 18},
	{200, 17},
	{500, 16},
	{1000, 15},
	{2000, 14},
	{5000, 13},
	{10000, 12},
	{20000, 11},
}

// ZoomForDistance returns the map zoom level that comfortably frames a span
// of distanceMeters.
func ZoomForDistance(distanceMeters float64) float64 {
	for _, s := range zoomSteps {
		if distanceMeters < s.below {
			return s.zoom
		}
	}
	return 10
}
