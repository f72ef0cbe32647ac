package spatial

import (
	"github.com/golang/geo/s2"
)

// HaversineDistance calculates the great-circle distance between two points in meters
// using the Haversine formula
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Constants
const (
	EarthRadiusMeters           = 6371000.0 // Earth's mean radius in meters
	EarthEquatorialRadiusMeters = 6378137.0 // WGS84 semi-major axis, Web Mercator sphere
)
