package spatial

import "math"

// MercatorToWGS converts EPSG:3857 projected meters to WGS84 degrees
func MercatorToWGS(x, y float64) (lat, lon float64) {
	lon = x / EarthEquatorialRadiusMeters * 180 / math.Pi
	lat = (2*math.Atan(math.Exp(y/EarthEquatorialRadiusMeters)) - math.Pi/2) * 180 / math.Pi
	return lat, lon
}

// WGSToMercator projects WGS84 degrees to EPSG:3857 meters
func WGSToMercator(lat, lon float64) (x, y float64) {
	x = lon * math.Pi / 180 * EarthEquatorialRadiusMeters
	y = math.Log(math.Tan(math.Pi/4+lat*math.Pi/360)) * EarthEquatorialRadiusMeters
	return x, y
}
