package spatial

import "math"

// GCJ-02 is defined on the Krasovsky 1940 ellipsoid
const (
	gcjSemiMajor    = 6378245.0
	gcjEccentricity = 0.00669342162296594323

	bdOffsetLat = 0.0060
	bdOffsetLon = 0.0065
	bdXPi       = math.Pi * 3000.0 / 180.0
)

// InChina reports whether the point lies in the rough bounding box where
// the GCJ-02 offset applies. Outside it the grids are the identity.
func InChina(lat, lon float64) bool {
	return lon >= 72.004 && lon <= 137.8347 && lat >= 0.8293 && lat <= 55.8271
}

// WGSToGCJ applies the GCJ-02 obfuscation to a WGS84 point
func WGSToGCJ(lat, lon float64) (float64, float64) {
	if !InChina(lat, lon) {
		return lat, lon
	}
	x, y := lon-105.0, lat-35.0

	dLat := -100.0 + 2.0*x + 3.0*y + 0.2*y*y + 0.1*x*y + 0.2*math.Sqrt(math.Abs(x))
	dLat += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	dLat += (20.0*math.Sin(y*math.Pi) + 40.0*math.Sin(y/3.0*math.Pi)) * 2.0 / 3.0
	dLat += (160.0*math.Sin(y/12.0*math.Pi) + 320.0*math.Sin(y/30.0*math.Pi)) * 2.0 / 3.0

	dLon := 300.0 + x + 2.0*y + 0.1*x*x + 0.1*x*y + 0.1*math.Sqrt(math.Abs(x))
	dLon += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	dLon += (20.0*math.Sin(x*math.Pi) + 40.0*math.Sin(x/3.0*math.Pi)) * 2.0 / 3.0
	dLon += (150.0*math.Sin(x/12.0*math.Pi) + 300.0*math.Sin(x/30.0*math.Pi)) * 2.0 / 3.0

	radLat := lat / 180.0 * math.Pi
	magic := math.Sin(radLat)
	magic = 1 - gcjEccentricity*magic*magic
	sqrtMagic := math.Sqrt(magic)
	dLat = (dLat * 180.0) / ((gcjSemiMajor * (1 - gcjEccentricity)) / (magic * sqrtMagic) * math.Pi)
	dLon = (dLon * 180.0) / (gcjSemiMajor / sqrtMagic * math.Cos(radLat) * math.Pi)
	return lat + dLat, lon + dLon
}

// GCJToWGS removes the GCJ-02 offset by subtracting the forward offset
// evaluated at the obfuscated point. Error is in the meter range.
func GCJToWGS(lat, lon float64) (float64, float64) {
	glat, glon := WGSToGCJ(lat, lon)
	return lat*2 - glat, lon*2 - glon
}

// GCJToBD converts GCJ-02 to Baidu BD-09
func GCJToBD(lat, lon float64) (float64, float64) {
	x, y := lon, lat
	r := math.Hypot(x, y) + 0.00002*math.Sin(y*bdXPi)
	theta := math.Atan2(y, x) + 0.000003*math.Cos(x*bdXPi)
	return r*math.Sin(theta) + bdOffsetLat, r*math.Cos(theta) + bdOffsetLon
}

// BDToGCJ converts Baidu BD-09 to GCJ-02
func BDToGCJ(lat, lon float64) (float64, float64) {
	x := lon - bdOffsetLon
	y := lat - bdOffsetLat
	r := math.Hypot(x, y) - 0.00002*math.Sin(y*bdXPi)
	theta := math.Atan2(y, x) - 0.000003*math.Cos(x*bdXPi)
	return r * math.Sin(theta), r * math.Cos(theta)
}

// BDToWGS goes BD-09 -> GCJ-02 -> WGS84
func BDToWGS(lat, lon float64) (float64, float64) {
	return GCJToWGS(BDToGCJ(lat, lon))
}
