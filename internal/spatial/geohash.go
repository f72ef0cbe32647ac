package spatial

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// MaxGeohashPrecision is the longest geohash Geohash produces
const MaxGeohashPrecision = 12

// Geohash encodes a WGS84 position into a geohash of precision characters,
// clamped to [1, MaxGeohashPrecision]
func Geohash(lat, lon float64, precision int) string {
	precision = min(max(precision, 1), MaxGeohashPrecision)

	latLo, latHi := -90.0, 90.0
	lonLo, lonHi := -180.0, 180.0
	out := make([]byte, 0, precision)

	even := true
	ch, n := 0, 0
	for len(out) < precision {
		ch <<= 1
		if even {
			if mid := (lonLo + lonHi) / 2; lon > mid {
				ch |= 1
				lonLo = mid
			} else {
				lonHi = mid
			}
		} else {
			if mid := (latLo + latHi) / 2; lat > mid {
				ch |= 1
				latLo = mid
			} else {
				latHi = mid
			}
		}
		even = !even

		if n++; n == 5 {
			out = append(out, geohashAlphabet[ch])
			ch, n = 0, 0
		}
	}
	return string(out)
}

// GeohashCenter returns the center of the cell named by hash. ok is false
// when hash holds a character outside the geohash alphabet.
func GeohashCenter(hash string) (lat, lon float64, ok bool) {
	latLo, latHi := -90.0, 90.0
	lonLo, lonHi := -180.0, 180.0

	even := true
	for i := 0; i < len(hash); i++ {
		idx := -1
		for j := 0; j < len(geohashAlphabet); j++ {
			if geohashAlphabet[j] == hash[i] {
				idx = j
				break
			}
		}
		if idx < 0 {
			return 0, 0, false
		}
		for bit := 4; bit >= 0; bit-- {
			set := idx&(1<<bit) != 0
			if even {
				mid := (lonLo + lonHi) / 2
				if set {
					lonLo = mid
				} else {
					lonHi = mid
				}
			} else {
				mid := (latLo + latHi) / 2
				if set {
					latLo = mid
				} else {
					latHi = mid
				}
			}
			even = !even
		}
	}
	return (latLo + latHi) / 2, (lonLo + lonHi) / 2, true
}
