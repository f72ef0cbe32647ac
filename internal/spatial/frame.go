package spatial

// Frame names the reference frame a query returns its positions in
type Frame string

const (
	FrameWGS      Frame = "wgs"
	FrameCoords   Frame = "coords"
	FrameMercator Frame = "3857"
	FrameBaidu    Frame = "bd"
	FrameGCJ      Frame = "gcj"
)

// ParseFrame maps the request token to a Frame. An empty token means WGS84;
// any other token is kept as-is and normalizes as the identity.
func ParseFrame(token string) Frame {
	if token == "" {
		return FrameWGS
	}
	return Frame(token)
}

// Known reports whether f is one of the supported frames
func (f Frame) Known() bool {
	switch f {
	case FrameWGS, FrameCoords, FrameMercator, FrameBaidu, FrameGCJ:
		return true
	}
	return false
}

// Columns returns the row columns that carry the geometry for f. The
// composite frame reads a single column.
func (f Frame) Columns() []string {
	switch f {
	case FrameMercator:
		return []string{"x", "y"}
	case FrameCoords:
		return []string{"coords"}
	}
	return []string{"lat", "lon"}
}

// Normalize converts a raw coordinate pair in frame f into WGS84 lat/lon.
// For FrameMercator the pair is (x, y) in meters, otherwise (lat, lon).
func Normalize(f Frame, a, b float64) (lat, lon float64) {
	switch f {
	case FrameMercator:
		return MercatorToWGS(a, b)
	case FrameBaidu:
		return BDToWGS(a, b)
	case FrameGCJ:
		return GCJToWGS(a, b)
	}
	return a, b
}
