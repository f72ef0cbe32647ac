package models

import (
	"bytes"
	"encoding/json"
)

// ElementType is the requested rendering type of a query result
type ElementType string

const (
	ElementMarker  ElementType = "marker"
	ElementPoint   ElementType = "point"
	ElementHeatmap ElementType = "heatmap"
	ElementLine    ElementType = "line"
	ElementPolygon ElementType = "polygon"
)

// IsMarker reports whether every row renders as its own element
func (t ElementType) IsMarker() bool {
	return t == ElementMarker || t == ElementPoint
}

// Element is one renderable item of the response. Exactly one of Pos,
// Points or Heat is populated depending on the element type.
type Element struct {
	Attrs  Row
	Pos    *Position   // marker / point
	Points []Position  // grouped types
	Heat   []HeatPoint // heatmap
	Max    float64     // heatmap only
}

// Type returns the "type" attribute
func (e Element) Type() ElementType {
	v, _ := e.Attrs.Get("type")
	return ElementType(v.Text())
}

// Geometry keys written after the attributes. A column with the same name
// is overwritten by the geometry.
var (
	markerKeys  = map[string]bool{"pos": true}
	heatmapKeys = map[string]bool{"points": true, "max": true}
	groupKeys   = map[string]bool{"points": true}
)

// MarshalJSON writes the attributes followed by the geometry fields
func (e Element) MarshalJSON() ([]byte, error) {
	skip := groupKeys
	switch {
	case e.Pos != nil:
		skip = markerKeys
	case e.Type() == ElementHeatmap:
		skip = heatmapKeys
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := e.Attrs.writeFields(&buf, skip); err != nil {
		return nil, err
	}
	sep := func() {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
	}
	write := func(key string, v interface{}) error {
		sep()
		buf.WriteString(`"` + key + `":`)
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}

	var err error
	switch {
	case e.Pos != nil:
		err = write("pos", e.Pos)
	case e.Type() == ElementHeatmap:
		heat := e.Heat
		if heat == nil {
			heat = []HeatPoint{}
		}
		if err = write("points", heat); err == nil {
			err = write("max", e.Max)
		}
	default:
		points := e.Points
		if points == nil {
			points = []Position{}
		}
		err = write("points", points)
	}
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// QueryRequest carries the fields of a /query/ call
type QueryRequest struct {
	Query   string `form:"q" json:"q"`
	Type    string `form:"type" json:"type"`
	Color   string `form:"color" json:"color"`
	GroupBy string `form:"groupby" json:"groupby"`
	Fix     string `form:"fix" json:"fix"`
}

// QueryResponse is the JSON payload of a successful /query/ call. A non-nil
// Error next to the elements is a truncation notice, not a failure.
type QueryResponse struct {
	Elements []Element `json:"elements"`
	Error    *string   `json:"error"`
}

// ErrorResponse is returned when the query fails
type ErrorResponse struct {
	Error string `json:"error"`
}
