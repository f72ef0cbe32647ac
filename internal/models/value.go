package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which scalar a Value holds
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindPoint
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindPoint:
		return "point"
	}
	return "unknown"
}

// Value is a single cell of a query row. The zero value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	p    Position
}

// Null returns the null value
func Null() Value { return Value{} }

// Bool wraps a boolean
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a floating-point number
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Text wraps a string
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Point wraps a composite WGS84 point
func Point(lat, lon float64) Value { return Value{kind: KindPoint, p: Position{Lat: lat, Lon: lon}} }

// Kind returns the variant held by v
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null
func (v Value) IsNull() bool { return v.kind == KindNull }

// Text returns the string for text values and the formatted value otherwise
func (v Value) Text() string {
	switch v.kind {
	case KindText:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindPoint:
		return fmt.Sprintf("%g,%g", v.p.Lat, v.p.Lon)
	}
	return ""
}

// Float64 converts numeric values to float64. Text is parsed so that rows
// coming from untyped sources (CSV, text columns) still carry coordinates.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Point returns the composite point held by v. Text of the form "lat,lon"
// or "(lat,lon)" is accepted as well.
func (v Value) Point() (Position, bool) {
	switch v.kind {
	case KindPoint:
		return v.p, true
	case KindText:
		return ParsePoint(v.s)
	}
	return Position{}, false
}

// ParsePoint parses "lat,lon" with optional surrounding parentheses
func ParsePoint(s string) (Position, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Position{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Position{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Position{}, false
	}
	return Position{Lat: lat, Lon: lon}, true
}

// Equal reports whether two values hold the same variant and payload
func (v Value) Equal(o Value) bool { return v == o }

// String implements fmt.Stringer
func (v Value) String() string {
	if v.kind == KindNull {
		return "NULL"
	}
	return v.Text()
}

// MarshalJSON encodes the value as its natural JSON form. Non-finite floats
// have no JSON representation and are written as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.f)
	case KindText:
		return json.Marshal(v.s)
	case KindPoint:
		return v.p.MarshalJSON()
	}
	return []byte("null"), nil
}
