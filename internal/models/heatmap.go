package models

import (
	"strconv"
)

// Position is a WGS84 latitude/longitude pair in degrees
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MarshalJSON encodes the position as [lat, lon]
func (p Position) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, 48)
	b = append(b, '[')
	b = strconv.AppendFloat(b, p.Lat, 'g', -1, 64)
	b = append(b, ',')
	b = strconv.AppendFloat(b, p.Lon, 'g', -1, 64)
	b = append(b, ']')
	return b, nil
}

// HeatPoint is a single weighted point of a heatmap layer
type HeatPoint struct {
	Position
	Intensity float64 // z value, 1 when the row carries none
}

// MarshalJSON encodes the point as [lat, lon, intensity]
func (h HeatPoint) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, 64)
	b = append(b, '[')
	b = strconv.AppendFloat(b, h.Lat, 'g', -1, 64)
	b = append(b, ',')
	b = strconv.AppendFloat(b, h.Lon, 'g', -1, 64)
	b = append(b, ',')
	b = strconv.AppendFloat(b, h.Intensity, 'g', -1, 64)
	b = append(b, ']')
	return b, nil
}
