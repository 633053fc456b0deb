package model

import (
	"fmt"
	"math"
)

// Location is a WGS84 coordinate in decimal degrees.
type Location struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Validate checks that the coordinate is finite and within range.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lon) || math.IsInf(l.Lat, 0) || math.IsInf(l.Lon, 0) {
		return fmt.Errorf("coordinates must be finite")
	}
	if l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("latitude %.4f out of range", l.Lat)
	}
	if l.Lon < -180 || l.Lon > 180 {
		return fmt.Errorf("longitude %.4f out of range", l.Lon)
	}
	return nil
}
