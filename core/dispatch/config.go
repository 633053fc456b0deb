package dispatch

import (
	"fmt"
	"math"
)

// DefaultTransportSpeedKMH is the average road speed used for ETAs.
const DefaultTransportSpeedKMH = 30.0

// Config defines allocator settings.
type Config struct {
	TransportSpeedKMH float64 `json:"transport_speed_kmh"`
	// UrgentScore is the minimum urgency reported as urgent in summaries.
	UrgentScore int `json:"urgent_score"`
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	if c.TransportSpeedKMH == 0 {
		c.TransportSpeedKMH = DefaultTransportSpeedKMH
	}
	if c.UrgentScore == 0 {
		c.UrgentScore = 7
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.TransportSpeedKMH <= 0 || math.IsInf(c.TransportSpeedKMH, 0) || math.IsNaN(c.TransportSpeedKMH) {
		return fmt.Errorf("transport_speed_kmh must be a positive number")
	}
	if c.UrgentScore < 1 || c.UrgentScore > 10 {
		return fmt.Errorf("urgent_score must be within [1,10], got %d", c.UrgentScore)
	}
	return nil
}
