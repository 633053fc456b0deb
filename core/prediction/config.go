package prediction

import (
	"fmt"
	"math"
)

const (
	DefaultThreshold    = 0.4
	DefaultMinDataDays  = 7
	DefaultTrendEpsilon = 0.005
	DefaultWorkers      = 4
	// DefaultUrgentScore is the minimum urgency reported by UrgentUnits.
	DefaultUrgentScore = 7
)

// Config holds predictor tuning parameters.
type Config struct {
	// Threshold is the index value at or below which a unit is ready.
	Threshold float64 `json:"threshold"`
	// MinDataDays is the minimum number of readings needed for a fit.
	MinDataDays int `json:"min_data_days"`
	// TrendEpsilon is the slope magnitude separating stable from moving trends.
	TrendEpsilon float64 `json:"trend_epsilon"`
	// Workers bounds the number of concurrent fits in PredictAll.
	Workers int `json:"workers"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:    DefaultThreshold,
		MinDataDays:  DefaultMinDataDays,
		TrendEpsilon: DefaultTrendEpsilon,
		Workers:      DefaultWorkers,
	}
}

// SetDefaults fills the fields whose zero value is unusable. Threshold and
// TrendEpsilon keep an explicit zero; start from DefaultConfig for theirs.
func (c *Config) SetDefaults() {
	if c.MinDataDays == 0 {
		c.MinDataDays = DefaultMinDataDays
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
}

// Validate checks the parameters.
func (c Config) Validate() error {
	if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
		return fmt.Errorf("threshold must be finite")
	}
	if c.MinDataDays < 2 {
		return fmt.Errorf("min_data_days must be at least 2, got %d", c.MinDataDays)
	}
	if c.TrendEpsilon < 0 {
		return fmt.Errorf("trend_epsilon must not be negative")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}
