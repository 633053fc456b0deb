package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultWindowDays         = 5
	DefaultMinCapacity        = 3
	DefaultThroughput         = 10.0
	DefaultPriorityThreshold  = 15.0
	DefaultPremiumThreshold   = 25.0
	DefaultFallbackOffsetDays = 2
)

// Config defines clustering and tiering parameters.
type Config struct {
	// WindowDays is the length of each deployment window.
	WindowDays int `json:"window_days" yaml:"window_days"`
	// MinCapacity is the minimum number of machines a cluster requires.
	MinCapacity int `json:"min_capacity" yaml:"min_capacity"`
	// ThroughputPerMachinePerDay is the magnitude one machine services per day.
	ThroughputPerMachinePerDay float64 `json:"throughput_per_machine_per_day" yaml:"throughput_per_machine_per_day"`
	PriorityThreshold          float64 `json:"priority_threshold" yaml:"priority_threshold"`
	PremiumThreshold           float64 `json:"premium_threshold" yaml:"premium_threshold"`
	// FallbackOffsetDays places the optimal date of consumers whose unit has
	// no predicted date.
	FallbackOffsetDays int `json:"fallback_offset_days" yaml:"fallback_offset_days"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		WindowDays:                 DefaultWindowDays,
		MinCapacity:                DefaultMinCapacity,
		ThroughputPerMachinePerDay: DefaultThroughput,
		PriorityThreshold:          DefaultPriorityThreshold,
		PremiumThreshold:           DefaultPremiumThreshold,
		FallbackOffsetDays:         DefaultFallbackOffsetDays,
	}
}

// SetDefaults fills the fields whose zero value is unusable. A zero
// min_capacity, tier threshold or fallback offset is a valid setting, so
// those defaults come from DefaultConfig.
func (c *Config) SetDefaults() {
	if c.WindowDays == 0 {
		c.WindowDays = DefaultWindowDays
	}
	if c.ThroughputPerMachinePerDay == 0 {
		c.ThroughputPerMachinePerDay = DefaultThroughput
	}
}

// Validate checks the parameters.
func (c Config) Validate() error {
	if c.WindowDays < 1 {
		return fmt.Errorf("window_days must be positive, got %d", c.WindowDays)
	}
	if c.MinCapacity < 0 {
		return fmt.Errorf("min_capacity must not be negative")
	}
	if c.ThroughputPerMachinePerDay <= 0 {
		return fmt.Errorf("throughput_per_machine_per_day must be positive")
	}
	if c.PriorityThreshold < 0 || c.PremiumThreshold < c.PriorityThreshold {
		return fmt.Errorf("tier thresholds must satisfy 0 <= priority (%g) <= premium (%g)", c.PriorityThreshold, c.PremiumThreshold)
	}
	if c.FallbackOffsetDays < 0 {
		return fmt.Errorf("fallback_offset_days must not be negative")
	}
	return nil
}

// LoadConfig loads Config from a JSON or YAML file. Fields missing from the
// file keep their defaults.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	cfg, err := DecodeConfig(f, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// DecodeConfig reads from r to decode a Config over the defaults.
func DecodeConfig(r io.Reader, format string) (Config, error) {
	cfg := DefaultConfig()
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(r)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, err
		}
	case "json":
		dec := json.NewDecoder(r)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported format: %s", format)
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}
