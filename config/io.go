package config

import "fmt"

// InputsConfig points at the input files of a run. Readings are CSV and the
// rosters are YAML or JSON.
type InputsConfig struct {
	Readings  string `json:"readings"`
	Units     string `json:"units"`
	Machines  string `json:"machines"`
	Consumers string `json:"consumers"`
	// Predictions replays a saved forecast (a plan or a prediction list)
	// instead of fitting the readings.
	Predictions string `json:"predictions"`
	// SchedulerFile is a standalone scheduler config replacing the
	// scheduler section.
	SchedulerFile string `json:"scheduler_file"`
}

// Validate requires the readings and the unit roster unless a saved
// forecast is replayed. Machines and consumers may be omitted and are then
// empty.
func (c InputsConfig) Validate() error {
	if c.Predictions != "" {
		return nil
	}
	if c.Readings == "" {
		return fmt.Errorf("readings path is required")
	}
	if c.Units == "" {
		return fmt.Errorf("units path is required")
	}
	return nil
}

// OutputConfig selects where and how the plan is written. An empty path
// writes to stdout.
type OutputConfig struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}

// SetDefaults applies sane defaults.
func (c *OutputConfig) SetDefaults() {
	if c.Format == "" {
		c.Format = "json"
	}
}

// Validate checks the output format.
func (c OutputConfig) Validate() error {
	if c.Format != "json" && c.Format != "csv" {
		return fmt.Errorf("unknown format %s", c.Format)
	}
	if c.Format == "csv" && c.Path == "" {
		return fmt.Errorf("csv output needs a directory path")
	}
	return nil
}
