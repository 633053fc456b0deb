package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/fieldfleet/core/dispatch"
	"github.com/kilianp07/fieldfleet/core/metrics"
	"github.com/kilianp07/fieldfleet/core/prediction"
	"github.com/kilianp07/fieldfleet/core/scheduler"
)

type Config struct {
	Predictor prediction.Config `json:"predictor"`
	Scheduler scheduler.Config  `json:"scheduler"`
	Allocator dispatch.Config   `json:"allocator"`
	Inputs    InputsConfig      `json:"inputs"`
	Output    OutputConfig      `json:"output"`
	Metrics   metrics.Config    `json:"metrics"`
	Logging   LoggingConfig     `json:"logging"`
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Predictor.SetDefaults()
	c.Scheduler.SetDefaults()
	c.Allocator.SetDefaults()
	c.Output.SetDefaults()
	c.Metrics.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section and prefixes errors with the section name.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"predictor", c.Predictor.Validate},
		{"scheduler", c.Scheduler.Validate},
		{"allocator", c.Allocator.Validate},
		{"inputs", c.Inputs.Validate},
		{"output", c.Output.Validate},
		{"metrics", c.Metrics.Validate},
		{"logging", c.Logging.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := Config{
		Predictor: prediction.DefaultConfig(),
		Scheduler: scheduler.DefaultConfig(),
	}
	cfg.SetDefaults()
	return &cfg
}

// Load reads the file at path, applies K_ environment overrides and decodes
// the result over Default, so keys absent from both keep their defaults and
// explicit zeros are preserved. A non-empty inputs.scheduler_file replaces
// the scheduler section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if cfg.Inputs.SchedulerFile != "" {
		sc, err := scheduler.LoadConfig(cfg.Inputs.SchedulerFile)
		if err != nil {
			return nil, fmt.Errorf("scheduler file: %w", err)
		}
		cfg.Scheduler = sc
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
