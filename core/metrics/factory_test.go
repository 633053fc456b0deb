package metrics

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fieldfleet/core/factory"
)

func factoryConfig(typ string) factory.ModuleConfig {
	return factory.ModuleConfig{Type: typ}
}

func init() {
	_ = RegisterMetricsSink("test-nop", func(map[string]any) (MetricsSink, error) {
		return NopSink{}, nil
	})
}

/*
TestNewMetricsSink_Multi validates NewMetricsSink behavior with zero, one, and multiple configs.
Cases:
  - no config -> NopSink
  - two configs -> MultiSink with two sub-sinks
  - unknown type -> error
*/
func TestNewMetricsSink_Multi(t *testing.T) {
	s, err := NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("create nop default: %v", err)
	}
	if _, ok := s.(NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}

	s, err = NewMetricsSink([]factory.ModuleConfig{factoryConfig("test-nop"), factoryConfig("test-nop")})
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	m, ok := s.(*MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	if len(m.Sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(m.Sinks))
	}

	if _, err := NewMetricsSink([]factory.ModuleConfig{factoryConfig("missing")}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

// Test decoding from YAML and JSON documents.
func TestMetricsConfigDecode(t *testing.T) {
	data := `sinks:
  - type: test-nop
  - type: test-nop
listen_addr: ":9100"
`
	var cfg Config
	if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	if len(cfg.Sinks) != 2 || !cfg.HasSink("test-nop") || cfg.ListenAddr != ":9100" {
		t.Fatalf("bad cfg %#v", cfg)
	}

	var jcfg Config
	if err := json.Unmarshal([]byte(`{"sinks":[{"type":"missing"}]}`), &jcfg); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if _, err := NewMetricsSink(jcfg.Sinks); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}
