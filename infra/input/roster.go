package input

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fieldfleet/core/model"
)

// Format is a roster file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor infers the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported roster format %q", filepath.Ext(path))
	}
}

// coords accepts either a nested location or flat lat/lon keys. Pointers
// distinguish a missing coordinate from the equator.
type coords struct {
	Lat      *float64 `json:"lat" yaml:"lat"`
	Lon      *float64 `json:"lon" yaml:"lon"`
	Location *struct {
		Lat *float64 `json:"lat" yaml:"lat"`
		Lon *float64 `json:"lon" yaml:"lon"`
	} `json:"location" yaml:"location"`
}

func (c coords) resolve() (model.Location, error) {
	lat, lon := c.Lat, c.Lon
	if c.Location != nil {
		lat, lon = c.Location.Lat, c.Location.Lon
	}
	if lat == nil || lon == nil {
		return model.Location{}, fmt.Errorf("missing coordinates")
	}
	return model.Location{Lat: *lat, Lon: *lon}, nil
}

type unitRecord struct {
	coords        `yaml:",inline"`
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Region        string `json:"region" yaml:"region"`
	PreferredType string `json:"preferred_type" yaml:"preferred_type"`
}

type machineRecord struct {
	coords    `yaml:",inline"`
	ID        string  `json:"id" yaml:"id"`
	Type      string  `json:"type" yaml:"type"`
	Capacity  float64 `json:"capacity_per_period" yaml:"capacity_per_period"`
	Available *bool   `json:"available" yaml:"available"`
}

type consumerRecord struct {
	ID        string  `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	UnitID    string  `json:"unit_id" yaml:"unit_id"`
	Magnitude float64 `json:"magnitude" yaml:"magnitude"`
	TierInput float64 `json:"tier_input" yaml:"tier_input"`
}

// decodeList accepts a bare list or a document holding the list under key.
func decodeList[T any](r io.Reader, f Format, key string) ([]T, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}
	var list []T
	var doc map[string][]T
	switch f {
	case FormatYAML:
		if err = yaml.Unmarshal(data, &list); err != nil {
			if derr := yaml.Unmarshal(data, &doc); derr != nil {
				return nil, fmt.Errorf("decode yaml: %w", err)
			}
			list = doc[key]
		}
	case FormatJSON:
		if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
			if err = json.Unmarshal(data, &doc); err != nil {
				return nil, fmt.Errorf("decode json: %w", err)
			}
			list = doc[key]
		} else if err = json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported roster format %q", f)
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

func open(path string) (*os.File, Format, error) {
	f, err := FormatFor(path)
	if err != nil {
		return nil, "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	return file, f, nil
}

// LoadUnits reads and validates a unit roster file.
func LoadUnits(path string) ([]model.Unit, error) {
	file, f, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	defer file.Close()
	return DecodeUnits(file, f)
}

// DecodeUnits parses a unit roster. A unit without coordinates is invalid.
func DecodeUnits(r io.Reader, f Format) ([]model.Unit, error) {
	raw, err := decodeList[unitRecord](r, f, "units")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidUnit, err)
	}
	units := make([]model.Unit, 0, len(raw))
	for i, u := range raw {
		loc, err := u.resolve()
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s): %v", model.ErrInvalidUnit, i, u.ID, err)
		}
		units = append(units, model.Unit{
			ID:            u.ID,
			Name:          u.Name,
			Region:        u.Region,
			Location:      loc,
			PreferredType: model.MachineType(u.PreferredType),
		})
	}
	if err := model.ValidateUnits(units); err != nil {
		return nil, err
	}
	return units, nil
}

// LoadMachines reads and validates a machine roster file.
func LoadMachines(path string) ([]model.Machine, error) {
	file, f, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("machines: %w", err)
	}
	defer file.Close()
	return DecodeMachines(file, f)
}

// DecodeMachines parses a machine roster. Machines without an availability
// flag are available.
func DecodeMachines(r io.Reader, f Format) ([]model.Machine, error) {
	raw, err := decodeList[machineRecord](r, f, "machines")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidMachine, err)
	}
	machines := make([]model.Machine, 0, len(raw))
	for i, m := range raw {
		loc, err := m.resolve()
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s): %v", model.ErrInvalidMachine, i, m.ID, err)
		}
		available := true
		if m.Available != nil {
			available = *m.Available
		}
		machines = append(machines, model.Machine{
			ID:                m.ID,
			Type:              model.MachineType(m.Type),
			Location:          loc,
			CapacityPerPeriod: m.Capacity,
			Available:         available,
		})
	}
	if err := model.ValidateMachines(machines); err != nil {
		return nil, err
	}
	return machines, nil
}

// LoadConsumers reads and validates a consumer roster file.
func LoadConsumers(path string) ([]model.ConsumerRecord, error) {
	file, f, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("consumers: %w", err)
	}
	defer file.Close()
	return DecodeConsumers(file, f)
}

// DecodeConsumers parses a consumer roster.
func DecodeConsumers(r io.Reader, f Format) ([]model.ConsumerRecord, error) {
	raw, err := decodeList[consumerRecord](r, f, "consumers")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConsumer, err)
	}
	consumers := make([]model.ConsumerRecord, 0, len(raw))
	for _, c := range raw {
		consumers = append(consumers, model.ConsumerRecord{
			ID:        c.ID,
			Name:      c.Name,
			UnitID:    c.UnitID,
			Magnitude: c.Magnitude,
			TierInput: c.TierInput,
		})
	}
	if err := model.ValidateConsumers(consumers); err != nil {
		return nil, err
	}
	return consumers, nil
}
