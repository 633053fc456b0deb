package scenarios

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fieldfleet/core/model"
	"github.com/kilianp07/fieldfleet/infra/input"
)

// SeriesDef generates a linear index series ending at the scenario time.
type SeriesDef struct {
	Start float64 `yaml:"start"`
	Step  float64 `yaml:"step"`
	Days  int     `yaml:"days"`
}

type UnitDef struct {
	ID            string    `yaml:"id"`
	Name          string    `yaml:"name"`
	Region        string    `yaml:"region"`
	Lat           float64   `yaml:"lat"`
	Lon           float64   `yaml:"lon"`
	PreferredType string    `yaml:"preferred_type,omitempty"`
	Series        SeriesDef `yaml:"series"`
}

func (u UnitDef) ToModel() model.Unit {
	return model.Unit{
		ID:            u.ID,
		Name:          u.Name,
		Region:        u.Region,
		Location:      model.Location{Lat: u.Lat, Lon: u.Lon},
		PreferredType: model.MachineType(u.PreferredType),
	}
}

// Readings returns one reading per day, the last one at now.
func (u UnitDef) Readings(now time.Time) []model.Reading {
	out := make([]model.Reading, 0, u.Series.Days+1)
	for i := 0; i <= u.Series.Days; i++ {
		out = append(out, model.Reading{
			UnitID:    u.ID,
			Timestamp: now.AddDate(0, 0, i-u.Series.Days),
			Value:     u.Series.Start + u.Series.Step*float64(i),
		})
	}
	return out
}

type MachineDef struct {
	ID          string  `yaml:"id"`
	Type        string  `yaml:"type"`
	Lat         float64 `yaml:"lat"`
	Lon         float64 `yaml:"lon"`
	Capacity    float64 `yaml:"capacity"`
	Unavailable bool    `yaml:"unavailable,omitempty"`
}

func (m MachineDef) ToModel() model.Machine {
	return model.Machine{
		ID:                m.ID,
		Type:              model.MachineType(m.Type),
		Location:          model.Location{Lat: m.Lat, Lon: m.Lon},
		CapacityPerPeriod: m.Capacity,
		Available:         !m.Unavailable,
	}
}

type ConsumerDef struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	UnitID    string  `yaml:"unit_id"`
	Magnitude float64 `yaml:"magnitude"`
	TierInput float64 `yaml:"tier_input,omitempty"`
}

func (c ConsumerDef) ToModel() model.ConsumerRecord {
	return model.ConsumerRecord{ID: c.ID, Name: c.Name, UnitID: c.UnitID, Magnitude: c.Magnitude, TierInput: c.TierInput}
}

type Expected struct {
	Predictions int  `yaml:"predictions"`
	Skipped     int  `yaml:"skipped"`
	Clusters    int  `yaml:"clusters"`
	Schedules   int  `yaml:"schedules"`
	Allocated   int  `yaml:"allocated"`
	Unallocated int  `yaml:"unallocated"`
	Deficit     *int `yaml:"deficit,omitempty"`
	// First is the unit expected at the head of the prediction list.
	First string `yaml:"first,omitempty"`
	// Assignments maps unit ids to the machine they must receive.
	Assignments map[string]string `yaml:"assignments,omitempty"`
}

type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Now         string        `yaml:"now"`
	Units       []UnitDef     `yaml:"units"`
	Machines    []MachineDef  `yaml:"machines"`
	Consumers   []ConsumerDef `yaml:"consumers"`
	Expected    Expected      `yaml:"expected"`
}

// Time parses the scenario reference time.
func (s *Scenario) Time() (time.Time, error) {
	return input.ParseTime(s.Now)
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
