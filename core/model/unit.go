package model

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidUnit is returned when a production unit record is malformed.
var ErrInvalidUnit = errors.New("invalid unit")

// Reading is one vegetation-index observation for a unit.
type Reading struct {
	UnitID    string    `json:"unit_id"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"index_value"`
}

// Unit is a geographically located production unit (a district or field block).
type Unit struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Region   string   `json:"region" yaml:"region"`
	Location Location `json:"location" yaml:"location"`
	// PreferredType narrows machine matching when set and available.
	PreferredType MachineType `json:"preferred_type,omitempty" yaml:"preferred_type,omitempty"`
}

// Validate checks the mandatory unit fields.
func (u Unit) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidUnit)
	}
	if err := u.Location.Validate(); err != nil {
		return fmt.Errorf("%w %s: %v", ErrInvalidUnit, u.ID, err)
	}
	if u.PreferredType != "" && !u.PreferredType.Valid() {
		return fmt.Errorf("%w %s: unknown preferred type %q", ErrInvalidUnit, u.ID, u.PreferredType)
	}
	return nil
}

// DisplayName returns the unit name or its id when no name is set.
func (u Unit) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

// UnitSeries groups the readings of a single unit.
type UnitSeries struct {
	Unit     Unit
	Readings []Reading
}

// Sorted returns a copy of the readings ordered by timestamp.
func (s UnitSeries) Sorted() []Reading {
	out := make([]Reading, len(s.Readings))
	copy(out, s.Readings)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// ValidateUnits checks every unit and rejects duplicate ids.
func ValidateUnits(units []Unit) error {
	seen := make(map[string]struct{}, len(units))
	for _, u := range units {
		if err := u.Validate(); err != nil {
			return err
		}
		if _, ok := seen[u.ID]; ok {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidUnit, u.ID)
		}
		seen[u.ID] = struct{}{}
	}
	return nil
}
