package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidMachine is returned when a machine roster entry is malformed.
var ErrInvalidMachine = errors.New("invalid machine")

// MachineType enumerates the residue-management machine families.
type MachineType string

const (
	MachineHappySeeder MachineType = "happy_seeder"
	MachineSuperSMS    MachineType = "super_sms"
	MachineBaler       MachineType = "baler"
	MachineRotavator   MachineType = "rotavator"
)

// Valid reports whether t is a known machine type.
func (t MachineType) Valid() bool {
	switch t {
	case MachineHappySeeder, MachineSuperSMS, MachineBaler, MachineRotavator:
		return true
	default:
		return false
	}
}

// Machine is a deployable field machine.
type Machine struct {
	ID       string      `json:"id" yaml:"id"`
	Type     MachineType `json:"type" yaml:"type"`
	Location Location    `json:"location" yaml:"location"`
	// CapacityPerPeriod is the area the machine can service per day.
	CapacityPerPeriod float64 `json:"capacity_per_period" yaml:"capacity_per_period"`
	Available         bool    `json:"available" yaml:"available"`
}

// Validate checks that the machine can take part in allocation.
func (m Machine) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMachine)
	}
	if !m.Type.Valid() {
		return fmt.Errorf("%w %s: unknown type %q", ErrInvalidMachine, m.ID, m.Type)
	}
	if err := m.Location.Validate(); err != nil {
		return fmt.Errorf("%w %s: %v", ErrInvalidMachine, m.ID, err)
	}
	if m.CapacityPerPeriod < 0 || math.IsNaN(m.CapacityPerPeriod) {
		return fmt.Errorf("%w %s: capacity must not be negative", ErrInvalidMachine, m.ID)
	}
	return nil
}

// ValidateMachines checks every machine and rejects duplicate ids.
func ValidateMachines(machines []Machine) error {
	seen := make(map[string]struct{}, len(machines))
	for _, m := range machines {
		if err := m.Validate(); err != nil {
			return err
		}
		if _, ok := seen[m.ID]; ok {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidMachine, m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}

// CloneMachines returns an independent copy of the roster.
func CloneMachines(machines []Machine) []Machine {
	out := make([]Machine, len(machines))
	copy(out, machines)
	return out
}

// CountAvailable returns the number of machines flagged available.
func CountAvailable(machines []Machine) int {
	n := 0
	for _, m := range machines {
		if m.Available {
			n++
		}
	}
	return n
}
