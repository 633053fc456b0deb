package model

import "time"

// ReasonNoMachines is recorded when the roster is exhausted for a unit.
const ReasonNoMachines = "no available machines"

// Allocation assigns one machine to one unit.
type Allocation struct {
	UnitID          string      `json:"unit_id"`
	UnitName        string      `json:"unit_name"`
	MachineID       string      `json:"machine_id"`
	MachineType     MachineType `json:"machine_type"`
	MachineCapacity float64     `json:"machine_capacity"`
	Origin          Location    `json:"origin"`
	Destination     Location    `json:"destination"`
	DistanceKM      float64     `json:"distance_km"`
	ETAHours        float64     `json:"eta_hours"`
	UrgencyScore    int         `json:"urgency_score"`
	PredictedDate   *time.Time  `json:"predicted_date"`
	DaysUntilEvent  *float64    `json:"days_until_event"`
}

// UnallocatedRecord explains why a unit received no machine.
type UnallocatedRecord struct {
	UnitID       string `json:"unit_id"`
	UnitName     string `json:"unit_name"`
	UrgencyScore int    `json:"urgency_score"`
	Reason       string `json:"reason"`
}
