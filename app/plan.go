package app

import (
	"time"

	"github.com/kilianp07/fieldfleet/core/dispatch"
	"github.com/kilianp07/fieldfleet/core/model"
	"github.com/kilianp07/fieldfleet/core/scheduler"
)

// Forecast is the predictor output.
type Forecast struct {
	Predictions []model.Prediction `json:"predictions"`
	// Skipped lists units without enough readings for a fit.
	Skipped []string `json:"skipped"`
	// Orphans lists unit ids found in readings but not in the unit roster.
	Orphans []string           `json:"orphans"`
	Urgent  []model.Prediction `json:"urgent"`
}

// ScheduleReport is the cluster scheduler output and its projections.
type ScheduleReport struct {
	Clusters     []model.Cluster              `json:"clusters"`
	Schedules    []model.Schedule             `json:"schedules"`
	Availability []scheduler.AvailabilityCell `json:"availability"`
	Timeline     []scheduler.TimelineEntry    `json:"timeline"`
	Summary      scheduler.Summary            `json:"summary"`
}

// DispatchReport is the allocator output.
type DispatchReport struct {
	Allocations []model.Allocation        `json:"allocations"`
	Unallocated []model.UnallocatedRecord `json:"unallocated"`
	Summary     dispatch.Summary          `json:"summary"`
}

// Plan is the result of one run. Sections a command did not compute are nil.
type Plan struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Forecast    Forecast        `json:"forecast"`
	Schedule    *ScheduleReport `json:"schedule,omitempty"`
	Dispatch    *DispatchReport `json:"dispatch,omitempty"`
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
