package model

import "time"

// ClusterStatus is derived from the run's "now" against the window.
type ClusterStatus string

const (
	ClusterPending   ClusterStatus = "pending"
	ClusterActive    ClusterStatus = "active"
	ClusterCompleted ClusterStatus = "completed"
)

// Window is a half-open time span [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Overlaps reports whether the two windows share any instant.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Days returns the window length in whole days.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start) / (24 * time.Hour))
}

// Cluster groups units whose predicted events fall in the same window and
// share deployment capacity.
type Cluster struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Region            string        `json:"region"`
	UnitIDs           []string      `json:"unit_ids"`
	UnitNames         []string      `json:"unit_names"`
	Regions           []string      `json:"regions"`
	Window            Window        `json:"window"`
	AggregateIndex    float64       `json:"aggregate_index"`
	AggregateUrgency  float64       `json:"aggregate_urgency"`
	RequiredCapacity  int           `json:"required_capacity"`
	AllocatedCapacity int           `json:"allocated_capacity"`
	TotalDemand       float64       `json:"total_demand"`
	Status            ClusterStatus `json:"status"`
}

// HasUnit reports whether id is a member of the cluster.
func (c Cluster) HasUnit(id string) bool {
	for _, u := range c.UnitIDs {
		if u == id {
			return true
		}
	}
	return false
}
