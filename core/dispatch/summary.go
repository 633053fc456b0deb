package dispatch

import "github.com/kilianp07/fieldfleet/core/model"

// Summary aggregates one allocation run.
type Summary struct {
	Predictions       int                       `json:"predictions"`
	Allocated         int                       `json:"allocated"`
	Unallocated       int                       `json:"unallocated"`
	AllocationRate    float64                   `json:"allocation_rate"`
	TotalDistanceKM   float64                   `json:"total_distance_km"`
	AvgDistanceKM     float64                   `json:"avg_distance_km"`
	AvgETAHours       float64                   `json:"avg_eta_hours"`
	UsageByType       map[model.MachineType]int `json:"usage_by_type"`
	MachinesRemaining int                       `json:"machines_remaining"`
	Urgent            int                       `json:"urgent"`
}

// Summarize computes run statistics from a Result. Averages are zero when
// nothing was allocated.
func (a *Allocator) Summarize(res Result) Summary {
	s := Summary{
		Allocated:         len(res.Allocations),
		Unallocated:       len(res.Unallocated),
		UsageByType:       make(map[model.MachineType]int),
		MachinesRemaining: model.CountAvailable(res.Roster),
		Urgent:            len(ByMinUrgency(res.Allocations, a.cfg.UrgentScore)),
	}
	s.Predictions = s.Allocated + s.Unallocated
	var eta float64
	for _, al := range res.Allocations {
		s.TotalDistanceKM += al.DistanceKM
		eta += al.ETAHours
		s.UsageByType[al.MachineType]++
	}
	if s.Allocated > 0 {
		s.AvgDistanceKM = model.Round(s.TotalDistanceKM/float64(s.Allocated), 2)
		s.AvgETAHours = model.Round(eta/float64(s.Allocated), 1)
	}
	if s.Predictions > 0 {
		s.AllocationRate = model.Round(float64(s.Allocated)/float64(s.Predictions)*100, 1)
	}
	s.TotalDistanceKM = model.Round(s.TotalDistanceKM, 2)
	return s
}
