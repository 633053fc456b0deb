package dispatch

import (
	"fmt"
	"slices"

	"github.com/kilianp07/fieldfleet/core/logger"
	"github.com/kilianp07/fieldfleet/core/model"
)

// Result is the outcome of one allocation run. Roster is the post-run copy
// of the machine roster with allocated machines marked unavailable.
type Result struct {
	Allocations []model.Allocation        `json:"allocations"`
	Unallocated []model.UnallocatedRecord `json:"unallocated"`
	Roster      []model.Machine           `json:"-"`
}

// Allocator assigns machines to predicted demand.
type Allocator struct {
	cfg Config
	log logger.Logger
}

// NewAllocator returns an Allocator. Zero config fields take their defaults.
func NewAllocator(cfg Config, log logger.Logger) (*Allocator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Allocator{cfg: cfg, log: logger.OrNop(log)}, nil
}

// Config returns the effective configuration.
func (a *Allocator) Config() Config { return a.cfg }

// FindNearest returns the index of the closest available machine to loc and
// its distance in kilometres. A non-empty types list restricts the
// candidates. Ties keep the earliest machine in roster order. The index is
// -1 when nothing matches.
func FindNearest(loc model.Location, machines []model.Machine, types ...model.MachineType) (int, float64) {
	best, bestDist := -1, 0.0
	for i, m := range machines {
		if !m.Available {
			continue
		}
		if len(types) > 0 && !slices.Contains(types, m.Type) {
			continue
		}
		d := Distance(loc, m.Location)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// Allocate serves predictions in urgency order, giving each unit the nearest
// available machine of its preferred type, or of any type when none of the
// preferred type is left. The caller's roster is never modified. An invalid
// roster fails the run before any assignment.
func (a *Allocator) Allocate(preds []model.Prediction, machines []model.Machine) (Result, error) {
	if err := model.ValidateMachines(machines); err != nil {
		return Result{}, fmt.Errorf("machine roster: %w", err)
	}
	roster := model.CloneMachines(machines)
	ordered := slices.Clone(preds)
	model.SortPredictions(ordered)

	res := Result{Allocations: []model.Allocation{}, Unallocated: []model.UnallocatedRecord{}}
	for _, p := range ordered {
		idx, dist := -1, 0.0
		if p.PreferredType != "" {
			idx, dist = FindNearest(p.Location, roster, p.PreferredType)
		}
		if idx < 0 {
			idx, dist = FindNearest(p.Location, roster)
		}
		if idx < 0 {
			res.Unallocated = append(res.Unallocated, model.UnallocatedRecord{
				UnitID:       p.UnitID,
				UnitName:     p.UnitName,
				UrgencyScore: p.UrgencyScore,
				Reason:       model.ReasonNoMachines,
			})
			continue
		}
		m := &roster[idx]
		m.Available = false
		res.Allocations = append(res.Allocations, model.Allocation{
			UnitID:          p.UnitID,
			UnitName:        p.UnitName,
			MachineID:       m.ID,
			MachineType:     m.Type,
			MachineCapacity: m.CapacityPerPeriod,
			Origin:          m.Location,
			Destination:     p.Location,
			DistanceKM:      model.Round(dist, 2),
			ETAHours:        model.Round(dist/a.cfg.TransportSpeedKMH, 1),
			UrgencyScore:    p.UrgencyScore,
			PredictedDate:   p.PredictedDate,
			DaysUntilEvent:  p.DaysUntilEvent,
		})
	}
	res.Roster = roster

	a.log.Debugw("allocation finished", map[string]any{
		"predictions": len(preds),
		"allocated":   len(res.Allocations),
		"unallocated": len(res.Unallocated),
		"remaining":   model.CountAvailable(roster),
	})
	return res, nil
}

// ByMinUrgency returns the allocations with an urgency of at least min.
func ByMinUrgency(allocs []model.Allocation, min int) []model.Allocation {
	var out []model.Allocation
	for _, a := range allocs {
		if a.UrgencyScore >= min {
			out = append(out, a)
		}
	}
	return out
}
