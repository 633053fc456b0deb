package scheduler

import (
	"math"
	"sort"
	"time"

	"github.com/kilianp07/fieldfleet/core/model"
)

// AvailabilityCell is the machine supply and demand of one region on one day.
type AvailabilityCell struct {
	Date             string  `json:"date"`
	Region           string  `json:"region"`
	ClusterID        string  `json:"cluster_id"`
	MachinesPerDay   int     `json:"machines_per_day"`
	Capacity         float64 `json:"capacity"`
	Demand           float64 `json:"demand"`
	DemandPercentage int     `json:"demand_percentage"`
}

// AvailabilityMatrix spreads each cluster's allocated machines over its
// window days and compares the daily capacity to the scheduled demand of each
// member region. Cells are ordered by date then region.
func (s *Scheduler) AvailabilityMatrix(clusters []model.Cluster, schedules []model.Schedule) []AvailabilityCell {
	type key struct{ cluster, region string }
	magnitude := make(map[key]float64)
	for _, sc := range schedules {
		magnitude[key{sc.ClusterID, sc.Region}] += sc.Magnitude
	}

	days := float64(s.cfg.WindowDays)
	seen := make(map[[2]string]struct{})
	var cells []AvailabilityCell
	for _, c := range clusters {
		perDay := max(c.AllocatedCapacity/s.cfg.WindowDays, 1)
		capacity := float64(perDay) * s.cfg.ThroughputPerMachinePerDay
		for d := c.Window.Start; d.Before(c.Window.End); d = d.Add(day) {
			date := d.Format(time.DateOnly)
			for _, r := range c.Regions {
				if _, ok := seen[[2]string{date, r}]; ok {
					continue
				}
				seen[[2]string{date, r}] = struct{}{}
				demand := magnitude[key{c.ID, r}] / days
				pct := int(math.Round(demand / math.Max(capacity, 1) * 100))
				cells = append(cells, AvailabilityCell{
					Date:             date,
					Region:           r,
					ClusterID:        c.ID,
					MachinesPerDay:   perDay,
					Capacity:         capacity,
					Demand:           model.Round(demand, 2),
					DemandPercentage: min(100, pct),
				})
			}
		}
	}
	sort.SliceStable(cells, func(i, j int) bool {
		if cells[i].Date != cells[j].Date {
			return cells[i].Date < cells[j].Date
		}
		return cells[i].Region < cells[j].Region
	})
	return cells
}

// UrgencyBand labels an aggregate urgency for display.
type UrgencyBand string

const (
	BandUrgent UrgencyBand = "urgent"
	BandHigh   UrgencyBand = "high"
	BandMedium UrgencyBand = "medium"
	BandLow    UrgencyBand = "low"
)

// BandFor maps a rounded urgency to its band.
func BandFor(urgency int) UrgencyBand {
	switch {
	case urgency >= 8:
		return BandUrgent
	case urgency >= 6:
		return BandHigh
	case urgency >= 4:
		return BandMedium
	default:
		return BandLow
	}
}

// TimelineEntry describes one cluster on the deployment timeline.
type TimelineEntry struct {
	ClusterID         string              `json:"cluster_id"`
	Name              string              `json:"name"`
	Region            string              `json:"region"`
	Start             time.Time           `json:"start"`
	End               time.Time           `json:"end"`
	Units             []string            `json:"units"`
	Consumers         int                 `json:"consumers"`
	RequiredCapacity  int                 `json:"required_capacity"`
	AllocatedCapacity int                 `json:"allocated_capacity"`
	Coverage          int                 `json:"coverage"`
	TotalDemand       float64             `json:"total_demand"`
	AggregateIndex    float64             `json:"aggregate_index"`
	Urgency           int                 `json:"urgency"`
	Band              UrgencyBand         `json:"band"`
	Status            model.ClusterStatus `json:"status"`
}

// Timeline returns one entry per cluster in window order.
func Timeline(clusters []model.Cluster, schedules []model.Schedule) []TimelineEntry {
	consumers := make(map[string]int)
	for _, sc := range schedules {
		consumers[sc.ClusterID]++
	}
	out := make([]TimelineEntry, 0, len(clusters))
	for _, c := range clusters {
		urgency := int(math.Round(c.AggregateUrgency))
		out = append(out, TimelineEntry{
			ClusterID:         c.ID,
			Name:              c.Name,
			Region:            c.Region,
			Start:             c.Window.Start,
			End:               c.Window.End,
			Units:             c.UnitNames,
			Consumers:         consumers[c.ID],
			RequiredCapacity:  c.RequiredCapacity,
			AllocatedCapacity: c.AllocatedCapacity,
			Coverage:          int(math.Round(float64(c.AllocatedCapacity) / float64(max(c.RequiredCapacity, 1)) * 100)),
			TotalDemand:       c.TotalDemand,
			AggregateIndex:    c.AggregateIndex,
			Urgency:           urgency,
			Band:              BandFor(urgency),
			Status:            c.Status,
		})
	}
	return out
}

// Distribution counts clusters per urgency level.
type Distribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Summary aggregates one scheduling run.
type Summary struct {
	Consumers              int                        `json:"consumers"`
	Clusters               int                        `json:"clusters"`
	TotalDemand            float64                    `json:"total_demand"`
	AllocatedCapacity      int                        `json:"allocated_capacity"`
	RequiredCapacity       int                        `json:"required_capacity"`
	Deficit                int                        `json:"deficit"`
	AllocationRate         float64                    `json:"allocation_rate"`
	AvgConsumersPerCluster float64                    `json:"avg_consumers_per_cluster"`
	AvgDemandPerConsumer   float64                    `json:"avg_demand_per_consumer"`
	DateRange              *model.Window              `json:"date_range"`
	UrgencyDistribution    Distribution               `json:"urgency_distribution"`
	TierDistribution       map[model.PriorityTier]int `json:"tier_distribution"`
}

// Summarize computes run totals. Rates guard against empty inputs and
// DateRange is nil without clusters.
func Summarize(clusters []model.Cluster, schedules []model.Schedule) Summary {
	sum := Summary{
		Consumers: len(schedules),
		Clusters:  len(clusters),
		TierDistribution: map[model.PriorityTier]int{
			model.TierNormal:   0,
			model.TierPriority: 0,
			model.TierPremium:  0,
		},
	}
	for i, c := range clusters {
		sum.TotalDemand += c.TotalDemand
		sum.AllocatedCapacity += c.AllocatedCapacity
		sum.RequiredCapacity += c.RequiredCapacity
		if i == 0 {
			sum.DateRange = &model.Window{Start: c.Window.Start, End: c.Window.End}
		} else {
			if c.Window.Start.Before(sum.DateRange.Start) {
				sum.DateRange.Start = c.Window.Start
			}
			if c.Window.End.After(sum.DateRange.End) {
				sum.DateRange.End = c.Window.End
			}
		}
		switch u := int(math.Round(c.AggregateUrgency)); {
		case u >= 8:
			sum.UrgencyDistribution.High++
		case u >= 5:
			sum.UrgencyDistribution.Medium++
		default:
			sum.UrgencyDistribution.Low++
		}
	}
	for _, sc := range schedules {
		sum.TierDistribution[sc.PriorityTier]++
	}
	sum.TotalDemand = model.Round(sum.TotalDemand, 2)
	sum.Deficit = max(0, sum.RequiredCapacity-sum.AllocatedCapacity)
	sum.AllocationRate = model.Round(float64(sum.AllocatedCapacity)/float64(max(sum.RequiredCapacity, 1))*100, 1)
	sum.AvgConsumersPerCluster = model.Round(float64(sum.Consumers)/float64(max(sum.Clusters, 1)), 1)
	sum.AvgDemandPerConsumer = model.Round(sum.TotalDemand/float64(max(sum.Consumers, 1)), 1)
	return sum
}

// UnitView is the schedule of a single unit.
type UnitView struct {
	UnitID      string           `json:"unit_id"`
	ClusterID   string           `json:"cluster_id"`
	ClusterName string           `json:"cluster_name"`
	Window      model.Window     `json:"window"`
	Consumers   int              `json:"consumers"`
	TotalDemand float64          `json:"total_demand"`
	Schedules   []model.Schedule `json:"schedules"`
}

// UnitSchedule returns the cluster and schedules of unitID. The boolean is
// false when the unit is in no cluster.
func UnitSchedule(unitID string, clusters []model.Cluster, schedules []model.Schedule) (UnitView, bool) {
	for _, c := range clusters {
		if !c.HasUnit(unitID) {
			continue
		}
		v := UnitView{UnitID: unitID, ClusterID: c.ID, ClusterName: c.Name, Window: c.Window}
		for _, sc := range schedules {
			if sc.UnitID == unitID {
				v.Schedules = append(v.Schedules, sc)
				v.TotalDemand += sc.Magnitude
			}
		}
		v.Consumers = len(v.Schedules)
		v.TotalDemand = model.Round(v.TotalDemand, 2)
		return v, true
	}
	return UnitView{}, false
}
