package scheduler

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/kilianp07/fieldfleet/core/logger"
	"github.com/kilianp07/fieldfleet/core/model"
)

const day = 24 * time.Hour

// Scheduler builds deployment clusters and consumer schedules.
type Scheduler struct {
	cfg Config
	log logger.Logger
}

// New returns a Scheduler. Zero config fields take their defaults.
func New(cfg Config, log logger.Logger) (*Scheduler, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{cfg: cfg, log: logger.OrNop(log)}, nil
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config { return s.cfg }

func (s *Scheduler) window() time.Duration {
	return time.Duration(s.cfg.WindowDays) * day
}

// CreateClusters sweeps fixed windows over the predicted dates. Each
// non-empty window becomes a cluster sized from the demand of the consumers
// linked to its units. Predictions without a date are ignored.
func (s *Scheduler) CreateClusters(preds []model.Prediction, consumers []model.ConsumerRecord, machines []model.Machine, now time.Time) []model.Cluster {
	dated := make([]model.Prediction, 0, len(preds))
	for _, p := range preds {
		if p.Schedulable() {
			dated = append(dated, p)
		}
	}
	if len(dated) == 0 {
		return nil
	}
	sort.SliceStable(dated, func(i, j int) bool {
		a, b := *dated[i].PredictedDate, *dated[j].PredictedDate
		if !a.Equal(b) {
			return a.Before(b)
		}
		return dated[i].UnitID < dated[j].UnitID
	})

	demand := make(map[string]float64)
	for _, c := range consumers {
		demand[c.UnitID] += c.Magnitude
	}
	available := model.CountAvailable(machines)
	win := s.window()

	first := dated[0].PredictedDate.UTC()
	start := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)

	var clusters []model.Cluster
	for i := 0; i < len(dated); {
		start = s.windowStart(start, *dated[i].PredictedDate)
		end := start.Add(win)
		j := i
		for j < len(dated) && dated[j].PredictedDate.Before(end) {
			j++
		}
		if j == i {
			start = end
			continue
		}
		c := s.buildCluster(len(clusters)+1, dated[i:j], demand, available, model.Window{Start: start, End: end}, now)
		clusters = append(clusters, c)
		i = j
		start = end
	}

	s.log.Debugw("clusters created", map[string]any{
		"clusters":  len(clusters),
		"scheduled": len(dated),
		"available": available,
	})
	return clusters
}

// windowStart returns the start of the grid window holding date, skipping
// empty windows in one step. Whole windows are counted from Unix seconds
// because time.Time.Sub saturates for dates centuries apart.
func (s *Scheduler) windowStart(start, date time.Time) time.Time {
	elapsed := date.Unix() - start.Unix()
	width := int64(s.cfg.WindowDays) * 86400
	if elapsed < width {
		return start
	}
	return start.AddDate(0, 0, int(elapsed/width)*s.cfg.WindowDays)
}

func (s *Scheduler) buildCluster(n int, members []model.Prediction, demand map[string]float64, available int, w model.Window, now time.Time) model.Cluster {
	c := model.Cluster{
		ID:     fmt.Sprintf("cluster_%02d", n),
		Name:   fmt.Sprintf("Cluster %c - %s", 'A'+rune((n-1)%26), members[0].UnitName),
		Window: w,
		Status: statusAt(w, now),
	}
	regions := make(map[string]struct{})
	var index, urgency float64
	for _, p := range members {
		c.UnitIDs = append(c.UnitIDs, p.UnitID)
		c.UnitNames = append(c.UnitNames, p.UnitName)
		if p.Region != "" {
			regions[p.Region] = struct{}{}
		}
		index += p.CurrentValue
		urgency += float64(p.UrgencyScore)
		c.TotalDemand += demand[p.UnitID]
	}
	for r := range regions {
		c.Regions = append(c.Regions, r)
	}
	sort.Strings(c.Regions)
	c.Region = strings.Join(c.Regions, ", ")
	c.AggregateIndex = model.Round(index/float64(len(members)), 4)
	c.AggregateUrgency = model.Round(urgency/float64(len(members)), 2)
	c.TotalDemand = model.Round(c.TotalDemand, 2)

	perMachine := s.cfg.ThroughputPerMachinePerDay * float64(s.cfg.WindowDays)
	c.RequiredCapacity = s.cfg.MinCapacity
	if need := int(math.Ceil(c.TotalDemand / perMachine)); need > c.RequiredCapacity {
		c.RequiredCapacity = need
	}
	c.AllocatedCapacity = min(c.RequiredCapacity, available)
	return c
}

func statusAt(w model.Window, now time.Time) model.ClusterStatus {
	switch {
	case now.Before(w.Start):
		return model.ClusterPending
	case now.Before(w.End):
		return model.ClusterActive
	default:
		return model.ClusterCompleted
	}
}

// TierFor classifies a tier basis value against the configured thresholds.
func (s *Scheduler) TierFor(basis float64) model.PriorityTier {
	switch {
	case basis >= s.cfg.PremiumThreshold:
		return model.TierPremium
	case basis >= s.cfg.PriorityThreshold:
		return model.TierPriority
	default:
		return model.TierNormal
	}
}

// AssignConsumers emits one schedule per consumer whose unit belongs to a
// cluster, in roster order. Consumers of unclustered units are skipped.
func (s *Scheduler) AssignConsumers(clusters []model.Cluster, consumers []model.ConsumerRecord, preds []model.Prediction) []model.Schedule {
	byUnit := make(map[string]*model.Cluster)
	for i := range clusters {
		for _, id := range clusters[i].UnitIDs {
			byUnit[id] = &clusters[i]
		}
	}
	idx := model.PredictionIndex(preds)
	offset := min(s.cfg.FallbackOffsetDays, s.cfg.WindowDays-1)

	var out []model.Schedule
	for _, c := range consumers {
		cl, ok := byUnit[c.UnitID]
		if !ok {
			continue
		}
		optimal := cl.Window.Start.Add(time.Duration(offset) * day)
		region := cl.Region
		if p, ok := idx[c.UnitID]; ok {
			if p.PredictedDate != nil && cl.Window.Contains(*p.PredictedDate) {
				optimal = *p.PredictedDate
			}
			if p.Region != "" {
				region = p.Region
			}
		}
		tier := s.TierFor(c.TierBasis())
		out = append(out, model.Schedule{
			ConsumerID:   c.ID,
			ConsumerName: c.Name,
			UnitID:       c.UnitID,
			Region:       region,
			ClusterID:    cl.ID,
			Window:       cl.Window,
			OptimalDate:  optimal,
			Magnitude:    c.Magnitude,
			PriorityTier: tier,
			PriorityFlag: tier != model.TierNormal,
		})
	}
	return out
}
