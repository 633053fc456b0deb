// Package export writes plan records as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/fieldfleet/core/model"
)

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func num(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func optTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func optNum(v *float64) string {
	if v == nil {
		return ""
	}
	return num(*v)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WritePredictionsCSV writes one row per prediction.
func WritePredictionsCSV(w io.Writer, preds []model.Prediction) error {
	rows := make([][]string, 0, len(preds))
	for _, p := range preds {
		rows = append(rows, []string{
			p.UnitID,
			p.UnitName,
			p.Region,
			string(p.Status),
			num(p.CurrentValue),
			num(p.DeclineRate),
			num(p.Confidence),
			string(p.Trend),
			optTime(p.PredictedDate),
			optNum(p.DaysUntilEvent),
			strconv.Itoa(p.UrgencyScore),
		})
	}
	return writeCSV(w, []string{"unit_id", "unit_name", "region", "status", "current_index", "decline_rate",
		"confidence", "trend", "predicted_date", "days_until_event", "urgency_score"}, rows)
}

// WriteClustersCSV writes one row per cluster.
func WriteClustersCSV(w io.Writer, clusters []model.Cluster) error {
	rows := make([][]string, 0, len(clusters))
	for _, c := range clusters {
		rows = append(rows, []string{
			c.ID,
			c.Name,
			c.Region,
			c.Window.Start.Format(time.DateOnly),
			c.Window.End.Format(time.DateOnly),
			strings.Join(c.UnitIDs, ";"),
			num(c.AggregateIndex),
			num(c.AggregateUrgency),
			num(c.TotalDemand),
			strconv.Itoa(c.RequiredCapacity),
			strconv.Itoa(c.AllocatedCapacity),
			string(c.Status),
		})
	}
	return writeCSV(w, []string{"cluster_id", "name", "region", "window_start", "window_end", "units",
		"aggregate_index", "aggregate_urgency", "total_demand", "required_capacity", "allocated_capacity", "status"}, rows)
}

// WriteSchedulesCSV writes one row per consumer schedule.
func WriteSchedulesCSV(w io.Writer, schedules []model.Schedule) error {
	rows := make([][]string, 0, len(schedules))
	for _, s := range schedules {
		rows = append(rows, []string{
			s.ConsumerID,
			s.ConsumerName,
			s.UnitID,
			s.Region,
			s.ClusterID,
			s.Window.Start.Format(time.DateOnly),
			s.Window.End.Format(time.DateOnly),
			s.OptimalDate.Format(time.DateOnly),
			num(s.Magnitude),
			string(s.PriorityTier),
			strconv.FormatBool(s.PriorityFlag),
		})
	}
	return writeCSV(w, []string{"consumer_id", "consumer_name", "unit_id", "region", "cluster_id",
		"window_start", "window_end", "optimal_date", "magnitude", "priority_tier", "priority_flag"}, rows)
}

// WriteAllocationsCSV writes allocated units followed by unallocated ones,
// which carry an empty machine and the reason.
func WriteAllocationsCSV(w io.Writer, allocs []model.Allocation, unallocated []model.UnallocatedRecord) error {
	rows := make([][]string, 0, len(allocs)+len(unallocated))
	for _, a := range allocs {
		rows = append(rows, []string{
			a.UnitID,
			a.UnitName,
			a.MachineID,
			string(a.MachineType),
			num(a.DistanceKM),
			num(a.ETAHours),
			strconv.Itoa(a.UrgencyScore),
			optTime(a.PredictedDate),
			"",
		})
	}
	for _, u := range unallocated {
		rows = append(rows, []string{u.UnitID, u.UnitName, "", "", "", "", strconv.Itoa(u.UrgencyScore), "", u.Reason})
	}
	return writeCSV(w, []string{"unit_id", "unit_name", "machine_id", "machine_type", "distance_km",
		"eta_hours", "urgency_score", "predicted_date", "reason"}, rows)
}
