package scenarios

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/fieldfleet/app"
	"github.com/kilianp07/fieldfleet/config"
	"github.com/kilianp07/fieldfleet/infra/logger"
	"github.com/kilianp07/fieldfleet/infra/metrics"
)

// Inputs builds the planning inputs of the scenario.
func (s *Scenario) Inputs(t *testing.T) app.Inputs {
	t.Helper()
	now, err := s.Time()
	if err != nil {
		t.Fatalf("scenario time: %v", err)
	}
	var in app.Inputs
	for _, u := range s.Units {
		in.Units = append(in.Units, u.ToModel())
		in.Readings = append(in.Readings, u.Readings(now)...)
	}
	for _, m := range s.Machines {
		in.Machines = append(in.Machines, m.ToModel())
	}
	for _, c := range s.Consumers {
		in.Consumers = append(in.Consumers, c.ToModel())
	}
	return in
}

func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	svc, err := app.New(config.Default(), app.WithSink(sink), app.WithLogger(logger.NopLogger{}))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	now, err := sc.Time()
	if err != nil {
		t.Fatalf("scenario time: %v", err)
	}
	plan, err := svc.Run(context.Background(), sc.Inputs(t), now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	svc.Close()

	exp := sc.Expected
	f := plan.Forecast
	if len(f.Predictions) != exp.Predictions {
		t.Errorf("predictions: got %d want %d", len(f.Predictions), exp.Predictions)
	}
	if len(f.Skipped) != exp.Skipped {
		t.Errorf("skipped: got %d want %d", len(f.Skipped), exp.Skipped)
	}
	if exp.First != "" && (len(f.Predictions) == 0 || f.Predictions[0].UnitID != exp.First) {
		t.Errorf("first prediction: want %s", exp.First)
	}
	if got := len(plan.Schedule.Clusters); got != exp.Clusters {
		t.Errorf("clusters: got %d want %d", got, exp.Clusters)
	}
	if got := len(plan.Schedule.Schedules); got != exp.Schedules {
		t.Errorf("schedules: got %d want %d", got, exp.Schedules)
	}
	if exp.Deficit != nil && plan.Schedule.Summary.Deficit != *exp.Deficit {
		t.Errorf("deficit: got %d want %d", plan.Schedule.Summary.Deficit, *exp.Deficit)
	}

	d := plan.Dispatch
	if len(d.Allocations) != exp.Allocated || len(d.Unallocated) != exp.Unallocated {
		t.Errorf("allocations: got %d/%d want %d/%d", len(d.Allocations), len(d.Unallocated), exp.Allocated, exp.Unallocated)
	}
	if len(d.Allocations)+len(d.Unallocated) != len(f.Predictions) {
		t.Errorf("allocation count does not match predictions")
	}
	assigned := make(map[string]string, len(d.Allocations))
	for _, a := range d.Allocations {
		assigned[a.UnitID] = a.MachineID
	}
	for unit, machine := range exp.Assignments {
		if assigned[unit] != machine {
			t.Errorf("unit %s: got machine %q want %q", unit, assigned[unit], machine)
		}
	}

	if got := sum(t, reg, "fieldfleet_allocations_total"); got != float64(exp.Allocated) {
		t.Errorf("allocations metric: got %v want %d", got, exp.Allocated)
	}
	if got := sum(t, reg, "fieldfleet_predictions_total"); got != float64(exp.Predictions) {
		t.Errorf("predictions metric: got %v want %d", got, exp.Predictions)
	}
}

// sum adds the counter values of every series of a metric family.
func sum(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	families, err := g.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
