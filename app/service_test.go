package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fieldfleet/config"
	"github.com/kilianp07/fieldfleet/core/events"
	coremetrics "github.com/kilianp07/fieldfleet/core/metrics"
	"github.com/kilianp07/fieldfleet/core/model"
	"github.com/kilianp07/fieldfleet/infra/logger"
	"github.com/kilianp07/fieldfleet/pkg/export"
)

var now = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

type recordingSink struct {
	mu          sync.Mutex
	predictions []coremetrics.PredictionBatch
	clusters    []coremetrics.ClusterBatch
	allocations []coremetrics.AllocationBatch
	stages      []string
}

func (r *recordingSink) RecordPredictions(b coremetrics.PredictionBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictions = append(r.predictions, b)
	return nil
}

func (r *recordingSink) RecordClusters(b coremetrics.ClusterBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clusters = append(r.clusters, b)
	return nil
}

func (r *recordingSink) RecordAllocations(b coremetrics.AllocationBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allocations = append(r.allocations, b)
	return nil
}

func (r *recordingSink) RecordStage(t coremetrics.StageTiming) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, t.Stage)
	return nil
}

func series(id string, start, step float64, days int) []model.Reading {
	var out []model.Reading
	for i := 0; i <= days; i++ {
		out = append(out, model.Reading{
			UnitID:    id,
			Timestamp: now.Add(time.Duration(i-days) * 24 * time.Hour),
			Value:     start + step*float64(i),
		})
	}
	return out
}

func fixture() Inputs {
	var readings []model.Reading
	readings = append(readings, series("u1", 0.80, -0.02, 10)...)
	readings = append(readings, series("u2", 0.56, -0.015, 8)...)
	readings = append(readings, series("u3", 0.70, -0.01, 2)...)
	readings = append(readings, series("u4", 0.38, -0.001, 9)...)
	readings = append(readings, model.Reading{UnitID: "ghost", Timestamp: now, Value: 0.5})
	return Inputs{
		Readings: readings,
		Units: []model.Unit{
			{ID: "u1", Name: "Ludhiana", Region: "Punjab", Location: model.Location{Lat: 30.90, Lon: 75.85}},
			{ID: "u2", Name: "Karnal", Region: "Haryana", Location: model.Location{Lat: 29.69, Lon: 76.99}, PreferredType: model.MachineBaler},
			{ID: "u3", Name: "Patiala", Region: "Punjab", Location: model.Location{Lat: 30.34, Lon: 76.39}},
			{ID: "u4", Name: "Sangrur", Region: "Punjab", Location: model.Location{Lat: 30.25, Lon: 75.84}},
		},
		Machines: []model.Machine{
			{ID: "m1", Type: model.MachineHappySeeder, Location: model.Location{Lat: 30.80, Lon: 75.80}, CapacityPerPeriod: 8, Available: true},
			{ID: "m2", Type: model.MachineBaler, Location: model.Location{Lat: 29.50, Lon: 77.00}, CapacityPerPeriod: 10, Available: true},
		},
		Consumers: []model.ConsumerRecord{
			{ID: "c1", Name: "Singh", UnitID: "u1", Magnitude: 30},
			{ID: "c2", Name: "Kaur", UnitID: "u2", Magnitude: 12},
			{ID: "c3", Name: "Gill", UnitID: "u2", Magnitude: 4, TierInput: 18},
		},
	}
}

func newService(t *testing.T, sink coremetrics.MetricsSink) *Service {
	t.Helper()
	cfg := config.Default()
	n := 0
	svc, err := New(cfg, WithSink(sink), WithLogger(logger.NopLogger{}), WithRunIDs(func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}))
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func TestRunPipeline(t *testing.T) {
	sink := &recordingSink{}
	svc := newService(t, sink)
	in := fixture()

	plan, err := svc.Run(context.Background(), in, now)
	require.NoError(t, err)

	f := plan.Forecast
	require.Len(t, f.Predictions, 3)
	assert.Equal(t, []string{"u3"}, f.Skipped)
	assert.Equal(t, []string{"ghost"}, f.Orphans)
	// u2 is close to the threshold and falling fast
	assert.Equal(t, "u2", f.Predictions[0].UnitID)
	for _, p := range f.Predictions {
		if p.UnitID == "u4" {
			assert.Equal(t, model.StatusReady, p.Status)
			assert.Nil(t, p.PredictedDate)
		}
	}

	require.NotNil(t, plan.Schedule)
	// the ready unit has no date and is not clustered
	require.Len(t, plan.Schedule.Clusters, 2)
	for i := 1; i < len(plan.Schedule.Clusters); i++ {
		prev, cur := plan.Schedule.Clusters[i-1].Window, plan.Schedule.Clusters[i].Window
		assert.False(t, prev.Overlaps(cur))
		assert.True(t, prev.Start.Before(cur.Start))
	}
	assert.Len(t, plan.Schedule.Schedules, 3)

	require.NotNil(t, plan.Dispatch)
	d := plan.Dispatch
	assert.Equal(t, len(f.Predictions), len(d.Allocations)+len(d.Unallocated))
	assert.Len(t, d.Allocations, 2)
	for _, a := range d.Allocations {
		if a.UnitID == "u2" {
			assert.Equal(t, "m2", a.MachineID)
		}
	}
	// caller roster untouched
	assert.True(t, in.Machines[0].Available)
	assert.True(t, in.Machines[1].Available)

	svc.Close()
	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.predictions, 1)
	assert.Equal(t, 1, sink.predictions[0].Skipped)
	assert.Equal(t, "run-1", sink.predictions[0].RunID)
	assert.Len(t, sink.clusters, 1)
	assert.Len(t, sink.allocations, 1)
	assert.Equal(t, []string{"predict", "schedule", "allocate"}, sink.stages)
}

func TestRunIsIdempotent(t *testing.T) {
	svc := newService(t, coremetrics.NopSink{})
	in := fixture()

	var out [2]bytes.Buffer
	for i := range out {
		plan, err := svc.Run(context.Background(), in, now)
		require.NoError(t, err)
		require.NoError(t, export.WriteJSON(&out[i], plan))
	}
	assert.Equal(t, out[0].String(), out[1].String())
}

func TestRunRejectsInvalidRoster(t *testing.T) {
	sink := &recordingSink{}
	svc := newService(t, sink)
	in := fixture()
	in.Machines = append(in.Machines, model.Machine{ID: "m3", Type: model.MachineBaler, Location: model.Location{Lat: 91}})

	_, err := svc.Run(context.Background(), in, now)
	assert.ErrorIs(t, err, model.ErrInvalidMachine)

	in = fixture()
	in.Consumers = append(in.Consumers, model.ConsumerRecord{ID: "c9"})
	_, err = svc.Run(context.Background(), in, now)
	assert.ErrorIs(t, err, model.ErrInvalidConsumer)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Empty(t, sink.predictions)
}

func TestPredictAndAllocateOnly(t *testing.T) {
	svc := newService(t, coremetrics.NopSink{})
	plan, err := svc.Predict(context.Background(), fixture(), now)
	require.NoError(t, err)
	assert.Nil(t, plan.Schedule)
	assert.Nil(t, plan.Dispatch)
	assert.Len(t, plan.Forecast.Predictions, 3)

	plan, err = svc.Allocate(context.Background(), fixture(), now)
	require.NoError(t, err)
	assert.Nil(t, plan.Schedule)
	require.NotNil(t, plan.Dispatch)
	assert.Equal(t, 3, plan.Dispatch.Summary.Predictions)
}

func TestRunCanceled(t *testing.T) {
	svc := newService(t, coremetrics.NopSink{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Run(ctx, fixture(), now)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmptyInputs(t *testing.T) {
	svc := newService(t, coremetrics.NopSink{})
	plan, err := svc.Run(context.Background(), Inputs{}, now)
	require.NoError(t, err)
	assert.Empty(t, plan.Forecast.Predictions)
	assert.Empty(t, plan.Schedule.Clusters)
	assert.Nil(t, plan.Schedule.Summary.DateRange)
	assert.Empty(t, plan.Dispatch.Allocations)

	var buf bytes.Buffer
	require.NoError(t, export.WriteJSON(&buf, plan))
	assert.Contains(t, buf.String(), `"clusters": []`)
}

func TestWritePlan(t *testing.T) {
	svc := newService(t, coremetrics.NopSink{})
	plan, err := svc.Run(context.Background(), fixture(), now)
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.NoError(t, WritePlan(plan, config.OutputConfig{Format: "json"}, &stdout))
	assert.Contains(t, stdout.String(), `"generated_at": "2025-10-01T00:00:00Z"`)

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "plan.json")
	require.NoError(t, WritePlan(plan, config.OutputConfig{Format: "json", Path: jsonPath}, nil))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, stdout.String(), string(data))

	csvDir := filepath.Join(dir, "csv")
	require.NoError(t, WritePlan(plan, config.OutputConfig{Format: "csv", Path: csvDir}, nil))
	for _, name := range []string{"predictions.csv", "clusters.csv", "schedules.csv", "allocations.csv"} {
		_, err := os.Stat(filepath.Join(csvDir, name))
		assert.NoError(t, err, name)
	}
}

func TestLoadInputs(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
		return p
	}
	cfg := config.InputsConfig{
		Readings: write("r.csv", "unit_id,timestamp,index_value\nu1,2025-09-01,0.8\n"),
		Units:    write("u.yaml", "- {id: u1, lat: 30, lon: 75}\n"),
	}
	in, err := LoadInputs(cfg)
	require.NoError(t, err)
	assert.Len(t, in.Readings, 1)
	assert.Empty(t, in.Machines)

	cfg.Machines = write("m.json", `[{"id":"m1","type":"baler"}]`)
	_, err = LoadInputs(cfg)
	assert.ErrorIs(t, err, model.ErrInvalidMachine)
}

func TestRunPublishesOneSkipEventPerReason(t *testing.T) {
	svc := newService(t, &recordingSink{})
	sub := svc.Bus().Subscribe()

	in := fixture()
	for i := 0; i < 150; i++ {
		id := fmt.Sprintf("s%03d", i)
		in.Units = append(in.Units, model.Unit{ID: id, Location: model.Location{Lat: 30, Lon: 75}})
		in.Readings = append(in.Readings, series(id, 0.7, -0.01, 1)...)
	}
	_, err := svc.Run(context.Background(), in, now)
	require.NoError(t, err)

	skips := make(map[string][]string)
	var stages []string
	for done := false; !done; {
		select {
		case ev := <-sub:
			switch e := ev.(type) {
			case events.SkipEvent:
				skips[e.Reason] = e.UnitIDs
			case events.StageEvent:
				stages = append(stages, e.Stage)
			}
		default:
			done = true
		}
	}
	assert.Equal(t, []string{events.StagePredict, events.StageSchedule, events.StageAllocate}, stages)
	assert.Len(t, skips[events.ReasonInsufficientData], 151)
	assert.Equal(t, []string{"ghost"}, skips[events.ReasonUnknownUnit])
	assert.Len(t, skips[events.ReasonUnallocated], 1)
	assert.Zero(t, svc.Bus().Dropped())
}

func TestRunReplaysSavedForecast(t *testing.T) {
	svc := newService(t, coremetrics.NopSink{})
	orig, err := svc.Run(context.Background(), fixture(), now)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, WritePlan(orig, config.OutputConfig{Format: "json", Path: path}, nil))
	cfg := config.InputsConfig{Predictions: path}
	in, err := LoadInputs(cfg)
	require.NoError(t, err)
	require.Len(t, in.Predictions, 3)
	assert.Empty(t, in.Readings)
	assert.Nil(t, Inputs{}.Engine())

	f := fixture()
	in.Machines, in.Consumers = f.Machines, f.Consumers
	replay, err := New(config.Default(), WithSink(coremetrics.NopSink{}), WithLogger(logger.NopLogger{}), WithEngine(in.Engine()))
	require.NoError(t, err)
	t.Cleanup(replay.Close)
	plan, err := replay.Run(context.Background(), in, now)
	require.NoError(t, err)

	encode := func(v any) string {
		var buf bytes.Buffer
		require.NoError(t, export.WriteJSON(&buf, v))
		return buf.String()
	}
	assert.Equal(t, encode(orig.Forecast.Predictions), encode(plan.Forecast.Predictions))
	assert.Equal(t, encode(orig.Schedule), encode(plan.Schedule))
	assert.Equal(t, encode(orig.Dispatch), encode(plan.Dispatch))
	assert.Empty(t, plan.Forecast.Skipped)
}

func TestValidateRejectsBadForecast(t *testing.T) {
	in := Inputs{Predictions: []model.Prediction{{UnitID: "u1", UrgencyScore: 5, Status: model.StatusPredicted}}}
	assert.ErrorIs(t, in.Validate(), model.ErrInvalidPrediction)
}
