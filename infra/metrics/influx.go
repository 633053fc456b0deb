package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fieldfleet/core/metrics"
	"github.com/kilianp07/fieldfleet/core/model"
	"github.com/kilianp07/fieldfleet/infra/logger"
)

// InfluxConfig holds the InfluxDB connection settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes planning runs to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client resources.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func (s *InfluxSink) write(points []*write.Point) error {
	if len(points) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, points...)
}

// PredictionPoint converts a prediction to its line protocol point.
func PredictionPoint(runID string, p model.Prediction, at time.Time) *write.Point {
	pt := write.NewPointWithMeasurement("unit_prediction").
		AddTag("run_id", runID).
		AddTag("unit_id", p.UnitID).
		AddTag("status", string(p.Status))
	if p.Region != "" {
		pt.AddTag("region", p.Region)
	}
	pt.AddField("urgency", p.UrgencyScore).
		AddField("current_index", model.Round(p.CurrentValue, 4)).
		AddField("decline_rate", model.Round(p.DeclineRate, 5)).
		AddField("confidence", model.Round(p.Confidence, 4))
	if p.DaysUntilEvent != nil {
		pt.AddField("days_until_event", model.Round(*p.DaysUntilEvent, 2))
	}
	return pt.SetTime(at)
}

// RecordPredictions writes one point per prediction.
func (s *InfluxSink) RecordPredictions(b coremetrics.PredictionBatch) error {
	points := make([]*write.Point, 0, len(b.Predictions))
	for _, p := range b.Predictions {
		points = append(points, PredictionPoint(b.RunID, p, b.Time))
	}
	return s.write(points)
}

// ClusterPoint converts a cluster to its line protocol point.
func ClusterPoint(runID string, c model.Cluster, at time.Time) *write.Point {
	return write.NewPointWithMeasurement("deployment_cluster").
		AddTag("run_id", runID).
		AddTag("cluster_id", c.ID).
		AddTag("status", string(c.Status)).
		AddField("units", len(c.UnitIDs)).
		AddField("required", c.RequiredCapacity).
		AddField("allocated", c.AllocatedCapacity).
		AddField("demand", model.Round(c.TotalDemand, 2)).
		AddField("urgency", model.Round(c.AggregateUrgency, 2)).
		AddField("window_start", c.Window.Start.Unix()).
		SetTime(at)
}

// RecordClusters writes one point per cluster.
func (s *InfluxSink) RecordClusters(b coremetrics.ClusterBatch) error {
	points := make([]*write.Point, 0, len(b.Clusters))
	for _, c := range b.Clusters {
		points = append(points, ClusterPoint(b.RunID, c, b.Time))
	}
	return s.write(points)
}

// AllocationPoint converts an allocation to its line protocol point.
func AllocationPoint(runID string, a model.Allocation, at time.Time) *write.Point {
	return write.NewPointWithMeasurement("machine_allocation").
		AddTag("run_id", runID).
		AddTag("unit_id", a.UnitID).
		AddTag("machine_id", a.MachineID).
		AddTag("machine_type", string(a.MachineType)).
		AddField("distance_km", a.DistanceKM).
		AddField("eta_hours", a.ETAHours).
		AddField("urgency", a.UrgencyScore).
		SetTime(at)
}

// RecordAllocations writes one point per allocation and a run summary point.
func (s *InfluxSink) RecordAllocations(b coremetrics.AllocationBatch) error {
	points := make([]*write.Point, 0, len(b.Allocations)+1)
	for _, a := range b.Allocations {
		points = append(points, AllocationPoint(b.RunID, a, b.Time))
	}
	points = append(points, write.NewPointWithMeasurement("allocation_run").
		AddTag("run_id", b.RunID).
		AddField("allocated", len(b.Allocations)).
		AddField("unallocated", len(b.Unallocated)).
		AddField("remaining", b.Remaining).
		SetTime(b.Time))
	return s.write(points)
}

// RecordStage writes the stage duration.
func (s *InfluxSink) RecordStage(ev coremetrics.StageTiming) error {
	return s.write([]*write.Point{write.NewPointWithMeasurement("pipeline_stage").
		AddTag("run_id", ev.RunID).
		AddTag("stage", ev.Stage).
		AddField("duration_ms", model.Round(ev.Duration.Seconds()*1000, 3)).
		SetTime(ev.Time)})
}
