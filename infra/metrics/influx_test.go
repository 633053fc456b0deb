package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/fieldfleet/core/factory"
	coremetrics "github.com/kilianp07/fieldfleet/core/metrics"
	"github.com/kilianp07/fieldfleet/core/model"
)

type lineRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (l *lineRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		l.mu.Lock()
		l.bodies = append(l.bodies, strings.TrimSpace(string(b)))
		l.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (l *lineRecorder) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.bodies...)
}

// single returns the only request body, failing when there is not exactly one.
func (l *lineRecorder) single(t *testing.T) string {
	t.Helper()
	bodies := l.all()
	if len(bodies) != 1 {
		t.Fatalf("expected one write, got %d", len(bodies))
	}
	return bodies[0]
}

// assertLine checks the measurement and fragments without relying on tag order.
func assertLine(t *testing.T, line, prefix string, fields ...string) {
	t.Helper()
	if !strings.HasPrefix(line, prefix) {
		t.Errorf("line %q does not start with %q", line, prefix)
	}
	for _, f := range fields {
		if !strings.Contains(line, f) {
			t.Errorf("line %q misses %q", line, f)
		}
	}
}

func TestInfluxSink_RecordPredictions(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	days := 4.5
	pred := model.Prediction{
		UnitID: "u1", Region: "north", Status: model.StatusPredicted,
		UrgencyScore: 7, CurrentValue: 0.52, DeclineRate: -0.02, Confidence: 0.91, DaysUntilEvent: &days,
	}
	if err := sink.RecordPredictions(coremetrics.PredictionBatch{RunID: "run-1", Predictions: []model.Prediction{pred}, Time: now}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	assertLine(t, rec.single(t), "unit_prediction,",
		"run_id=run-1", "unit_id=u1", "status=predicted", "region=north",
		"urgency=7i", "current_index=0.52", "decline_rate=-0.02", "confidence=0.91", "days_until_event=4.5",
		strconv.FormatInt(now.UnixNano(), 10))

	// the builder leaves out the event horizon when there is none
	ready := PredictionPoint("run-1", model.Prediction{UnitID: "u2", Status: model.StatusNotDeclining}, now)
	if line := write.PointToLineProtocol(ready, time.Nanosecond); strings.Contains(line, "days_until_event") || strings.Contains(line, "region=") {
		t.Errorf("unexpected optional values in %q", line)
	}
}

func TestInfluxSink_RecordAllocations(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	a := model.Allocation{UnitID: "u1", MachineID: "m1", MachineType: model.MachineBaler, DistanceKM: 12.5, ETAHours: 0.4, UrgencyScore: 8}
	batch := coremetrics.AllocationBatch{RunID: "run-1", Allocations: []model.Allocation{a}, Unallocated: []model.UnallocatedRecord{{UnitID: "u2"}}, Remaining: 3, Time: now}
	if err := sink.RecordAllocations(batch); err != nil {
		t.Fatalf("record error: %v", err)
	}
	lines := strings.Split(rec.single(t), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", lines)
	}
	assertLine(t, lines[0], "machine_allocation,",
		"machine_id=m1", "machine_type=baler", "distance_km=12.5", "eta_hours=0.4", "urgency=8i")
	assertLine(t, lines[1], "allocation_run,", "run_id=run-1", "allocated=1i", "unallocated=1i", "remaining=3i")
}

func TestInfluxSink_EmptyBatchWritesNothing(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "bucket"})
	defer sink.Close()
	if err := sink.RecordClusters(coremetrics.ClusterBatch{}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if n := len(rec.all()); n != 0 {
		t.Fatalf("expected no request, got %d", n)
	}
}

func TestInfluxSink_RecordClustersAndStage(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "bucket"})
	defer sink.Close()
	now := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	c := model.Cluster{ID: "cluster_01", UnitIDs: []string{"u1", "u2"}, RequiredCapacity: 3, AllocatedCapacity: 2,
		TotalDemand: 42, AggregateUrgency: 6.5, Status: model.ClusterPending, Window: model.Window{Start: now, End: now.AddDate(0, 0, 5)}}
	if err := sink.RecordClusters(coremetrics.ClusterBatch{RunID: "r", Clusters: []model.Cluster{c}, Time: now}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := sink.RecordStage(coremetrics.StageTiming{RunID: "r", Stage: "allocate", Duration: 1500 * time.Microsecond, Time: now}); err != nil {
		t.Fatalf("record: %v", err)
	}
	bodies := rec.all()
	if len(bodies) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(bodies))
	}
	assertLine(t, bodies[0], "deployment_cluster,",
		"cluster_id=cluster_01", "status=pending", "units=2i", "required=3i", "allocated=2i", "demand=42", "urgency=6.5")
	assertLine(t, bodies[1], "pipeline_stage,", "stage=allocate", "duration_ms=1.5")
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	var called atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called.Store(true)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL, Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called.Load() {
		t.Fatalf("health endpoint not called")
	}
}

func TestBuiltinSinksRegistered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sink, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{
		{Type: "nop"},
		{Type: "influx", Conf: map[string]any{"url": srv.URL, "org": "org", "bucket": "bucket"}},
	})
	if err != nil {
		t.Fatalf("create sinks: %v", err)
	}
	multi, ok := sink.(*coremetrics.MultiSink)
	if !ok || len(multi.Sinks) != 2 {
		t.Fatalf("expected two sinks, got %#v", sink)
	}
	if _, ok := multi.Sinks[1].(coremetrics.NopSink); !ok {
		t.Errorf("unreachable influx should fall back to NopSink, got %T", multi.Sinks[1])
	}
}
