package metrics

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	coremetrics "github.com/kilianp07/fieldfleet/core/metrics"
	"github.com/kilianp07/fieldfleet/core/model"
)

// TestInfluxIntegration writes a prediction batch to a disposable InfluxDB
// and reads it back with Flux.
func TestInfluxIntegration(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	if testing.Short() {
		t.Skip("short mode")
	}
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "fieldfleet",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "fieldfleet-pass",
			"DOCKER_INFLUXDB_INIT_ORG":         "org",
			"DOCKER_INFLUXDB_INIT_BUCKET":      "bucket",
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": "token",
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("failed to start container: %v", err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "8086")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}
	url := fmt.Sprintf("http://%s:%s", host, port.Port())

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: url, Token: "token", Org: "org", Bucket: "bucket"})
	influx, ok := sink.(*InfluxSink)
	if !ok {
		t.Fatalf("expected influx sink, got %T", sink)
	}
	defer influx.Close()

	days := 2.0
	batch := coremetrics.PredictionBatch{
		RunID: "it-run",
		Predictions: []model.Prediction{{
			UnitID: "u1", Status: model.StatusPredicted, UrgencyScore: 8,
			CurrentValue: 0.5, DeclineRate: -0.02, Confidence: 0.9, DaysUntilEvent: &days,
		}},
		Time: time.Now().UTC(),
	}
	if err := influx.RecordPredictions(batch); err != nil {
		t.Fatalf("record: %v", err)
	}

	client := influxdb2.NewClient(url, "token")
	defer client.Close()
	res, err := client.QueryAPI("org").Query(ctx, `from(bucket:"bucket")
  |> range(start: -1h)
  |> filter(fn: (r) => r._measurement == "unit_prediction" and r._field == "urgency")`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	found := false
	for res.Next() {
		if res.Record().ValueByKey("unit_id") == "u1" && res.Record().Value() == int64(8) {
			found = true
		}
	}
	if res.Err() != nil {
		t.Fatalf("query result: %v", res.Err())
	}
	if !found {
		t.Fatal("prediction point not found")
	}
}
