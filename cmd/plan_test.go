package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var readings strings.Builder
	readings.WriteString("unit_id,timestamp,index_value\n")
	start := time.Date(2025, 9, 21, 0, 0, 0, 0, time.UTC)
	for i := 0; i <= 10; i++ {
		fmt.Fprintf(&readings, "u1,%s,%.2f\n", start.AddDate(0, 0, i).Format(time.DateOnly), 0.80-0.02*float64(i))
	}
	files := map[string]string{
		"readings.csv":   readings.String(),
		"units.yaml":     "units:\n  - {id: u1, name: Ludhiana, region: Punjab, lat: 30.9, lon: 75.85}\n",
		"machines.json":  `[{"id":"m1","type":"baler","lat":30.8,"lon":75.8}]`,
		"consumers.yaml": "- {id: c1, unit_id: u1, magnitude: 20}\n",
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
	}
	cfg := fmt.Sprintf(`inputs:
  readings: %q
  units: %q
  machines: %q
  consumers: %q
logging:
  level: error
`, filepath.Join(dir, "readings.csv"), filepath.Join(dir, "units.yaml"),
		filepath.Join(dir, "machines.json"), filepath.Join(dir, "consumers.yaml"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPlanCommand(t *testing.T) {
	cfg := writeFixture(t)
	out, err := runCLI(t, "plan", "-c", cfg, "--now", "2025-10-01")
	require.NoError(t, err)

	var plan struct {
		GeneratedAt time.Time `json:"generated_at"`
		Forecast    struct {
			Predictions []map[string]any `json:"predictions"`
		} `json:"forecast"`
		Schedule *struct {
			Clusters []map[string]any `json:"clusters"`
		} `json:"schedule"`
		Dispatch *struct {
			Allocations []map[string]any `json:"allocations"`
		} `json:"dispatch"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.True(t, plan.GeneratedAt.Equal(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)))
	assert.Len(t, plan.Forecast.Predictions, 1)
	require.NotNil(t, plan.Schedule)
	assert.Len(t, plan.Schedule.Clusters, 1)
	require.NotNil(t, plan.Dispatch)
	assert.Len(t, plan.Dispatch.Allocations, 1)
}

func TestPredictCommandCSV(t *testing.T) {
	cfg := writeFixture(t)
	dir := filepath.Join(t.TempDir(), "out")
	_, err := runCLI(t, "predict", "-c", cfg, "--now", "2025-10-01T00:00:00Z", "--format", "csv", "-o", dir)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "predictions.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "clusters.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestCommandErrors(t *testing.T) {
	cfg := writeFixture(t)
	_, err := runCLI(t, "plan", "-c", cfg, "--now", "tomorrow")
	assert.Error(t, err)
	_, err = runCLI(t, "allocate", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAllocateReplaysPredictions(t *testing.T) {
	cfg := writeFixture(t)
	path := filepath.Join(t.TempDir(), "forecast.json")
	forecast := `[{"unit_id":"u9","unit_name":"Bathinda","location":{"lat":30.2,"lon":74.95},"urgency_score":9,"status":"ready","days_until_event":0}]`
	require.NoError(t, os.WriteFile(path, []byte(forecast), 0o644))

	out, err := runCLI(t, "allocate", "-c", cfg, "--now", "2025-10-01", "--predictions", path)
	require.NoError(t, err)

	var plan struct {
		Forecast struct {
			Predictions []struct {
				UnitID string `json:"unit_id"`
			} `json:"predictions"`
		} `json:"forecast"`
		Dispatch struct {
			Allocations []struct {
				UnitID    string `json:"unit_id"`
				MachineID string `json:"machine_id"`
			} `json:"allocations"`
		} `json:"dispatch"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	require.Len(t, plan.Forecast.Predictions, 1)
	assert.Equal(t, "u9", plan.Forecast.Predictions[0].UnitID)
	require.Len(t, plan.Dispatch.Allocations, 1)
	assert.Equal(t, "m1", plan.Dispatch.Allocations[0].MachineID)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"unit_id":"u9","status":"soon","urgency_score":3}]`), 0o644))
	_, err = runCLI(t, "allocate", "-c", cfg, "--now", "2025-10-01", "--predictions", bad)
	assert.Error(t, err)
}
