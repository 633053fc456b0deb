package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kilianp07/fieldfleet/config"
	"github.com/kilianp07/fieldfleet/pkg/export"
)

// WritePlan writes the plan as configured. JSON goes to the output path or
// to stdout when no path is set. CSV writes one file per record kind into
// the output directory.
func WritePlan(plan *Plan, cfg config.OutputConfig, stdout io.Writer) error {
	if cfg.Format == "csv" {
		return writeCSVDir(plan, cfg.Path)
	}
	if cfg.Path == "" {
		return export.WriteJSON(stdout, plan)
	}
	f, err := os.Create(cfg.Path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := export.WriteJSON(f, plan); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeCSVDir(plan *Plan, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	files := map[string]func(io.Writer) error{
		"predictions.csv": func(w io.Writer) error { return export.WritePredictionsCSV(w, plan.Forecast.Predictions) },
	}
	if plan.Schedule != nil {
		files["clusters.csv"] = func(w io.Writer) error { return export.WriteClustersCSV(w, plan.Schedule.Clusters) }
		files["schedules.csv"] = func(w io.Writer) error { return export.WriteSchedulesCSV(w, plan.Schedule.Schedules) }
	}
	if plan.Dispatch != nil {
		files["allocations.csv"] = func(w io.Writer) error {
			return export.WriteAllocationsCSV(w, plan.Dispatch.Allocations, plan.Dispatch.Unallocated)
		}
	}
	for name, write := range files {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if err := write(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
