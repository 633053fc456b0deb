package metrics

import (
	"time"

	"github.com/kilianp07/fieldfleet/core/model"
)

// PredictionBatch is the predictor output of one run.
type PredictionBatch struct {
	RunID       string
	Predictions []model.Prediction
	Skipped     int
	Time        time.Time
}

// MetricsSink records planning runs for observability purposes.
type MetricsSink interface {
	RecordPredictions(batch PredictionBatch) error
}

// ClusterBatch is the scheduler output of one run.
type ClusterBatch struct {
	RunID     string
	Clusters  []model.Cluster
	Schedules int
	Time      time.Time
}

// ClusterRecorder records deployment clusters.
type ClusterRecorder interface {
	RecordClusters(batch ClusterBatch) error
}

// AllocationBatch is the allocator output of one run.
type AllocationBatch struct {
	RunID       string
	Allocations []model.Allocation
	Unallocated []model.UnallocatedRecord
	Remaining   int
	Time        time.Time
}

// AllocationRecorder records machine allocations.
type AllocationRecorder interface {
	RecordAllocations(batch AllocationBatch) error
}

// StageTiming is the duration of one pipeline stage.
type StageTiming struct {
	RunID    string
	Stage    string
	Duration time.Duration
	Time     time.Time
}

// StageRecorder records stage durations.
type StageRecorder interface {
	RecordStage(ev StageTiming) error
}

// NopSink implements MetricsSink and every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPredictions(PredictionBatch) error { return nil }
func (NopSink) RecordClusters(ClusterBatch) error       { return nil }
func (NopSink) RecordAllocations(AllocationBatch) error { return nil }
func (NopSink) RecordStage(StageTiming) error           { return nil }
