package metrics

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPredictions forwards the batch to all sinks, returning the first error encountered.
func (m *MultiSink) RecordPredictions(b PredictionBatch) error {
	for _, s := range m.Sinks {
		if err := s.RecordPredictions(b); err != nil {
			return err
		}
	}
	return nil
}

// RecordClusters forwards cluster batches to sinks supporting them.
func (m *MultiSink) RecordClusters(b ClusterBatch) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ClusterRecorder); ok {
			if err := rec.RecordClusters(b); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordAllocations forwards allocation batches to sinks supporting them.
func (m *MultiSink) RecordAllocations(b AllocationBatch) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(AllocationRecorder); ok {
			if err := rec.RecordAllocations(b); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordStage forwards stage timings to sinks supporting them.
func (m *MultiSink) RecordStage(ev StageTiming) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(StageRecorder); ok {
			if err := rec.RecordStage(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
