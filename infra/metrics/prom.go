package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/fieldfleet/core/metrics"
)

// PromSink records planning runs in Prometheus metrics.
type PromSink struct {
	predictions *prometheus.CounterVec
	skipped     prometheus.Counter
	urgency     prometheus.Histogram
	clusters    *prometheus.GaugeVec
	deficit     prometheus.Gauge
	allocations *prometheus.CounterVec
	unallocated prometheus.Counter
	distance    prometheus.Histogram
	remaining   prometheus.Gauge
	stages      *prometheus.HistogramVec
}

// NewPromSink registers planning metrics on the default Prometheus registerer.
// The metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// register adds c to reg, reusing the existing collector when one with the
// same descriptor is already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.predictions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldfleet_predictions_total",
		Help: "Unit predictions by status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.skipped, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldfleet_units_skipped_total",
		Help: "Units skipped for insufficient data",
	})); err != nil {
		return nil, err
	}
	if s.urgency, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fieldfleet_prediction_urgency",
		Help:    "Distribution of unit urgency scores",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	})); err != nil {
		return nil, err
	}
	if s.clusters, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fieldfleet_clusters",
		Help: "Deployment clusters of the last run by status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.deficit, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fieldfleet_capacity_deficit",
		Help: "Machines required but not allocated in the last run",
	})); err != nil {
		return nil, err
	}
	if s.allocations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldfleet_allocations_total",
		Help: "Machine allocations by machine type",
	}, []string{"machine_type"})); err != nil {
		return nil, err
	}
	if s.unallocated, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldfleet_unallocated_total",
		Help: "Units left without a machine",
	})); err != nil {
		return nil, err
	}
	if s.distance, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fieldfleet_allocation_distance_km",
		Help:    "Travel distance of allocated machines",
		Buckets: []float64{5, 10, 25, 50, 100, 200, 400},
	})); err != nil {
		return nil, err
	}
	if s.remaining, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fieldfleet_machines_remaining",
		Help: "Available machines left after the last allocation",
	})); err != nil {
		return nil, err
	}
	if s.stages, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fieldfleet_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})); err != nil {
		return nil, err
	}
	return s, nil
}

// RecordPredictions counts predictions per status and observes urgency.
func (s *PromSink) RecordPredictions(b coremetrics.PredictionBatch) error {
	for _, p := range b.Predictions {
		s.predictions.WithLabelValues(string(p.Status)).Inc()
		s.urgency.Observe(float64(p.UrgencyScore))
	}
	s.skipped.Add(float64(b.Skipped))
	return nil
}

// RecordClusters sets the cluster gauges to the state of the batch.
func (s *PromSink) RecordClusters(b coremetrics.ClusterBatch) error {
	s.clusters.Reset()
	deficit := 0
	for _, c := range b.Clusters {
		s.clusters.WithLabelValues(string(c.Status)).Inc()
		deficit += c.RequiredCapacity - c.AllocatedCapacity
	}
	s.deficit.Set(float64(deficit))
	return nil
}

// RecordAllocations counts allocations and observes travel distances.
func (s *PromSink) RecordAllocations(b coremetrics.AllocationBatch) error {
	for _, a := range b.Allocations {
		s.allocations.WithLabelValues(string(a.MachineType)).Inc()
		s.distance.Observe(a.DistanceKM)
	}
	s.unallocated.Add(float64(len(b.Unallocated)))
	s.remaining.Set(float64(b.Remaining))
	return nil
}

// RecordStage observes the stage duration.
func (s *PromSink) RecordStage(ev coremetrics.StageTiming) error {
	s.stages.WithLabelValues(ev.Stage).Observe(ev.Duration.Seconds())
	return nil
}
