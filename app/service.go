package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fieldfleet/config"
	"github.com/kilianp07/fieldfleet/core/dispatch"
	"github.com/kilianp07/fieldfleet/core/events"
	coremetrics "github.com/kilianp07/fieldfleet/core/metrics"
	"github.com/kilianp07/fieldfleet/core/model"
	"github.com/kilianp07/fieldfleet/core/prediction"
	"github.com/kilianp07/fieldfleet/core/scheduler"
	"github.com/kilianp07/fieldfleet/infra/logger"
	"github.com/kilianp07/fieldfleet/infra/metrics"
	"github.com/kilianp07/fieldfleet/internal/eventbus"
)

// Service runs the planning pipeline: predict, schedule and allocate.
type Service struct {
	engine    prediction.Engine
	scheduler *scheduler.Scheduler
	allocator *dispatch.Allocator
	sink      coremetrics.MetricsSink
	bus       *eventbus.TypedBus[events.Event]
	log       logger.Logger
	newID     func() string
	collector <-chan struct{}
	cancel    context.CancelFunc
}

// Option customises a Service.
type Option func(*Service)

// WithSink replaces the sinks built from the metrics configuration.
func WithSink(sink coremetrics.MetricsSink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithEngine replaces the regression predictor.
func WithEngine(e prediction.Engine) Option {
	return func(s *Service) { s.engine = e }
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithRunIDs sets the generator of run ids.
func WithRunIDs(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{
		bus:   eventbus.NewTypedBuffered[events.Event](64),
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = logger.New("planner")
	}
	if s.engine == nil {
		p, err := prediction.NewPredictor(cfg.Predictor, logger.New("predictor"))
		if err != nil {
			return nil, fmt.Errorf("predictor: %w", err)
		}
		s.engine = p
	}
	var err error
	if s.scheduler, err = scheduler.New(cfg.Scheduler, logger.New("scheduler")); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	if s.allocator, err = dispatch.NewAllocator(cfg.Allocator, logger.New("allocator")); err != nil {
		return nil, fmt.Errorf("allocator: %w", err)
	}
	if s.sink == nil {
		if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.collector = metrics.StartEventCollector(ctx, s.bus, s.sink)
	return s, nil
}

// Bus returns the event bus the service publishes on.
func (s *Service) Bus() *eventbus.TypedBus[events.Event] { return s.bus }

// Close stops the event collector and releases the sinks.
func (s *Service) Close() {
	s.bus.Close()
	<-s.collector
	s.cancel()
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
}

// Run executes the full pipeline. Invalid rosters fail before any stage runs.
func (s *Service) Run(ctx context.Context, in Inputs, now time.Time) (*Plan, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	runID := s.newID()
	plan, preds, err := s.forecast(ctx, runID, in, now)
	if err != nil {
		return nil, err
	}
	if plan.Schedule, err = s.schedule(ctx, runID, in, preds, now); err != nil {
		return nil, err
	}
	if plan.Dispatch, err = s.dispatch(ctx, runID, in, preds, now); err != nil {
		return nil, err
	}
	s.log.Infof("run %s: %d predictions, %d clusters, %d allocations",
		runID, len(preds), len(plan.Schedule.Clusters), len(plan.Dispatch.Allocations))
	return plan, nil
}

// Predict runs the predictor only.
func (s *Service) Predict(ctx context.Context, in Inputs, now time.Time) (*Plan, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	plan, _, err := s.forecast(ctx, s.newID(), in, now)
	return plan, err
}

// Allocate runs the predictor and the allocator, skipping clustering.
func (s *Service) Allocate(ctx context.Context, in Inputs, now time.Time) (*Plan, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	runID := s.newID()
	plan, preds, err := s.forecast(ctx, runID, in, now)
	if err != nil {
		return nil, err
	}
	if plan.Dispatch, err = s.dispatch(ctx, runID, in, preds, now); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) forecast(ctx context.Context, runID string, in Inputs, now time.Time) (*Plan, []model.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	start := time.Now()
	series, orphans := prediction.GroupReadings(in.Units, in.Readings)
	preds, skipped := s.engine.PredictAll(series, now)
	s.skip(runID, events.StagePredict, events.ReasonInsufficientData, skipped, now)
	s.skip(runID, events.StagePredict, events.ReasonUnknownUnit, orphans, now)
	if len(orphans) > 0 {
		s.log.Warnf("readings reference %d unknown units", len(orphans))
	}
	s.finish(runID, events.StagePredict, len(preds), start, now)

	if err := s.sink.RecordPredictions(coremetrics.PredictionBatch{RunID: runID, Predictions: preds, Skipped: len(skipped), Time: now}); err != nil {
		s.log.Warnf("record predictions: %v", err)
	}
	plan := &Plan{
		GeneratedAt: now,
		Forecast: Forecast{
			Predictions: orEmpty(preds),
			Skipped:     orEmpty(skipped),
			Orphans:     orEmpty(orphans),
			Urgent:      orEmpty(prediction.UrgentUnits(preds, s.allocator.Config().UrgentScore)),
		},
	}
	return plan, preds, nil
}

func (s *Service) schedule(ctx context.Context, runID string, in Inputs, preds []model.Prediction, now time.Time) (*ScheduleReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	clusters := s.scheduler.CreateClusters(preds, in.Consumers, in.Machines, now)
	schedules := s.scheduler.AssignConsumers(clusters, in.Consumers, preds)
	rep := &ScheduleReport{
		Clusters:     orEmpty(clusters),
		Schedules:    orEmpty(schedules),
		Availability: orEmpty(s.scheduler.AvailabilityMatrix(clusters, schedules)),
		Timeline:     orEmpty(scheduler.Timeline(clusters, schedules)),
		Summary:      scheduler.Summarize(clusters, schedules),
	}
	s.finish(runID, events.StageSchedule, len(clusters), start, now)

	if rec, ok := s.sink.(coremetrics.ClusterRecorder); ok {
		if err := rec.RecordClusters(coremetrics.ClusterBatch{RunID: runID, Clusters: clusters, Schedules: len(schedules), Time: now}); err != nil {
			s.log.Warnf("record clusters: %v", err)
		}
	}
	return rep, nil
}

func (s *Service) dispatch(ctx context.Context, runID string, in Inputs, preds []model.Prediction, now time.Time) (*DispatchReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := s.allocator.Allocate(preds, in.Machines)
	if err != nil {
		return nil, err
	}
	unallocated := make([]string, 0, len(res.Unallocated))
	for _, u := range res.Unallocated {
		unallocated = append(unallocated, u.UnitID)
	}
	s.skip(runID, events.StageAllocate, events.ReasonUnallocated, unallocated, now)
	rep := &DispatchReport{
		Allocations: res.Allocations,
		Unallocated: res.Unallocated,
		Summary:     s.allocator.Summarize(res),
	}
	s.finish(runID, events.StageAllocate, len(res.Allocations), start, now)

	if rec, ok := s.sink.(coremetrics.AllocationRecorder); ok {
		batch := coremetrics.AllocationBatch{
			RunID:       runID,
			Allocations: res.Allocations,
			Unallocated: res.Unallocated,
			Remaining:   rep.Summary.MachinesRemaining,
			Time:        now,
		}
		if err := rec.RecordAllocations(batch); err != nil {
			s.log.Warnf("record allocations: %v", err)
		}
	}
	return rep, nil
}

func (s *Service) finish(runID, stage string, items int, start, now time.Time) {
	s.bus.Publish(events.StageEvent{RunID: runID, Stage: stage, Items: items, Duration: time.Since(start), Time: now})
}

func (s *Service) skip(runID, stage, reason string, ids []string, now time.Time) {
	if len(ids) == 0 {
		return
	}
	s.bus.Publish(events.SkipEvent{RunID: runID, Stage: stage, UnitIDs: ids, Reason: reason, Time: now})
}
