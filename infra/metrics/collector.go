package metrics

import (
	"context"

	"github.com/kilianp07/fieldfleet/core/events"
	coremetrics "github.com/kilianp07/fieldfleet/core/metrics"
	"github.com/kilianp07/fieldfleet/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records stage timings
// on sinks supporting them. It stops when the context is canceled or the bus
// is closed. The returned channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.Event], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.StageRecorder)
	if bus == nil || !ok {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if e, isStage := ev.(events.StageEvent); isStage {
					_ = rec.RecordStage(coremetrics.StageTiming{
						RunID:    e.RunID,
						Stage:    e.Stage,
						Duration: e.Duration,
						Time:     e.Time,
					})
				}
			}
		}
	}()
	return done
}
