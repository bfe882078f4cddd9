package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/blockplan/core/events"
	coremetrics "github.com/kilianp07/blockplan/core/metrics"
	"github.com/kilianp07/blockplan/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and counts events on sinks
// implementing coremetrics.EventRecorder. It stops when the context is
// canceled or the bus is closed. The returned channel is closed on exit.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.EventRecorder)
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
				_ = rec.RecordEvent(events.Name(ev), time.Now())
			}
		}
	}()
	return done
}
