package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kilianp07/blockplan/core/factory"
	"github.com/kilianp07/blockplan/core/logger"
	"github.com/kilianp07/blockplan/core/monitoring"
	"github.com/kilianp07/blockplan/internal/eventbus"
)

// Envelope is the wire form of a forwarded event.
type Envelope struct {
	Name    string    `json:"name"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload"`
}

// Publisher delivers encoded events to an external broker. name is the
// routing name returned by Name.
type Publisher interface {
	Publish(ctx context.Context, name string, payload []byte) error
	Close() error
}

var publishers = factory.NewRegistry[Publisher]("event publisher")

// RegisterPublisher adds a publisher factory identified by name.
func RegisterPublisher(name string, f factory.Factory[Publisher]) error {
	return publishers.Register(name, f)
}

// NewPublisher builds the publisher described by cfg.
func NewPublisher(cfg factory.ModuleConfig) (Publisher, error) {
	return publishers.Create(cfg)
}

// Forward subscribes to bus and hands every event to pub until ctx is done
// or the bus closes. Publish failures are logged and reported, never fatal.
// The returned channel is closed on exit.
func Forward(ctx context.Context, bus eventbus.EventBus, pub Publisher, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || pub == nil {
		close(done)
		return done
	}
	log = logger.Nop(log)
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
				name := Name(ev)
				data, err := json.Marshal(Envelope{Name: name, Time: time.Now().UTC(), Payload: ev})
				if err != nil {
					log.Errorf("encode %s event: %v", name, err)
					continue
				}
				if err := pub.Publish(ctx, name, data); err != nil {
					log.Warnf("forward %s event: %v", name, err)
					monitoring.CaptureException(err, map[string]string{"component": "forwarder", "event": name})
				}
			}
		}
	}()
	return done
}
