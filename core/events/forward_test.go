package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/blockplan/internal/eventbus"
)

type recordPublisher struct {
	mu    sync.Mutex
	names []string
	data  [][]byte
	err   error
}

func (r *recordPublisher) Publish(_ context.Context, name string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.data = append(r.data, payload)
	return r.err
}

func (r *recordPublisher) Close() error { return nil }

func (r *recordPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}

func TestForwardPublishesEnvelopes(t *testing.T) {
	bus := eventbus.New()
	pub := &recordPublisher{}
	done := Forward(context.Background(), bus, pub, nil)

	require.Eventually(t, func() bool {
		bus.Publish(SearchEvent{PoolSize: 3, Returned: 1, Stop: "exhausted"})
		return pub.count() > 0
	}, time.Second, 5*time.Millisecond)
	bus.Close()
	<-done

	assert.Equal(t, "search", pub.names[0])
	var env struct {
		Name    string      `json:"name"`
		Payload SearchEvent `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(pub.data[0], &env))
	assert.Equal(t, "search", env.Name)
	assert.Equal(t, 3, env.Payload.PoolSize)
}

func TestForwardSurvivesPublishErrors(t *testing.T) {
	bus := eventbus.New()
	pub := &recordPublisher{err: errors.New("broker down")}
	ctx, cancel := context.WithCancel(context.Background())
	done := Forward(ctx, bus, pub, nil)

	require.Eventually(t, func() bool {
		bus.Publish(PlacementEvent{Title: "Piano", Valid: true})
		return pub.count() >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, "placement", pub.names[0])
}

func TestForwardWithoutBus(t *testing.T) {
	done := Forward(context.Background(), nil, &recordPublisher{}, nil)
	select {
	case <-done:
	default:
		t.Fatalf("expected closed channel")
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "optimization", Name(OptimizationEvent{}))
	assert.Equal(t, "travel_degraded", Name(TravelDegradedEvent{}))
	assert.Equal(t, "day_recalculated", Name(DayRecalculatedEvent{}))
	assert.Equal(t, "unknown", Name(42))
}
