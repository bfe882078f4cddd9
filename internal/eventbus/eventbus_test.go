package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Publish("hello")
	assert.Equal(t, "hello", <-ch)
	bus.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
}

func TestBusClose(t *testing.T) {
	bus := New()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	bus.Close()
	_, ok1 := <-ch1
	_, ok2 := <-ch2
	assert.False(t, ok1)
	assert.False(t, ok2)

	late := bus.Subscribe()
	_, ok := <-late
	assert.False(t, ok, "subscribe after close returns a closed channel")
	assert.NotPanics(t, func() { bus.Unsubscribe(ch1) })
	assert.NotPanics(t, func() { bus.Publish("ignored") })
}

func TestTypedBusDropsWhenFull(t *testing.T) {
	bus := NewTypedWithBuffer[int](1)
	ch := bus.Subscribe()
	bus.Publish(1)
	bus.Publish(2)
	assert.Equal(t, 1, <-ch)
	assert.Equal(t, uint64(1), bus.Dropped())
}

func TestPublishToNil(t *testing.T) {
	assert.NotPanics(t, func() { PublishTo(nil, "x") })
	bus := New()
	ch := bus.Subscribe()
	PublishTo(bus, 42)
	assert.Equal(t, 42, <-ch)
}
