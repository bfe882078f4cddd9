package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/blockplan/core/events"
	"github.com/kilianp07/blockplan/core/factory"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { f.closed = true; return nil }

func TestPublishRoutesByName(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, Config{Topics: map[string]string{"travel_degraded": "blockplan.alerts"}})

	require.NoError(t, p.Publish(context.Background(), "search", []byte(`{"a":1}`)))
	require.NoError(t, p.Publish(context.Background(), "travel_degraded", []byte(`{}`)))
	require.Len(t, w.msgs, 2)

	assert.Equal(t, DefaultTopic, w.msgs[0].Topic)
	assert.Equal(t, "search", string(w.msgs[0].Key))
	assert.Equal(t, `{"a":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "blockplan.alerts", w.msgs[1].Topic)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishWrapsError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newPublisher(w, Config{Topic: "plans"})
	err := p.Publish(context.Background(), "optimization", nil)
	assert.ErrorContains(t, err, "plans")
}

func TestFactory(t *testing.T) {
	_, err := events.NewPublisher(factory.ModuleConfig{Type: "kafka", Conf: map[string]any{}})
	assert.Error(t, err)

	pub, err := events.NewPublisher(factory.ModuleConfig{Type: "kafka", Conf: map[string]any{
		"brokers": []any{"localhost:9092"}, "topic": "plans", "write_timeout": "2s",
	}})
	require.NoError(t, err)
	assert.Equal(t, "plans", pub.(*Publisher).TopicFor("search"))
	require.NoError(t, pub.Close())
}
