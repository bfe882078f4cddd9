// Package kafka forwards planning events to Kafka topics with segmentio/kafka-go.
// Events are written to one topic, keyed by event name, unless per-event
// topics are configured.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kilianp07/blockplan/core/events"
	"github.com/kilianp07/blockplan/core/factory"
	"github.com/kilianp07/blockplan/core/logger"
	"github.com/kilianp07/blockplan/core/monitoring"
	infralogger "github.com/kilianp07/blockplan/infra/logger"
)

// DefaultTopic receives events without a dedicated topic.
const DefaultTopic = "blockplan.events"

// Config configures the writer.
type Config struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
	// Topics maps an event name to a dedicated topic.
	Topics       map[string]string `json:"topics"`
	WriteTimeout time.Duration     `json:"write_timeout"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements events.Publisher on a kafka.Writer.
type Publisher struct {
	w      messageWriter
	topic  string
	topics map[string]string
	log    logger.Logger
}

// NewPublisher builds a synchronous writer. The topic is set per message so a
// single writer serves every route.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  false,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, cfg), nil
}

func newPublisher(w messageWriter, cfg Config) *Publisher {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{w: w, topic: topic, topics: cfg.Topics, log: infralogger.New("kafka_forwarder")}
}

// TopicFor returns the topic receiving events named name.
func (p *Publisher) TopicFor(name string) string {
	if t, ok := p.topics[name]; ok && t != "" {
		return t
	}
	return p.topic
}

// Publish writes one message keyed by the event name.
func (p *Publisher) Publish(ctx context.Context, name string, payload []byte) error {
	topic := p.TopicFor(name)
	err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(name),
		Value: payload,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		monitoring.CaptureException(err, map[string]string{"module": "kafka", "topic": topic})
		return fmt.Errorf("kafka write %s: %w", topic, err)
	}
	p.log.Debugf("published %s event to %s", name, topic)
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error { return p.w.Close() }

func init() {
	_ = events.RegisterPublisher("kafka", func(conf map[string]any) (events.Publisher, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewPublisher(c)
	})
}
