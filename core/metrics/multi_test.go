package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/kilianp07/blockplan/core/factory"
)

type countingSink struct {
	NopSink
	searches int
	err      error
}

func (c *countingSink) RecordSearch(SearchRecord) error {
	c.searches++
	return c.err
}

func TestMultiSinkForwardsToAll(t *testing.T) {
	failing := &countingSink{err: errors.New("boom")}
	ok := &countingSink{}
	m := NewMultiSink(failing, ok)
	if err := m.RecordSearch(SearchRecord{PoolSize: 3}); err == nil {
		t.Fatalf("expected joined error")
	}
	if failing.searches != 1 || ok.searches != 1 {
		t.Fatalf("expected both sinks called, got %d and %d", failing.searches, ok.searches)
	}
	if err := m.RecordPlacement(PlacementRecord{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewMetricsSinkFromConfig(t *testing.T) {
	_ = RegisterMetricsSink("test-count", func(map[string]any) (MetricsSink, error) {
		return &countingSink{}, nil
	})
	s, err := NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("nil config: %v", err)
	}
	if _, ok := s.(NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "test-count"}, {Type: "test-count"}})
	if err != nil {
		t.Fatalf("two sinks: %v", err)
	}
	if ms, ok := s.(*MultiSink); !ok || len(ms.Sinks) != 2 {
		t.Fatalf("expected MultiSink with 2 sinks, got %T", s)
	}
	if _, err := NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}}); err == nil {
		t.Fatalf("expected unknown type error")
	}
}

type closingSink struct {
	NopSink
	closed bool
}

func (c *closingSink) Close() error {
	c.closed = true
	return nil
}

func TestNewMetricsSinkClosesBuiltSinksOnFailure(t *testing.T) {
	built := &closingSink{}
	_ = RegisterMetricsSink("test-closing", func(map[string]any) (MetricsSink, error) {
		return built, nil
	})
	_ = RegisterMetricsSink("test-broken", func(map[string]any) (MetricsSink, error) {
		return nil, errors.New("bad url")
	})
	_, err := NewMetricsSink([]factory.ModuleConfig{{Type: "test-closing"}, {Type: "test-broken"}})
	if err == nil {
		t.Fatalf("expected error from second sink")
	}
	if !strings.Contains(err.Error(), "metrics sink 1 (test-broken)") {
		t.Fatalf("error does not name the failing entry: %v", err)
	}
	if !built.closed {
		t.Fatalf("expected first sink closed")
	}
}
