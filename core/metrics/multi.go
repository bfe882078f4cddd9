package metrics

import (
	"errors"
	"io"
	"time"
)

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// Every sink receives the record even when an earlier one fails; the errors
// are joined.
func (m *MultiSink) each(f func(MetricsSink) error) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := f(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordSearch(r SearchRecord) error {
	return m.each(func(s MetricsSink) error { return s.RecordSearch(r) })
}

func (m *MultiSink) RecordOptimization(r OptimizationRecord) error {
	return m.each(func(s MetricsSink) error { return s.RecordOptimization(r) })
}

func (m *MultiSink) RecordTravelLookup(r TravelLookupRecord) error {
	return m.each(func(s MetricsSink) error { return s.RecordTravelLookup(r) })
}

func (m *MultiSink) RecordRecalculation(r RecalculationRecord) error {
	return m.each(func(s MetricsSink) error { return s.RecordRecalculation(r) })
}

func (m *MultiSink) RecordPlacement(r PlacementRecord) error {
	return m.each(func(s MetricsSink) error { return s.RecordPlacement(r) })
}

// RecordEvent forwards to the sinks that count events.
func (m *MultiSink) RecordEvent(name string, t time.Time) error {
	return m.each(func(s MetricsSink) error {
		if r, ok := s.(EventRecorder); ok {
			return r.RecordEvent(name, t)
		}
		return nil
	})
}

// Close closes the sinks holding resources.
func (m *MultiSink) Close() error {
	return m.each(func(s MetricsSink) error {
		if c, ok := s.(io.Closer); ok {
			return c.Close()
		}
		return nil
	})
}
