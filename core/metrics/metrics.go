package metrics

import "time"

// SearchRecord describes one combination search.
type SearchRecord struct {
	PoolSize   int
	Found      int
	Returned   int
	Iterations int
	Stop       string
	Elapsed    time.Duration
	Time       time.Time
}

// OptimizationRecord describes one optimizer run.
type OptimizationRecord struct {
	RunID               string
	PoolSize            int
	Pinned              int
	RemovedByPins       int
	Selected            int
	Backfilled          int
	ClassifierFallbacks int
	Elapsed             time.Duration
	Time                time.Time
}

// TravelLookupRecord describes one travel duration lookup. Source is the
// fallback tier that produced the value.
type TravelLookupRecord struct {
	Mode    string
	Source  string
	Minutes int
	Elapsed time.Duration
	Time    time.Time
}

// RecalculationRecord describes one day re-simulation.
type RecalculationRecord struct {
	Date          time.Time
	Mode          string
	Blocks        int
	Adjusted      int
	TravelMinutes int
	Time          time.Time
}

// PlacementRecord describes one placement validation.
type PlacementRecord struct {
	Date   time.Time
	Valid  bool
	Reason string
	Time   time.Time
}

// MetricsSink records planning activity for observability purposes.
type MetricsSink interface {
	RecordSearch(SearchRecord) error
	RecordOptimization(OptimizationRecord) error
	RecordTravelLookup(TravelLookupRecord) error
	RecordRecalculation(RecalculationRecord) error
	RecordPlacement(PlacementRecord) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordSearch(SearchRecord) error               { return nil }
func (NopSink) RecordOptimization(OptimizationRecord) error   { return nil }
func (NopSink) RecordTravelLookup(TravelLookupRecord) error   { return nil }
func (NopSink) RecordRecalculation(RecalculationRecord) error { return nil }
func (NopSink) RecordPlacement(PlacementRecord) error         { return nil }

// OrNop returns s, or NopSink when s is nil.
func OrNop(s MetricsSink) MetricsSink {
	if s == nil {
		return NopSink{}
	}
	return s
}

// EventRecorder is implemented by sinks that count bus events by name.
type EventRecorder interface {
	RecordEvent(name string, t time.Time) error
}
