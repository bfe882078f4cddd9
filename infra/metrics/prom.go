package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/blockplan/core/metrics"
)

// PromSink records planner activity in Prometheus metrics.
type PromSink struct {
	searches      *prometheus.CounterVec
	searchIter    prometheus.Histogram
	optimizations prometheus.Counter
	removed       prometheus.Counter
	backfilled    prometheus.Counter
	fallbacks     prometheus.Counter
	optLatency    prometheus.Histogram
	travel        *prometheus.CounterVec
	adjusted      prometheus.Gauge
	travelMinutes prometheus.Gauge
	placements    *prometheus.CounterVec
	events        *prometheus.CounterVec
}

// NewPromSink registers planner metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_searches_total",
			Help: "Combination searches by stop reason",
		}, []string{"stop"}),
		searchIter: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "planner_search_iterations",
			Help:    "Recursive steps per combination search",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),
		optimizations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_optimizations_total",
			Help: "Optimizer runs",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_blocks_removed_by_pins_total",
			Help: "Candidates evicted by pinned blocks",
		}),
		backfilled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_blocks_backfilled_total",
			Help: "Blocks added by the backfill phase",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_classifier_fallbacks_total",
			Help: "Groups classified with the fallback category",
		}),
		optLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "planner_optimization_seconds",
			Help:    "Duration of optimizer runs",
			Buckets: prometheus.DefBuckets,
		}),
		travel: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_travel_estimates_total",
			Help: "Travel estimates by mode and tier",
		}, []string{"mode", "source"}),
		adjusted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "planner_day_adjusted_blocks",
			Help: "Blocks moved by travel in the last recalculated day",
		}),
		travelMinutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "planner_day_travel_minutes",
			Help: "Total travel minutes of the last recalculated day",
		}),
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_placements_total",
			Help: "Placement validations by verdict",
		}, []string{"valid", "reason"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_events_total",
			Help: "Events seen on the planner bus",
		}, []string{"event"}),
	}

	var errs []error
	s.searches = register(reg, s.searches, &errs)
	s.searchIter = register(reg, s.searchIter, &errs)
	s.optimizations = register(reg, s.optimizations, &errs)
	s.removed = register(reg, s.removed, &errs)
	s.backfilled = register(reg, s.backfilled, &errs)
	s.fallbacks = register(reg, s.fallbacks, &errs)
	s.optLatency = register(reg, s.optLatency, &errs)
	s.travel = register(reg, s.travel, &errs)
	s.adjusted = register(reg, s.adjusted, &errs)
	s.travelMinutes = register(reg, s.travelMinutes, &errs)
	s.placements = register(reg, s.placements, &errs)
	s.events = register(reg, s.events, &errs)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg, returning the already registered collector when an
// identical one exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, errs *[]error) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		*errs = append(*errs, err)
	}
	return c
}

func (s *PromSink) RecordSearch(r coremetrics.SearchRecord) error {
	s.searches.WithLabelValues(r.Stop).Inc()
	s.searchIter.Observe(float64(r.Iterations))
	return nil
}

func (s *PromSink) RecordOptimization(r coremetrics.OptimizationRecord) error {
	s.optimizations.Inc()
	s.removed.Add(float64(r.RemovedByPins))
	s.backfilled.Add(float64(r.Backfilled))
	s.fallbacks.Add(float64(r.ClassifierFallbacks))
	s.optLatency.Observe(r.Elapsed.Seconds())
	return nil
}

func (s *PromSink) RecordTravelLookup(r coremetrics.TravelLookupRecord) error {
	s.travel.WithLabelValues(r.Mode, r.Source).Inc()
	return nil
}

func (s *PromSink) RecordRecalculation(r coremetrics.RecalculationRecord) error {
	s.adjusted.Set(float64(r.Adjusted))
	s.travelMinutes.Set(float64(r.TravelMinutes))
	return nil
}

func (s *PromSink) RecordPlacement(r coremetrics.PlacementRecord) error {
	s.placements.WithLabelValues(strconv.FormatBool(r.Valid), r.Reason).Inc()
	return nil
}

// RecordEvent counts a bus event.
func (s *PromSink) RecordEvent(name string, _ time.Time) error {
	s.events.WithLabelValues(name).Inc()
	return nil
}
