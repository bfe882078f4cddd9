package travel

import "github.com/prometheus/client_golang/prometheus"

var (
	lookupsTotal    *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	providerErrors  prometheus.Counter
)

func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, prometheus.Counter) {
	lookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_lookups_total",
			Help: "Travel duration lookups by mode and resolving tier",
		},
		[]string{"mode", "source"},
	)
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "travel_provider_latency_seconds",
			Help:    "Latency of distance provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
	errs := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "travel_provider_errors_total",
			Help: "Failed or non-OK distance provider calls",
		},
	)
	return lookups, lat, errs
}

func init() {
	lookupsTotal, providerLatency, providerErrors = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers travel metrics on reg, or on
// prometheus.DefaultRegisterer when reg is nil.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(lookupsTotal, providerLatency, providerErrors)
}

// ResetMetrics recreates the collectors and registers them on reg if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	lookupsTotal, providerLatency, providerErrors = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
