// Package metrics defines the sink contract used to observe planning runs.
// Sinks like the Prometheus and InfluxDB ones in infra/metrics record search,
// optimization, travel lookup, recalculation and placement records. The
// factory helpers return a MultiSink automatically when several sinks are
// configured.
package metrics
