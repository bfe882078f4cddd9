package metrics

import "github.com/kilianp07/blockplan/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusPort enables the /metrics HTTP endpoint when non-empty.
	PrometheusPort string `json:"prometheus_port"`
}
