// Package config loads the service configuration from a YAML or JSON file
// with K_-prefixed environment overrides, e.g. K_TRAVEL__DEFAULT_MINUTES=20.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/blockplan/core/combination"
	"github.com/kilianp07/blockplan/core/factory"
	"github.com/kilianp07/blockplan/core/metrics"
	"github.com/kilianp07/blockplan/core/monitoring"
	"github.com/kilianp07/blockplan/core/optimizer"
	"github.com/kilianp07/blockplan/core/recalc"
	"github.com/kilianp07/blockplan/core/travel"
	"github.com/kilianp07/blockplan/jobs/refresh"
)

// EventsConfig lists the forwarders relaying bus events to brokers.
type EventsConfig struct {
	Forwarders []factory.ModuleConfig `json:"forwarders"`
}

// JobsConfig groups the background jobs.
type JobsConfig struct {
	Refresh refresh.Config `json:"refresh"`
}

type Config struct {
	Search    combination.Config   `json:"search"`
	Optimizer optimizer.Config     `json:"optimizer"`
	Travel    travel.Config        `json:"travel"`
	Recalc    recalc.Config        `json:"recalc"`
	Store     factory.ModuleConfig `json:"store"`
	Metrics   metrics.Config       `json:"metrics"`
	Events    EventsConfig         `json:"events"`
	Logging   LoggingConfig        `json:"logging"`
	Sentry    monitoring.Config    `json:"sentry"`
	Jobs      JobsConfig           `json:"jobs"`
}

// Default returns a configuration with every default applied, used when the
// CLI runs without a config file.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults applies the section defaults.
func (c *Config) SetDefaults() {
	c.Search.SetDefaults()
	c.Optimizer.SetDefaults()
	c.Travel.SetDefaults()
	c.Recalc.SetDefaults()
	c.Logging.SetDefaults()
	c.Jobs.Refresh.SetDefaults()
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	checks := []struct {
		section string
		err     error
	}{
		{"search", c.Search.Validate()},
		{"optimizer", c.Optimizer.Validate()},
		{"travel", c.Travel.Validate()},
		{"recalc", c.Recalc.Validate()},
		{"logging", c.Logging.Validate()},
		{"jobs.refresh", c.Jobs.Refresh.Validate()},
	}
	for _, ch := range checks {
		if ch.err != nil {
			return fmt.Errorf("%s: %w", ch.section, ch.err)
		}
	}
	if c.Sentry.TracesSampleRate < 0 || c.Sentry.TracesSampleRate > 1 {
		return fmt.Errorf("sentry: traces_sample_rate must be within [0,1]")
	}
	return nil
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
