// Package travel estimates travel durations between locations.
//
// A lookup walks a fixed ladder of tiers: the cache for the requested mode,
// the external provider, the cache under any other mode, a great-circle
// estimate when both ends have coordinates, and finally a fixed default.
// Lookups never fail; the tier that answered is reported alongside the value.
package travel

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kilianp07/blockplan/core/events"
	"github.com/kilianp07/blockplan/core/logger"
	"github.com/kilianp07/blockplan/core/metrics"
	"github.com/kilianp07/blockplan/core/model"
	"github.com/kilianp07/blockplan/core/monitoring"
	"github.com/kilianp07/blockplan/internal/eventbus"
)

// Source names the tier that produced a duration.
type Source string

const (
	SourceNone      Source = "none"
	SourceCache     Source = "cache"
	SourceProvider  Source = "provider"
	SourceCrossMode Source = "cross_mode"
	SourceGeometry  Source = "geometry"
	SourceDefault   Source = "default"
)

const (
	DefaultMinutes             = 30
	DefaultProviderTimeout     = 5 * time.Second
	DefaultPrefetchConcurrency = 4
	DefaultCacheSize           = 4096
)

// Config tunes the engine.
type Config struct {
	DefaultMinutes      int                          `json:"default_minutes"`
	ProviderTimeout     time.Duration                `json:"provider_timeout"`
	PrefetchConcurrency int                          `json:"prefetch_concurrency"`
	Language            string                       `json:"language"`
	Speeds              map[model.TravelMode]float64 `json:"speeds_kmh"`
	Cache               CacheConfig                  `json:"cache"`
	// Provider selects the distance provider module; empty disables it.
	Provider     string         `json:"provider"`
	ProviderConf map[string]any `json:"provider_conf"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.DefaultMinutes <= 0 {
		c.DefaultMinutes = DefaultMinutes
	}
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = DefaultProviderTimeout
	}
	if c.PrefetchConcurrency <= 0 {
		c.PrefetchConcurrency = DefaultPrefetchConcurrency
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "lru"
	}
	if c.Cache.Size <= 0 {
		c.Cache.Size = DefaultCacheSize
	}
	speeds := make(map[model.TravelMode]float64, len(DefaultSpeeds))
	for m, v := range DefaultSpeeds {
		speeds[m] = v
	}
	for m, v := range c.Speeds {
		speeds[m] = v
	}
	c.Speeds = speeds
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Cache.Kind {
	case "", "lru", "memory":
	default:
		return fmt.Errorf("travel: unknown cache kind %q", c.Cache.Kind)
	}
	for m, v := range c.Speeds {
		if v <= 0 {
			return fmt.Errorf("travel: speed for %s must be positive", m)
		}
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("travel: negative cache ttl")
	}
	return nil
}

// Estimate is a resolved duration and the tier that produced it.
type Estimate struct {
	Minutes int
	Source  Source
}

// Route is one lookup to prefetch.
type Route struct {
	From, To *model.Location
	Mode     model.TravelMode
}

// Engine resolves travel durations. It is safe for concurrent use.
type Engine struct {
	cfg      Config
	cache    Cache
	provider Provider
	group    singleflight.Group
	logger   logger.Logger
	metrics  metrics.MetricsSink
	bus      eventbus.EventBus
}

// NewEngine builds an Engine. A nil cache uses the configured cache; a nil
// provider skips the provider tier.
func NewEngine(cfg Config, cache Cache, provider Provider, log logger.Logger, sink metrics.MetricsSink, bus eventbus.EventBus) *Engine {
	cfg.SetDefaults()
	if cache == nil {
		cache = NewCache(cfg.Cache)
	}
	return &Engine{
		cfg:      cfg,
		cache:    cache,
		provider: provider,
		logger:   logger.Nop(log),
		metrics:  metrics.OrNop(sink),
		bus:      bus,
	}
}

// Cache exposes the engine cache.
func (e *Engine) Cache() Cache { return e.cache }

// Minutes returns the travel duration from one location to another.
func (e *Engine) Minutes(ctx context.Context, from, to *model.Location, mode model.TravelMode) int {
	return e.Lookup(ctx, from, to, mode).Minutes
}

// Lookup resolves a duration and reports the tier used. Missing locations,
// the normal mode and identical endpoints cost nothing.
func (e *Engine) Lookup(ctx context.Context, from, to *model.Location, mode model.TravelMode) Estimate {
	if mode == "" || mode == model.TravelNormal || from == nil || to == nil {
		return Estimate{Source: SourceNone}
	}
	key := Key{Origin: from.Key(), Destination: to.Key(), Mode: mode}
	if key.Origin == key.Destination {
		return Estimate{Source: SourceNone}
	}
	start := time.Now()
	if m, ok := e.cache.Get(key); ok {
		est := Estimate{Minutes: m, Source: SourceCache}
		e.observe(mode, est, start)
		return est
	}

	sfKey := key.Origin + "|" + key.Destination + "|" + string(mode)
	v, _, _ := e.group.Do(sfKey, func() (any, error) {
		return e.resolve(ctx, *from, *to, key), nil
	})
	est := v.(Estimate)
	e.observe(mode, est, start)
	return est
}

func (e *Engine) resolve(ctx context.Context, from, to model.Location, key Key) Estimate {
	var providerErr error
	if e.provider != nil {
		m, err := e.callProvider(ctx, from, to, key.Mode)
		if err == nil {
			e.cache.Set(key, m)
			return Estimate{Minutes: m, Source: SourceProvider}
		}
		providerErr = err
		providerErrors.Inc()
		e.logger.Debugw("travel provider failed", map[string]any{
			"origin": key.Origin, "destination": key.Destination, "mode": string(key.Mode), "error": err.Error(),
		})
	}

	if m, other, ok := e.cache.GetAnyMode(key.Origin, key.Destination); ok {
		e.logger.Debugf("travel %s -> %s: reusing %s duration for %s", key.Origin, key.Destination, other, key.Mode)
		e.cacheFallback(ctx, key, m)
		return Estimate{Minutes: m, Source: SourceCrossMode}
	}

	if from.HasCoordinates() && to.HasCoordinates() {
		km := HaversineKm(*from.Coordinates, *to.Coordinates)
		m := estimateMinutes(km, e.speed(key.Mode))
		e.cacheFallback(ctx, key, m)
		return Estimate{Minutes: m, Source: SourceGeometry}
	}

	reason := "no provider, cached value or coordinates"
	if providerErr != nil {
		reason = providerErr.Error()
	}
	e.logger.Warnf("travel %s -> %s (%s): using default %d minutes: %s",
		key.Origin, key.Destination, key.Mode, e.cfg.DefaultMinutes, reason)
	monitoring.CaptureException(fmt.Errorf("travel lookup degraded to default: %s", reason),
		map[string]string{"component": "travel", "mode": string(key.Mode)})
	eventbus.PublishTo(e.bus, events.TravelDegradedEvent{
		Origin:      key.Origin,
		Destination: key.Destination,
		Mode:        key.Mode,
		Minutes:     e.cfg.DefaultMinutes,
		Reason:      reason,
	})
	return Estimate{Minutes: e.cfg.DefaultMinutes, Source: SourceDefault}
}

// cacheFallback stores a fallback estimate unless the caller gave up. A
// provider failure caused by cancellation says nothing about the route.
func (e *Engine) cacheFallback(ctx context.Context, key Key, minutes int) {
	if ctx.Err() != nil {
		return
	}
	e.cache.Set(key, minutes)
}

func (e *Engine) callProvider(ctx context.Context, from, to model.Location, mode model.TravelMode) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
	defer cancel()
	start := time.Now()
	resp, err := e.provider.Duration(ctx, Request{Origin: from, Destination: to, Mode: mode, Language: e.cfg.Language})
	providerLatency.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, err
	}
	if resp.Status != StatusOK {
		return 0, fmt.Errorf("%w: %s", ErrProviderStatus, resp.Status)
	}
	if resp.DurationSeconds < 0 {
		return 0, fmt.Errorf("%w: negative duration", ErrProviderStatus)
	}
	return int(math.Ceil(float64(resp.DurationSeconds) / 60)), nil
}

func (e *Engine) speed(mode model.TravelMode) float64 {
	if v, ok := e.cfg.Speeds[mode]; ok && v > 0 {
		return v
	}
	return DefaultSpeeds[model.TravelDriving]
}

func (e *Engine) observe(mode model.TravelMode, est Estimate, start time.Time) {
	lookupsTotal.WithLabelValues(string(mode), string(est.Source)).Inc()
	if err := e.metrics.RecordTravelLookup(metrics.TravelLookupRecord{
		Mode:    string(mode),
		Source:  string(est.Source),
		Minutes: est.Minutes,
		Elapsed: time.Since(start),
		Time:    start,
	}); err != nil {
		e.logger.Errorf("travel metrics error: %v", err)
	}
}

// Prefetch resolves routes concurrently so later lookups hit the cache. It
// returns the context error if ctx ends first.
func (e *Engine) Prefetch(ctx context.Context, routes []Route) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.PrefetchConcurrency)
	for _, r := range routes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e.Lookup(gctx, r.From, r.To, r.Mode)
			return nil
		})
	}
	return g.Wait()
}
