package travel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/blockplan/core/events"
	"github.com/kilianp07/blockplan/core/metrics"
	"github.com/kilianp07/blockplan/core/model"
	"github.com/kilianp07/blockplan/internal/eventbus"
)

func addr(a string) *model.Location {
	return &model.Location{Kind: model.LocationAddress, Address: a}
}

func coords(lat, lng float64) *model.Location {
	return &model.Location{Kind: model.LocationCoordinates, Coordinates: &model.Coordinates{Lat: lat, Lng: lng}}
}

type countingProvider struct {
	calls   atomic.Int32
	seconds int
	status  string
	err     error
	delay   time.Duration
}

func (p *countingProvider) Duration(ctx context.Context, _ Request) (Response, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}
	if p.err != nil {
		return Response{}, p.err
	}
	status := p.status
	if status == "" {
		status = StatusOK
	}
	return Response{Status: status, DurationSeconds: p.seconds}, nil
}

type lookupSink struct {
	metrics.NopSink
	mu      sync.Mutex
	sources []string
}

func (s *lookupSink) RecordTravelLookup(r metrics.TravelLookupRecord) error {
	s.mu.Lock()
	s.sources = append(s.sources, r.Source)
	s.mu.Unlock()
	return nil
}

func TestLookupCacheHitSkipsProvider(t *testing.T) {
	p := &countingProvider{seconds: 61}
	sink := &lookupSink{}
	e := NewEngine(Config{}, nil, p, nil, sink, nil)
	ctx := context.Background()

	first := e.Lookup(ctx, addr("Home"), addr("School"), model.TravelDriving)
	second := e.Lookup(ctx, addr("home"), addr(" school "), model.TravelDriving)

	assert.Equal(t, Estimate{Minutes: 2, Source: SourceProvider}, first)
	assert.Equal(t, Estimate{Minutes: 2, Source: SourceCache}, second)
	assert.EqualValues(t, 1, p.calls.Load())
	assert.Equal(t, []string{"provider", "cache"}, sink.sources)
}

func TestLookupNormalModeAndSameLocation(t *testing.T) {
	p := &countingProvider{seconds: 600}
	e := NewEngine(Config{}, nil, p, nil, nil, nil)
	ctx := context.Background()

	assert.Equal(t, 0, e.Minutes(ctx, addr("A"), addr("B"), model.TravelNormal))
	assert.Equal(t, 0, e.Minutes(ctx, addr("A"), addr("a"), model.TravelWalking))
	assert.Equal(t, 0, e.Minutes(ctx, nil, addr("B"), model.TravelWalking))
	assert.EqualValues(t, 0, p.calls.Load())
}

func TestLookupGeometryFallback(t *testing.T) {
	p := &countingProvider{err: errors.New("connection refused")}
	e := NewEngine(Config{}, NewMemoryCache(), p, nil, nil, nil)
	// 0.12 degrees of latitude is about 13.3 km, 20 minutes at 40 km/h.
	from, to := coords(48.8566, 2.3522), coords(48.9766, 2.3522)

	km := HaversineKm(*from.Coordinates, *to.Coordinates)
	require.InDelta(t, 13.34, km, 0.05)

	est := e.Lookup(context.Background(), from, to, model.TravelDriving)
	assert.Equal(t, SourceGeometry, est.Source)
	assert.Equal(t, 20, est.Minutes)

	cached, ok := e.Cache().Get(Key{from.Key(), to.Key(), model.TravelDriving})
	require.True(t, ok)
	assert.Equal(t, 20, cached)
}

func TestLookupCancelledFallbackIsNotCached(t *testing.T) {
	p := &countingProvider{seconds: 3600, delay: 50 * time.Millisecond}
	e := NewEngine(Config{}, nil, p, nil, nil, nil)
	from, to := coords(48.8566, 2.3522), coords(48.9766, 2.3522)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	first := e.Lookup(cancelled, from, to, model.TravelDriving)
	assert.Equal(t, SourceGeometry, first.Source)
	_, ok := e.Cache().Get(Key{from.Key(), to.Key(), model.TravelDriving})
	assert.False(t, ok)

	live := e.Lookup(context.Background(), from, to, model.TravelDriving)
	assert.Equal(t, Estimate{Minutes: 60, Source: SourceProvider}, live)
	assert.EqualValues(t, 2, p.calls.Load())
}

func TestEstimateMinutes(t *testing.T) {
	assert.Equal(t, 0, estimateMinutes(0, 40))
	assert.Equal(t, 0, estimateMinutes(1, 40), "1.5 minutes rounds down")
	assert.Equal(t, 10, estimateMinutes(4, 40))
	assert.Equal(t, 30, estimateMinutes(20, 40))
	assert.Equal(t, 60, estimateMinutes(5, 5))
	assert.Equal(t, 40, estimateMinutes(11, 15))
}

func TestLookupCrossModeBeforeGeometry(t *testing.T) {
	cache := NewMemoryCache()
	from, to := coords(37.5, 127.0), coords(37.6, 127.1)
	cache.Set(Key{from.Key(), to.Key(), model.TravelTransit}, 42)

	e := NewEngine(Config{}, cache, nil, nil, nil, nil)
	est := e.Lookup(context.Background(), from, to, model.TravelDriving)
	assert.Equal(t, Estimate{Minutes: 42, Source: SourceCrossMode}, est)
	assert.Equal(t, 2, cache.Len())
}

func TestLookupDefaultWhenEverythingFails(t *testing.T) {
	bus := eventbus.New()
	ch := bus.Subscribe()
	p := &countingProvider{status: "ZERO_RESULTS"}
	e := NewEngine(Config{DefaultMinutes: 25}, nil, p, nil, nil, bus)

	est := e.Lookup(context.Background(), addr("Nowhere 1"), addr("Nowhere 2"), model.TravelTransit)
	assert.Equal(t, Estimate{Minutes: 25, Source: SourceDefault}, est)

	select {
	case ev := <-ch:
		deg, ok := ev.(events.TravelDegradedEvent)
		require.True(t, ok)
		assert.Equal(t, model.TravelTransit, deg.Mode)
		assert.Contains(t, deg.Reason, "ZERO_RESULTS")
	case <-time.After(time.Second):
		t.Fatalf("expected a degraded event")
	}

	_, ok := e.Cache().Get(Key{"nowhere 1", "nowhere 2", model.TravelTransit})
	assert.False(t, ok, "default durations are not cached")
}

func TestLookupProviderTimeout(t *testing.T) {
	p := &countingProvider{seconds: 60, delay: time.Second}
	e := NewEngine(Config{ProviderTimeout: 20 * time.Millisecond}, nil, p, nil, nil, nil)
	est := e.Lookup(context.Background(), coords(0, 0), coords(0, 0.05), model.TravelWalking)
	assert.Equal(t, SourceGeometry, est.Source)
}

func TestPrefetchCollapsesDuplicates(t *testing.T) {
	p := &countingProvider{seconds: 300, delay: 50 * time.Millisecond}
	e := NewEngine(Config{PrefetchConcurrency: 8}, nil, p, nil, nil, nil)
	routes := make([]Route, 8)
	for i := range routes {
		routes[i] = Route{From: addr("Home"), To: addr("Gym"), Mode: model.TravelBicycling}
	}
	require.NoError(t, e.Prefetch(context.Background(), routes))
	assert.EqualValues(t, 1, p.calls.Load())
	assert.Equal(t, 5, e.Minutes(context.Background(), addr("Home"), addr("Gym"), model.TravelBicycling))
}

func TestPrefetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewEngine(Config{}, nil, nil, nil, nil, nil)
	err := e.Prefetch(ctx, []Route{{From: addr("a"), To: addr("b"), Mode: model.TravelDriving}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Speeds: map[model.TravelMode]float64{model.TravelWalking: 4}}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4.0, cfg.Speeds[model.TravelWalking])
	assert.Equal(t, 40.0, cfg.Speeds[model.TravelDriving])

	bad := Config{Cache: CacheConfig{Kind: "redis"}}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected unknown cache kind to fail")
	}
}
