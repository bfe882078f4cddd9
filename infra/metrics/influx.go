package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/blockplan/core/metrics"
	"github.com/kilianp07/blockplan/infra/logger"
)

const writeTimeout = 5 * time.Second

// InfluxSink writes planner records to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSearch writes a combination_search point.
func (s *InfluxSink) RecordSearch(r coremetrics.SearchRecord) error {
	return s.write(write.NewPointWithMeasurement("combination_search").
		AddTag("stop", r.Stop).
		AddField("pool_size", r.PoolSize).
		AddField("found", r.Found).
		AddField("returned", r.Returned).
		AddField("iterations", r.Iterations).
		AddField("elapsed_ms", r.Elapsed.Milliseconds()).
		SetTime(r.Time))
}

// RecordOptimization writes an optimization_run point.
func (s *InfluxSink) RecordOptimization(r coremetrics.OptimizationRecord) error {
	return s.write(write.NewPointWithMeasurement("optimization_run").
		AddTag("run_id", r.RunID).
		AddField("pool_size", r.PoolSize).
		AddField("pinned", r.Pinned).
		AddField("removed_by_pins", r.RemovedByPins).
		AddField("selected", r.Selected).
		AddField("backfilled", r.Backfilled).
		AddField("classifier_fallbacks", r.ClassifierFallbacks).
		AddField("elapsed_ms", r.Elapsed.Milliseconds()).
		SetTime(r.Time))
}

// RecordTravelLookup writes a travel_lookup point.
func (s *InfluxSink) RecordTravelLookup(r coremetrics.TravelLookupRecord) error {
	return s.write(write.NewPointWithMeasurement("travel_lookup").
		AddTag("mode", r.Mode).
		AddTag("source", r.Source).
		AddField("minutes", r.Minutes).
		AddField("elapsed_ms", r.Elapsed.Milliseconds()).
		SetTime(r.Time))
}

// RecordRecalculation writes a day_recalculation point.
func (s *InfluxSink) RecordRecalculation(r coremetrics.RecalculationRecord) error {
	return s.write(write.NewPointWithMeasurement("day_recalculation").
		AddTag("date", r.Date.Format(time.DateOnly)).
		AddTag("mode", r.Mode).
		AddField("blocks", r.Blocks).
		AddField("adjusted", r.Adjusted).
		AddField("travel_minutes", r.TravelMinutes).
		SetTime(r.Time))
}

// RecordPlacement writes a placement_validation point.
func (s *InfluxSink) RecordPlacement(r coremetrics.PlacementRecord) error {
	p := write.NewPointWithMeasurement("placement_validation").
		AddTag("date", r.Date.Format(time.DateOnly)).
		AddTag("valid", strconv.FormatBool(r.Valid))
	if r.Reason != "" {
		p = p.AddTag("reason", r.Reason)
	}
	return s.write(p.AddField("count", 1).SetTime(r.Time))
}

// Close releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
