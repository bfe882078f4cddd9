// Package refresh periodically re-simulates stored days so travel estimates
// pick up provider answers that were unavailable when the day was saved.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kilianp07/blockplan/core/logger"
	"github.com/kilianp07/blockplan/core/model"
	"github.com/kilianp07/blockplan/core/monitoring"
	"github.com/kilianp07/blockplan/core/recalc"
	"github.com/kilianp07/blockplan/core/store"
)

// DefaultSchedule runs the job every fifteen minutes.
const DefaultSchedule = "*/15 * * * *"

// Config controls the job.
type Config struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
	// HorizonDays limits the refresh to days in [today, today+HorizonDays).
	// Zero refreshes every stored day from today on.
	HorizonDays int `json:"horizon_days"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
}

// Validate checks the cron expression.
func (c Config) Validate() error {
	if c.HorizonDays < 0 {
		return fmt.Errorf("refresh: negative horizon")
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("refresh: schedule: %w", err)
	}
	return nil
}

// DayRecalculator rebuilds the travel simulation of one day.
type DayRecalculator interface {
	RecalculateDay(ctx context.Context, date time.Time, blocks []model.TimeBlock, base *model.Location, mode model.TravelMode) recalc.DaySimulation
}

// Job reloads stored days, re-simulates them and saves the result.
type Job struct {
	cfg    Config
	store  store.Store
	recalc DayRecalculator
	log    logger.Logger
	now    func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates the job.
func New(cfg Config, st store.Store, r DayRecalculator, log logger.Logger) *Job {
	cfg.SetDefaults()
	return &Job{cfg: cfg, store: st, recalc: r, log: logger.Nop(log), now: time.Now}
}

// RunOnce refreshes the eligible days and returns how many were saved. A
// failing day is logged and skipped.
func (j *Job) RunOnce(ctx context.Context) (int, error) {
	days, err := j.store.ListDays(ctx)
	if err != nil {
		return 0, fmt.Errorf("list days: %w", err)
	}
	today := model.DateOf(j.now())
	var until time.Time
	if j.cfg.HorizonDays > 0 {
		until = today.AddDate(0, 0, j.cfg.HorizonDays)
	}
	saved := 0
	for _, d := range days {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		if d.Before(today) || (!until.IsZero() && !d.Before(until)) {
			continue
		}
		if err := j.refreshDay(ctx, d); err != nil {
			j.log.Errorf("refresh %s: %v", store.DayKey(d), err)
			monitoring.CaptureException(err, map[string]string{"component": "refresh", "date": store.DayKey(d)})
			continue
		}
		saved++
	}
	j.log.Infof("refreshed %d of %d stored days", saved, len(days))
	return saved, nil
}

func (j *Job) refreshDay(ctx context.Context, date time.Time) error {
	rec, err := j.store.LoadDay(ctx, date)
	if err != nil {
		return err
	}
	sim := j.recalc.RecalculateDay(ctx, rec.Date, rec.Blocks, rec.Base, rec.Mode)
	rec.Blocks = sim.Blocks()
	rec.UpdatedAt = j.now().UTC()
	return j.store.SaveDay(ctx, rec)
}

// Start schedules RunOnce. Runs never overlap; a run still in progress makes
// the next tick a no-op.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return fmt.Errorf("refresh: already started")
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(j.cfg.Schedule, func() {
		if _, err := j.RunOnce(ctx); err != nil {
			j.log.Warnf("refresh run: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("refresh: schedule: %w", err)
	}
	c.Start()
	j.cron = c
	j.log.Infof("refresh job scheduled: %s", j.cfg.Schedule)
	return nil
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (j *Job) Stop() {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
