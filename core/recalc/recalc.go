// Package recalc re-simulates a day's schedule under travel constraints.
//
// Blocks keep their semantic times. A simulation only derives the travel
// cost before each block and the resulting actual start, recording the
// untouched originals the first time a block is adjusted so that repeated
// runs never compound.
package recalc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/blockplan/core/events"
	"github.com/kilianp07/blockplan/core/logger"
	"github.com/kilianp07/blockplan/core/metrics"
	"github.com/kilianp07/blockplan/core/model"
	"github.com/kilianp07/blockplan/core/travel"
	"github.com/kilianp07/blockplan/internal/eventbus"
)

var (
	// ErrIndex is returned when an edit refers to a missing entry.
	ErrIndex = errors.New("recalc: entry index out of range")
	// ErrPlacement is returned by Insert when the block cannot be placed.
	ErrPlacement = errors.New("recalc: placement rejected")
)

// Estimator resolves travel durations; *travel.Engine implements it.
type Estimator interface {
	Lookup(ctx context.Context, from, to *model.Location, mode model.TravelMode) travel.Estimate
	Prefetch(ctx context.Context, routes []travel.Route) error
}

// Entry is one simulated block.
type Entry struct {
	Block            model.TimeBlock `json:"block"`
	TravelBefore     int             `json:"travel_before"`
	ActualStart      model.Clock     `json:"actual_start"`
	PreviousLocation *model.Location `json:"previous_location,omitempty"`
	// Location is where the block takes place: its own location, or the
	// inherited current location when the block has none.
	Location *model.Location `json:"location,omitempty"`
	Source   travel.Source   `json:"source,omitempty"`

	input int
}

// DaySimulation is the ordered result of a recalculation.
type DaySimulation struct {
	Date    time.Time        `json:"date"`
	Mode    model.TravelMode `json:"mode"`
	Base    *model.Location  `json:"base,omitempty"`
	Entries []Entry          `json:"entries"`
}

// Blocks returns the adjusted blocks in simulation order.
func (d DaySimulation) Blocks() []model.TimeBlock {
	out := make([]model.TimeBlock, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = e.Block
	}
	return out
}

// Adjusted counts entries whose start moved because of travel.
func (d DaySimulation) Adjusted() int {
	n := 0
	for _, e := range d.Entries {
		if e.TravelBefore > 0 {
			n++
		}
	}
	return n
}

// TravelMinutes sums the travel before every entry.
func (d DaySimulation) TravelMinutes() int {
	n := 0
	for _, e := range d.Entries {
		n += e.TravelBefore
	}
	return n
}

// Recalculator rebuilds day simulations and validates placements.
type Recalculator struct {
	cfg       Config
	estimator Estimator
	logger    logger.Logger
	metrics   metrics.MetricsSink
	bus       eventbus.EventBus
}

// New builds a Recalculator. A nil estimator treats every trip as free.
func New(cfg Config, estimator Estimator, log logger.Logger, sink metrics.MetricsSink, bus eventbus.EventBus) *Recalculator {
	cfg.SetDefaults()
	return &Recalculator{cfg: cfg, estimator: estimator, logger: logger.Nop(log), metrics: metrics.OrNop(sink), bus: bus}
}

// Windows returns the blocked windows active on date.
func (r *Recalculator) Windows(date time.Time) []Window {
	var out []Window
	for _, w := range r.cfg.BlockedWindows {
		if w.AppliesOn(date) {
			out = append(out, w)
		}
	}
	return out
}

// RecalculateDay simulates blocks in ascending semantic start order starting
// from base. An empty mode uses the configured default.
func (r *Recalculator) RecalculateDay(ctx context.Context, date time.Time, blocks []model.TimeBlock, base *model.Location, mode model.TravelMode) DaySimulation {
	if mode == "" {
		mode = r.cfg.DefaultMode
	}
	sim := DaySimulation{Date: model.DateOf(date), Mode: mode, Base: base, Entries: r.simulate(ctx, blocks, base, mode)}

	if err := r.metrics.RecordRecalculation(metrics.RecalculationRecord{
		Date:          sim.Date,
		Mode:          string(mode),
		Blocks:        len(sim.Entries),
		Adjusted:      sim.Adjusted(),
		TravelMinutes: sim.TravelMinutes(),
		Time:          time.Now(),
	}); err != nil {
		r.logger.Errorf("recalculation metrics error: %v", err)
	}
	r.logger.Debugw("day recalculated", map[string]any{
		"date": sim.Date.Format(time.DateOnly), "mode": string(mode), "blocks": len(sim.Entries), "adjusted": sim.Adjusted(),
	})
	eventbus.PublishTo(r.bus, events.DayRecalculatedEvent{Date: sim.Date, Mode: mode, Blocks: len(sim.Entries), Adjusted: sim.Adjusted()})
	return sim
}

func (r *Recalculator) simulate(ctx context.Context, blocks []model.TimeBlock, base *model.Location, mode model.TravelMode) []Entry {
	entries := make([]Entry, len(blocks))
	for i, b := range blocks {
		entries[i] = Entry{Block: b, input: i}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Block, entries[j].Block
		if a.SemanticStart() != b.SemanticStart() {
			return a.SemanticStart() < b.SemanticStart()
		}
		return a.SemanticEnd() < b.SemanticEnd()
	})

	travelling := r.estimator != nil && mode != model.TravelNormal
	if travelling && !r.cfg.SkipPrefetch {
		if err := r.estimator.Prefetch(ctx, routes(entries, base, mode)); err != nil {
			r.logger.Debugf("route prefetch stopped: %v", err)
		}
	}

	cursor := base
	for i := range entries {
		e := &entries[i]
		b := &e.Block
		e.PreviousLocation = cursor
		start := b.SemanticStart()
		if b.Location == nil {
			e.Location = cursor
			b.TravelBefore, b.ActualStart = 0, start
			e.ActualStart = start
			continue
		}
		e.Location = b.Location
		minutes := 0
		if travelling {
			est := r.estimator.Lookup(ctx, cursor, b.Location, mode)
			minutes, e.Source = est.Minutes, est.Source
		}
		if !b.Adjusted {
			b.OriginalStart, b.OriginalEnd = b.Start, b.End
			b.Adjusted = true
		}
		b.TravelBefore = minutes
		b.ActualStart = start.Add(-minutes)
		e.TravelBefore, e.ActualStart = minutes, b.ActualStart
		cursor = b.Location
	}
	return entries
}

// routes lists the trips a simulation will look up. The location chain does
// not depend on durations, so it can be resolved up front.
func routes(entries []Entry, base *model.Location, mode model.TravelMode) []travel.Route {
	var out []travel.Route
	cursor := base
	for _, e := range entries {
		if e.Block.Location == nil {
			continue
		}
		if cursor != nil {
			out = append(out, travel.Route{From: cursor, To: e.Block.Location, Mode: mode})
		}
		cursor = e.Block.Location
	}
	return out
}

// Insert adds block to the day after validating its placement.
func (r *Recalculator) Insert(ctx context.Context, sim DaySimulation, block model.TimeBlock) (DaySimulation, error) {
	v, err := r.ValidatePlacement(ctx, sim.Date, sim.Blocks(), block, sim.Base, sim.Mode)
	if err != nil {
		return sim, err
	}
	if !v.Valid {
		return sim, fmt.Errorf("%w: %s", ErrPlacement, v.Reason)
	}
	return r.RecalculateDay(ctx, sim.Date, append(sim.Blocks(), block), sim.Base, sim.Mode), nil
}

// Delete removes entry i and rebuilds the day.
func (r *Recalculator) Delete(ctx context.Context, sim DaySimulation, i int) (DaySimulation, error) {
	if i < 0 || i >= len(sim.Entries) {
		return sim, fmt.Errorf("%w: %d", ErrIndex, i)
	}
	blocks := sim.Blocks()
	blocks = append(blocks[:i:i], blocks[i+1:]...)
	return r.RecalculateDay(ctx, sim.Date, blocks, sim.Base, sim.Mode), nil
}

// Swap exchanges the semantic time slots of entries i and j and rebuilds the
// day. Travel adjustments of both blocks are reset.
func (r *Recalculator) Swap(ctx context.Context, sim DaySimulation, i, j int) (DaySimulation, error) {
	n := len(sim.Entries)
	if i < 0 || i >= n || j < 0 || j >= n {
		return sim, fmt.Errorf("%w: %d, %d", ErrIndex, i, j)
	}
	blocks := sim.Blocks()
	a, b := resetTravel(blocks[i]), resetTravel(blocks[j])
	a.Start, a.End, b.Start, b.End = b.Start, b.End, a.Start, a.End
	blocks[i], blocks[j] = a, b
	return r.RecalculateDay(ctx, sim.Date, blocks, sim.Base, sim.Mode), nil
}

// resetTravel restores the semantic times and clears derived travel fields.
func resetTravel(b model.TimeBlock) model.TimeBlock {
	b.Start, b.End = b.SemanticStart(), b.SemanticEnd()
	b.Adjusted = false
	b.OriginalStart, b.OriginalEnd = 0, 0
	b.ActualStart, b.TravelBefore = 0, 0
	return b
}
