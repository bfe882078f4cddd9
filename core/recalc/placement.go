package recalc

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/blockplan/core/events"
	"github.com/kilianp07/blockplan/core/metrics"
	"github.com/kilianp07/blockplan/core/model"
	"github.com/kilianp07/blockplan/internal/eventbus"
)

// Reason explains a rejected placement.
type Reason string

const (
	ReasonBlocked  Reason = "blocked_time_conflict"
	ReasonPrevious Reason = "previous_slot_conflict"
	ReasonNext     Reason = "next_slot_conflict"
)

// Details carries the times behind a verdict.
type Details struct {
	ActualStart  model.Clock `json:"actual_start"`
	TravelBefore int         `json:"travel_before"`
	End          model.Clock `json:"end"`
	Window       *Window     `json:"window,omitempty"`
	Neighbour    string      `json:"neighbour,omitempty"`
	// NeighbourTime is the previous block's end or the next block's actual
	// start, depending on the reason.
	NeighbourTime model.Clock `json:"neighbour_time,omitempty"`
}

// Validation is the verdict on a proposed block.
type Validation struct {
	Valid   bool    `json:"valid"`
	Reason  Reason  `json:"reason,omitempty"`
	Details Details `json:"details"`
}

// ValidatePlacement simulates day with candidate inserted at its semantic
// time and checks, in order, blocked windows, the previous block and the next
// block. A malformed candidate is an error, an infeasible one is not.
func (r *Recalculator) ValidatePlacement(ctx context.Context, date time.Time, day []model.TimeBlock, candidate model.TimeBlock, base *model.Location, mode model.TravelMode) (Validation, error) {
	if err := candidate.Validate(); err != nil {
		return Validation{}, fmt.Errorf("recalc: candidate: %w", err)
	}
	if mode == "" {
		mode = r.cfg.DefaultMode
	}
	blocks := append(append([]model.TimeBlock(nil), day...), candidate)
	entries := r.simulate(ctx, blocks, base, mode)

	pos := 0
	for i, e := range entries {
		if e.input == len(day) {
			pos = i
			break
		}
	}
	v := r.judge(date, entries, pos)

	if err := r.metrics.RecordPlacement(metrics.PlacementRecord{
		Date: model.DateOf(date), Valid: v.Valid, Reason: string(v.Reason), Time: time.Now(),
	}); err != nil {
		r.logger.Errorf("placement metrics error: %v", err)
	}
	eventbus.PublishTo(r.bus, events.PlacementEvent{Date: model.DateOf(date), Title: candidate.Title, Valid: v.Valid, Reason: string(v.Reason)})
	return v, nil
}

func (r *Recalculator) judge(date time.Time, entries []Entry, pos int) Validation {
	c := entries[pos]
	d := Details{ActualStart: c.ActualStart, TravelBefore: c.TravelBefore, End: c.Block.SemanticEnd()}

	for _, w := range r.Windows(date) {
		if w.Contains(c.ActualStart) {
			d.Window = &w
			return Validation{Reason: ReasonBlocked, Details: d}
		}
	}
	if pos > 0 {
		prev := entries[pos-1].Block
		if c.ActualStart < prev.SemanticEnd() {
			d.Neighbour, d.NeighbourTime = prev.Title, prev.SemanticEnd()
			return Validation{Reason: ReasonPrevious, Details: d}
		}
	}
	if pos+1 < len(entries) {
		next := entries[pos+1]
		if c.Block.SemanticEnd() > next.ActualStart {
			d.Neighbour, d.NeighbourTime = next.Block.Title, next.ActualStart
			return Validation{Reason: ReasonNext, Details: d}
		}
	}
	return Validation{Valid: true, Details: d}
}
