// Package optimizer selects one conflict-free set of blocks from a pool
// organised in source groups.
//
// A run has three phases. Pins are admitted first and evict every candidate
// they collide with. Groups are then visited by ascending priority: an
// indivisible group is taken whole if it fits, an exclusive group contributes
// its first fitting option. Finally, when pins cost the plan activities, a
// backfill pass tops the selection up from the full pool.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/blockplan/core/events"
	"github.com/kilianp07/blockplan/core/logger"
	"github.com/kilianp07/blockplan/core/metrics"
	"github.com/kilianp07/blockplan/core/model"
	"github.com/kilianp07/blockplan/core/monitoring"
	"github.com/kilianp07/blockplan/core/overlap"
	"github.com/kilianp07/blockplan/internal/eventbus"
)

// ErrInvalidInput is returned when groups or pins are malformed.
var ErrInvalidInput = errors.New("optimizer: invalid input")

// Stats summarises a run.
type Stats struct {
	PoolSize            int `json:"pool_size"`
	Rejected            int `json:"rejected"`
	Pinned              int `json:"pinned"`
	RemovedByPins       int `json:"removed_by_pins"`
	ExpectedCount       int `json:"expected_count"`
	Selected            int `json:"selected"`
	Backfilled          int `json:"backfilled"`
	GroupsAccepted      int `json:"groups_accepted"`
	GroupsSkipped       int `json:"groups_skipped"`
	ClassifierFallbacks int `json:"classifier_fallbacks"`
}

// Outcome is the result of a run. Selected holds pins (Fixed set) and chosen
// candidates; Removed holds candidates evicted by pins; Rejected holds pool
// entries that failed validation.
type Outcome struct {
	RunID    string            `json:"run_id"`
	Selected []model.TimeBlock `json:"selected"`
	Removed  []model.TimeBlock `json:"removed"`
	Rejected []model.Rejection `json:"-"`
	Stats    Stats             `json:"stats"`
}

// Optimizer runs category optimisation.
type Optimizer struct {
	cfg          Config
	classifier   Classifier
	placeholders placeholders
	logger       logger.Logger
	metrics      metrics.MetricsSink
	bus          eventbus.EventBus
}

// New builds an Optimizer. A nil classifier uses the default rules.
func New(cfg Config, classifier Classifier, log logger.Logger, sink metrics.MetricsSink, bus eventbus.EventBus) *Optimizer {
	cfg.SetDefaults()
	if classifier == nil {
		classifier = NewRuleClassifier(nil)
	}
	return &Optimizer{
		cfg:          cfg,
		classifier:   classifier,
		placeholders: newPlaceholders(cfg.PlaceholderTitles),
		logger:       logger.Nop(log),
		metrics:      metrics.OrNop(sink),
		bus:          bus,
	}
}

// IsPlaceholder reports whether title is treated as a placeholder.
func (o *Optimizer) IsPlaceholder(title string) bool { return o.placeholders.match(title) }

// Optimize selects blocks from pool. Pinned blocks are always part of the
// result. Invalid pool entries are skipped and reported in Outcome.Rejected;
// invalid pins or groups fail the run.
func (o *Optimizer) Optimize(ctx context.Context, pool []model.TimeBlock, groups []SourceGroup, pinned []model.TimeBlock) (Outcome, error) {
	start := time.Now()
	out := Outcome{RunID: uuid.NewString()}

	byID := make(map[string]SourceGroup, len(groups))
	for _, g := range groups {
		if err := g.Validate(); err != nil {
			return out, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		byID[g.ID] = g
	}
	for _, p := range pinned {
		if err := p.Validate(); err != nil {
			return out, fmt.Errorf("%w: pin %q: %v", ErrInvalidInput, p.Title, err)
		}
	}
	if overlap.Any(pinned) {
		o.logger.Warnf("optimizer run %s: pinned blocks overlap each other", out.RunID)
	}

	valid, rejected := model.FilterValid(pool)
	out.Rejected = rejected

	sel := newSelection(pinned)
	working, removed, lost := prune(valid, sel)
	out.Removed = removed

	p := &planner{
		classifier:   o.classifier,
		placeholders: o.placeholders,
		classified:   map[string]Classification{},
		onFallback: func(groupID string, err error) {
			o.logger.Warnf("optimizer run %s: classifier failed for group %s: %v", out.RunID, groupID, err)
			monitoring.CaptureException(err, map[string]string{"component": "optimizer", "group": groupID})
		},
	}

	plans := p.build(ctx, working, byID)
	sel, accepted, skipped := categoryPhase(ctx, plans, sel)
	if err := ctx.Err(); err != nil {
		return out, err
	}

	expected := sel.unpinned()
	if len(removed) > 0 {
		fullPlans := p.build(ctx, valid, byID)
		baseline, _, _ := categoryPhase(ctx, fullPlans, newSelection(nil))
		expected = baseline.unpinned()
		if !o.cfg.DisableBackfill && sel.unpinned() < expected {
			sel = backfill(fullPlans, sel, lost, expected)
		}
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	out.Selected = sortBlocks(sel.blocks)
	out.Stats = Stats{
		PoolSize:            len(pool),
		Rejected:            len(rejected),
		Pinned:              len(pinned),
		RemovedByPins:       len(removed),
		ExpectedCount:       expected,
		Selected:            len(out.Selected),
		Backfilled:          sel.backfilled,
		GroupsAccepted:      accepted,
		GroupsSkipped:       skipped,
		ClassifierFallbacks: p.fallbacks,
	}

	o.logger.Infof("optimizer run %s: selected %d of %d (pinned %d, removed %d, backfilled %d)",
		out.RunID, out.Stats.Selected, len(pool), len(pinned), len(removed), sel.backfilled)
	if err := o.metrics.RecordOptimization(metrics.OptimizationRecord{
		RunID:               out.RunID,
		PoolSize:            len(pool),
		Pinned:              len(pinned),
		RemovedByPins:       len(removed),
		Selected:            out.Stats.Selected,
		Backfilled:          sel.backfilled,
		ClassifierFallbacks: p.fallbacks,
		Elapsed:             time.Since(start),
		Time:                start,
	}); err != nil {
		o.logger.Errorf("optimizer metrics error: %v", err)
	}
	eventbus.PublishTo(o.bus, events.OptimizationEvent{
		RunID:         out.RunID,
		Selected:      out.Stats.Selected,
		RemovedByPins: len(removed),
		Backfilled:    sel.backfilled,
	})
	return out, nil
}

// prune drops candidates that collide with or duplicate a pin. lost records
// the groups that lost at least one block.
func prune(pool []model.TimeBlock, sel selection) (kept, removed []model.TimeBlock, lost map[string]bool) {
	lost = map[string]bool{}
	for _, b := range pool {
		if !sel.fits([]model.TimeBlock{b}) {
			removed = append(removed, b)
			lost[groupID(b)] = true
			continue
		}
		kept = append(kept, b)
	}
	return kept, removed, lost
}

// categoryPhase visits plans in order and accepts the first fitting option of
// each. Placeholder options and fillers are only tried after every real
// activity had its chance.
func categoryPhase(ctx context.Context, plans []plan, sel selection) (selection, int, int) {
	accepted, skipped := 0, 0
	var deferred []plan
	for _, pl := range plans {
		if ctx.Err() != nil {
			return sel, accepted, skipped
		}
		took := false
		hasPlaceholder := false
		for _, opt := range pl.options {
			if opt.placeholder {
				hasPlaceholder = true
				continue
			}
			if sel.fits(opt.blocks) {
				sel = sel.with(pl.group.ID, chosenKey(pl, opt), opt.blocks)
				took = true
				break
			}
		}
		switch {
		case took:
			accepted++
		case !hasPlaceholder && len(pl.options) > 0:
			skipped++
		}
		if hasPlaceholder || len(pl.fillers) > 0 {
			deferred = append(deferred, pl)
		}
	}

	var fillers []model.TimeBlock
	for _, pl := range deferred {
		fillers = append(fillers, pl.fillers...)
		if pl.group.Kind != GroupExclusive || sel.hasChosen(pl.group.ID) {
			continue
		}
		for _, opt := range pl.options {
			if opt.placeholder && sel.fits(opt.blocks) {
				sel = sel.with(pl.group.ID, opt.key, opt.blocks)
				break
			}
		}
	}
	for _, b := range sortBlocks(fillers) {
		if sel.fits([]model.TimeBlock{b}) {
			sel = sel.with(groupID(b), "", []model.TimeBlock{b})
		}
	}
	return sel, accepted, skipped
}

func chosenKey(pl plan, opt option) string {
	if pl.group.Kind == GroupExclusive {
		return opt.key
	}
	return ""
}

type unit struct {
	groupID   string
	key       string
	exclusive bool
	lost      bool
	frequency int
	priority  int
	start     model.Clock
	blocks    []model.TimeBlock
}

// backfill tops sel up towards expected using candidates of the full pool.
// Groups that lost blocks to pins are preferred, then higher frequency. An
// indivisible group already broken by a pin may contribute single blocks.
func backfill(plans []plan, sel selection, lost map[string]bool, expected int) selection {
	var units []unit
	for _, pl := range plans {
		id := pl.group.ID
		if pl.group.Kind == GroupExclusive {
			for _, opt := range pl.options {
				units = append(units, unit{
					groupID: id, key: opt.key, exclusive: true, lost: lost[id],
					frequency: opt.frequency, priority: opt.priority, start: opt.earliest(), blocks: opt.blocks,
				})
			}
			continue
		}
		if !lost[id] {
			continue
		}
		for _, opt := range pl.options {
			for _, b := range opt.blocks {
				units = append(units, unit{
					groupID: id, lost: true, frequency: b.EffectiveFrequency(),
					priority: b.EffectivePriority(), start: b.SemanticStart(), blocks: []model.TimeBlock{b},
				})
			}
		}
	}
	sort.SliceStable(units, func(i, j int) bool {
		a, b := units[i], units[j]
		if a.lost != b.lost {
			return a.lost
		}
		if a.frequency != b.frequency {
			return a.frequency > b.frequency
		}
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		return a.start < b.start
	})

	for _, u := range units {
		if sel.unpinned() >= expected {
			break
		}
		if u.exclusive && sel.hasChosen(u.groupID) {
			continue
		}
		if !sel.fits(u.blocks) {
			continue
		}
		key := ""
		if u.exclusive {
			key = u.key
		}
		sel = sel.with(u.groupID, key, u.blocks)
		sel.backfilled += len(u.blocks)
	}
	return sel
}

// sortBlocks orders blocks by first weekday (recurring before dated), start
// and title.
func sortBlocks(blocks []model.TimeBlock) []model.TimeBlock {
	out := append([]model.TimeBlock(nil), blocks...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsDated() != b.IsDated() {
			return !a.IsDated()
		}
		if a.IsDated() && !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if da, db := firstDay(a), firstDay(b); da != db {
			return da < db
		}
		if a.SemanticStart() != b.SemanticStart() {
			return a.SemanticStart() < b.SemanticStart()
		}
		return a.Title < b.Title
	})
	return out
}

func firstDay(b model.TimeBlock) int {
	days := b.Days.Days()
	if len(days) == 0 {
		return 7
	}
	return (int(days[0]) + 6) % 7
}
