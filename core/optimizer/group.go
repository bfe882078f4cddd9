package optimizer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kilianp07/blockplan/core/model"
)

// GroupKind says how a source group may be selected.
type GroupKind string

const (
	// GroupIndivisible groups are taken as a whole or not at all.
	GroupIndivisible GroupKind = "indivisible"
	// GroupExclusive groups contribute at most one option.
	GroupExclusive GroupKind = "exclusive"
)

// SourceGroup describes where candidate blocks came from, e.g. one school
// timetable or one academy's list of alternative class times.
type SourceGroup struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	Kind     GroupKind `json:"kind" yaml:"kind"`
	Category string    `json:"category,omitempty" yaml:"category,omitempty"`
	// Priority overrides the classifier when set.
	Priority int `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// Validate checks the group declaration.
func (g SourceGroup) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return fmt.Errorf("source group: empty id")
	}
	switch g.Kind {
	case "", GroupIndivisible, GroupExclusive:
	default:
		return fmt.Errorf("source group %q: unknown kind %q", g.ID, g.Kind)
	}
	if g.Priority < 0 || g.Priority > model.PriorityLowest {
		return fmt.Errorf("source group %q: priority %d out of range", g.ID, g.Priority)
	}
	return nil
}

// option is one selectable unit of a group.
type option struct {
	key         string
	frequency   int
	priority    int
	placeholder bool
	blocks      []model.TimeBlock
}

func (o option) earliest() model.Clock {
	min := model.Clock(model.MinutesPerDay)
	for _, b := range o.blocks {
		if s := b.SemanticStart(); s < min {
			min = s
		}
	}
	return min
}

// plan is a classified group ready for the category phase.
type plan struct {
	group    SourceGroup
	category string
	priority int
	options  []option
	// fillers are placeholder blocks of an indivisible group, tried after
	// every real activity.
	fillers []model.TimeBlock
}

type planner struct {
	classifier   Classifier
	placeholders placeholders
	classified   map[string]Classification
	fallbacks    int
	onFallback   func(groupID string, err error)
}

// build groups blocks by source, classifies each group once and orders the
// plans by ascending priority, then group id.
func (p *planner) build(ctx context.Context, pool []model.TimeBlock, groups map[string]SourceGroup) []plan {
	byGroup := make(map[string][]model.TimeBlock)
	var order []string
	for _, b := range pool {
		id := groupID(b)
		if _, ok := byGroup[id]; !ok {
			order = append(order, id)
		}
		byGroup[id] = append(byGroup[id], b)
	}

	plans := make([]plan, 0, len(order))
	for _, id := range order {
		g, ok := groups[id]
		if !ok {
			g = SourceGroup{ID: id, Kind: GroupIndivisible}
		}
		if g.Kind == "" {
			g.Kind = GroupIndivisible
		}
		plans = append(plans, p.plan(ctx, g, byGroup[id]))
	}
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].priority != plans[j].priority {
			return plans[i].priority < plans[j].priority
		}
		return plans[i].group.ID < plans[j].group.ID
	})
	return plans
}

func (p *planner) plan(ctx context.Context, g SourceGroup, blocks []model.TimeBlock) plan {
	cls := p.classify(ctx, g, blocks)
	groupPriority := cls.Priority
	if g.Priority > 0 {
		groupPriority = g.Priority
	}

	annotated := make([]model.TimeBlock, len(blocks))
	for i, b := range blocks {
		if b.Category == "" {
			b.Category = cls.Category
		}
		b.Fixed = false
		switch {
		case p.placeholders.match(b.Title):
			b.Priority = model.PriorityLowest
		case b.Priority == 0:
			b.Priority = groupPriority
		}
		annotated[i] = b
	}

	pl := plan{group: g, category: cls.Category, priority: groupPriority}
	if g.Kind == GroupExclusive {
		pl.options = p.exclusiveOptions(annotated)
		return pl
	}
	var real []model.TimeBlock
	for _, b := range annotated {
		if p.placeholders.match(b.Title) {
			pl.fillers = append(pl.fillers, b)
			continue
		}
		real = append(real, b)
	}
	if len(real) == 0 {
		pl.priority = model.PriorityLowest
		return pl
	}
	pl.options = []option{{key: g.ID, frequency: len(real), priority: groupPriority, blocks: real}}
	return pl
}

// exclusiveOptions splits a group into options keyed by frequency and
// variant. Without a variant label the start time names the variant, so the
// per-day blocks of a "5x a week at 17:00" offer form one option. Options are
// ordered by real activity first, descending frequency, ascending priority and
// earliest start.
func (p *planner) exclusiveOptions(blocks []model.TimeBlock) []option {
	index := make(map[string]int)
	var opts []option
	for _, b := range blocks {
		key := fmt.Sprintf("%d|%s", b.EffectiveFrequency(), b.SemanticStart())
		if b.Variant != "" {
			key = fmt.Sprintf("%d|%s", b.EffectiveFrequency(), b.Variant)
		}
		i, ok := index[key]
		if !ok {
			i = len(opts)
			index[key] = i
			opts = append(opts, option{key: key, placeholder: true})
		}
		o := &opts[i]
		o.blocks = append(o.blocks, b)
		if !p.placeholders.match(b.Title) {
			o.placeholder = false
		}
	}
	for i := range opts {
		opts[i].frequency = optionFrequency(opts[i].blocks)
		opts[i].priority = model.PriorityLowest
		for _, b := range opts[i].blocks {
			if pr := b.EffectivePriority(); pr < opts[i].priority {
				opts[i].priority = pr
			}
		}
		if opts[i].placeholder {
			opts[i].priority = model.PriorityLowest
		}
	}
	sort.SliceStable(opts, func(i, j int) bool {
		a, b := opts[i], opts[j]
		if a.placeholder != b.placeholder {
			return !a.placeholder
		}
		if a.frequency != b.frequency {
			return a.frequency > b.frequency
		}
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		if ea, eb := a.earliest(), b.earliest(); ea != eb {
			return ea < eb
		}
		return a.key < b.key
	})
	return opts
}

// optionFrequency is the larger of the declared frequencies and the number of
// distinct weekdays and dates the option occupies.
func optionFrequency(blocks []model.TimeBlock) int {
	var days model.DaySet
	dates := make(map[string]struct{})
	declared := 0
	for _, b := range blocks {
		if b.Frequency > declared {
			declared = b.Frequency
		}
		if b.IsDated() {
			dates[b.Date.Format("2006-01-02")] = struct{}{}
			continue
		}
		days |= b.Days
	}
	occupied := days.Len() + len(dates)
	if declared > occupied {
		return declared
	}
	if occupied == 0 {
		return 1
	}
	return occupied
}

func (p *planner) classify(ctx context.Context, g SourceGroup, blocks []model.TimeBlock) Classification {
	if c, ok := p.classified[g.ID]; ok {
		return c
	}
	cand := Candidate{GroupID: g.ID, GroupTitle: g.Title, CategoryHint: g.Category}
	seen := make(map[string]struct{})
	for _, b := range blocks {
		if _, ok := seen[b.Title]; ok || p.placeholders.match(b.Title) {
			continue
		}
		seen[b.Title] = struct{}{}
		cand.Titles = append(cand.Titles, b.Title)
	}
	if cand.CategoryHint == "" {
		for _, b := range blocks {
			if b.Category != "" {
				cand.CategoryHint = b.Category
				break
			}
		}
	}

	c, err := p.classifier.Classify(ctx, cand)
	if err == nil && (c.Priority < model.PriorityHighest || c.Priority > model.PriorityLowest || c.Category == "") {
		err = fmt.Errorf("invalid classification %+v", c)
	}
	if err != nil {
		p.fallbacks++
		if p.onFallback != nil {
			p.onFallback(g.ID, err)
		}
		c = Fallback
	}
	p.classified[g.ID] = c
	return c
}

// groupID returns the block's source group, or an implicit group keyed by
// title for blocks without one.
func groupID(b model.TimeBlock) string {
	if b.SourceGroupID != "" {
		return b.SourceGroupID
	}
	return "implicit:" + normalizeTitle(b.Title)
}
