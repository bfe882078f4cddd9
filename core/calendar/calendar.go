// Package calendar projects weekly blocks onto concrete dates.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/kilianp07/blockplan/core/model"
	"github.com/kilianp07/blockplan/core/overlap"
)

var weekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// Occurrence is one dated instance of a block.
type Occurrence struct {
	Block model.TimeBlock
	Start time.Time
	End   time.Time
}

// Rule returns the weekly recurrence of a recurring block, anchored at the
// block start on the date of dtstart.
func Rule(b model.TimeBlock, dtstart time.Time) (*rrule.RRule, error) {
	if b.IsDated() {
		return nil, fmt.Errorf("calendar: %q is a dated block", b.Title)
	}
	if b.Days == 0 {
		return nil, fmt.Errorf("calendar: %q has no weekdays", b.Title)
	}
	by := make([]rrule.Weekday, 0, b.Days.Len())
	for _, d := range b.Days.Days() {
		by = append(by, weekdays[d])
	}
	day := model.DateOf(dtstart)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, int(b.SemanticStart()), 0, 0, dtstart.Location())
	return rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   start,
		Byweekday: by,
		Wkst:      rrule.MO,
	})
}

// RRule returns the RFC 5545 RRULE value (without DTSTART) of a recurring
// block, e.g. "FREQ=WEEKLY;WKST=MO;BYDAY=MO,WE".
func RRule(b model.TimeBlock) (string, error) {
	r, err := Rule(b, time.Date(2000, 1, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return "", err
	}
	return r.OrigOptions.RRuleString(), nil
}

// Occurrences lists the instances of b starting in [from, to). Times are in
// from's location.
func Occurrences(b model.TimeBlock, from, to time.Time) ([]Occurrence, error) {
	if !to.After(from) {
		return nil, nil
	}
	dur := time.Duration(b.Duration()) * time.Minute
	if b.IsDated() {
		d := model.DateOf(b.Date)
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, int(b.SemanticStart()), 0, 0, from.Location())
		if start.Before(from) || !start.Before(to) {
			return nil, nil
		}
		return []Occurrence{{Block: b, Start: start, End: start.Add(dur)}}, nil
	}
	r, err := Rule(b, from)
	if err != nil {
		return nil, err
	}
	var out []Occurrence
	for _, s := range r.Between(from, to, true) {
		if !s.Before(to) {
			continue
		}
		out = append(out, Occurrence{Block: b, Start: s, End: s.Add(dur)})
	}
	return out, nil
}

// Expand returns every occurrence of blocks in [from, to) ordered by start,
// applying the dated-over-recurring rule of BlocksOn for each day.
func Expand(blocks []model.TimeBlock, from, to time.Time) ([]Occurrence, error) {
	var out []Occurrence
	y, m, d := from.Date()
	for day := time.Date(y, m, d, 0, 0, 0, 0, from.Location()); day.Before(to); day = day.AddDate(0, 0, 1) {
		for _, b := range BlocksOn(blocks, day) {
			occ, err := Occurrences(b, maxTime(from, day), minTime(to, day.AddDate(0, 0, 1)))
			if err != nil {
				return nil, err
			}
			out = append(out, occ...)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// BlocksOn returns the blocks that apply on date. A recurring block is
// dropped when a dated block of that date replaces it: same source group and
// title, or an overlapping time range.
func BlocksOn(blocks []model.TimeBlock, date time.Time) []model.TimeBlock {
	var dated, recurring []model.TimeBlock
	for _, b := range blocks {
		if !b.AppliesOn(date) {
			continue
		}
		if b.IsDated() {
			dated = append(dated, b)
		} else {
			recurring = append(recurring, b)
		}
	}
	out := append([]model.TimeBlock(nil), dated...)
	for _, r := range recurring {
		if !replaced(r, dated) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SemanticStart() < out[j].SemanticStart() })
	return out
}

func replaced(r model.TimeBlock, dated []model.TimeBlock) bool {
	for _, d := range dated {
		if d.SourceGroupID == r.SourceGroupID && d.Title == r.Title {
			return true
		}
		if overlap.Intervals(r.SemanticStart(), r.SemanticEnd(), d.SemanticStart(), d.SemanticEnd()) {
			return true
		}
	}
	return false
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
