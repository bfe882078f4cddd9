// Package ical exports a plan as an iCalendar feed: one weekly recurring
// VEVENT per recurring block and one single VEVENT per dated block.
package ical

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/kilianp07/blockplan/core/calendar"
	"github.com/kilianp07/blockplan/core/model"
)

const localLayout = "20060102T150405"

// uidSpace namespaces generated event UIDs.
var uidSpace = uuid.MustParse("6f1c1f52-6a3e-4a35-9d2a-2b7f5c0e8a11")

// Options controls the export.
type Options struct {
	// WeekOf anchors recurring events: each starts on its first occurrence in
	// the week beginning at WeekOf.
	WeekOf time.Time
	// Location of wall-clock times. Nil means UTC.
	Location *time.Location
	ProdID   string
	// Stamp is written as DTSTAMP; zero means now.
	Stamp time.Time
}

// Calendar builds the calendar of blocks.
func Calendar(blocks []model.TimeBlock, opts Options) (*ics.Calendar, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}
	y, m, d := opts.WeekOf.In(loc).Date()
	weekStart := time.Date(y, m, d, 0, 0, 0, 0, loc)
	weekEnd := weekStart.AddDate(0, 0, 7)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	if opts.ProdID != "" {
		cal.SetProductId(opts.ProdID)
	}
	for _, b := range blocks {
		var first calendar.Occurrence
		if b.IsDated() {
			dy, dm, dd := b.Date.Date()
			day := time.Date(dy, dm, dd, 0, 0, 0, 0, loc)
			occ, err := calendar.Occurrences(b, day, day.AddDate(0, 0, 1))
			if err != nil {
				return nil, err
			}
			if len(occ) == 0 {
				continue
			}
			first = occ[0]
		} else {
			occ, err := calendar.Occurrences(b, weekStart, weekEnd)
			if err != nil {
				return nil, fmt.Errorf("ical: %q: %w", b.Title, err)
			}
			if len(occ) == 0 {
				continue
			}
			first = occ[0]
		}

		ev := cal.AddEvent(eventUID(b))
		ev.SetDtStampTime(stamp)
		ev.SetSummary(b.Title)
		setTime(ev, ics.ComponentPropertyDtStart, first.Start, loc)
		setTime(ev, ics.ComponentPropertyDtEnd, first.End, loc)
		if b.Category != "" {
			ev.SetProperty(ics.ComponentPropertyCategories, b.Category)
		}
		if b.Location != nil {
			where := b.Location.Label
			if where == "" {
				where = b.Location.Query()
			}
			ev.SetLocation(where)
		}
		if b.TravelBefore > 0 {
			ev.SetDescription(fmt.Sprintf("Leave at %s (%d min travel)", b.ActualStart, b.TravelBefore))
		}
		if !b.IsDated() {
			rule, err := calendar.RRule(b)
			if err != nil {
				return nil, err
			}
			ev.AddRrule(rule)
		}
	}
	return cal, nil
}

// Export writes the calendar of blocks to w.
func Export(w io.Writer, blocks []model.TimeBlock, opts Options) error {
	cal, err := Calendar(blocks, opts)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, cal.Serialize())
	return err
}

func setTime(ev *ics.VEvent, prop ics.ComponentProperty, t time.Time, loc *time.Location) {
	if loc == time.UTC {
		ev.SetProperty(prop, t.UTC().Format(localLayout)+"Z")
		return
	}
	ev.SetProperty(prop, t.In(loc).Format(localLayout), &ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{loc.String()}})
}

func eventUID(b model.TimeBlock) string {
	if b.ID != "" {
		return b.ID
	}
	return uuid.NewSHA1(uidSpace, []byte(b.Signature())).String()
}
