package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidBlock wraps every validation failure of a TimeBlock.
var ErrInvalidBlock = errors.New("invalid block")

// Priority bounds. Lower values are more protected.
const (
	PriorityHighest = 1
	PriorityLowest  = 5
)

// TimeBlock is a candidate or committed interval of activity. A block either
// recurs on a set of weekdays or happens on one specific Date.
type TimeBlock struct {
	ID            string    `json:"id,omitempty"`
	Title         string    `json:"title"`
	Category      string    `json:"category,omitempty"`
	Priority      int       `json:"priority,omitempty"`
	Days          DaySet    `json:"days,omitempty"`
	Date          time.Time `json:"date,omitempty"`
	Start         Clock     `json:"start"`
	End           Clock     `json:"end"`
	SourceGroupID string    `json:"source_group_id,omitempty"`
	// Frequency is the declared number of weekly occurrences of the option
	// this block belongs to. Zero means "derive from Days".
	Frequency int       `json:"frequency,omitempty"`
	Variant   string    `json:"variant,omitempty"`
	Location  *Location `json:"location,omitempty"`
	Fixed     bool      `json:"fixed,omitempty"`

	// Travel adjustment, written back by the recalculator.
	TravelBefore  int   `json:"travel_before,omitempty"`
	ActualStart   Clock `json:"actual_start,omitempty"`
	Adjusted      bool  `json:"adjusted,omitempty"`
	OriginalStart Clock `json:"original_start,omitempty"`
	OriginalEnd   Clock `json:"original_end,omitempty"`
}

// IsDated reports whether the block happens on a specific calendar date.
func (b TimeBlock) IsDated() bool { return !b.Date.IsZero() }

// SemanticStart is the pre-travel start time. Once a block has been adjusted
// the untouched original is authoritative.
func (b TimeBlock) SemanticStart() Clock {
	if b.Adjusted {
		return b.OriginalStart
	}
	return b.Start
}

// SemanticEnd is the pre-travel end time.
func (b TimeBlock) SemanticEnd() Clock {
	if b.Adjusted {
		return b.OriginalEnd
	}
	return b.End
}

// Duration returns the block length in minutes.
func (b TimeBlock) Duration() int { return int(b.SemanticEnd() - b.SemanticStart()) }

// EffectiveFrequency returns the declared frequency or, when unset, the number
// of weekdays the block recurs on. Dated blocks count as one occurrence.
func (b TimeBlock) EffectiveFrequency() int {
	if b.Frequency > 0 {
		return b.Frequency
	}
	if n := b.Days.Len(); n > 0 {
		return n
	}
	return 1
}

// EffectivePriority clamps the priority to the valid range; unset means lowest.
func (b TimeBlock) EffectivePriority() int {
	if b.Priority < PriorityHighest || b.Priority > PriorityLowest {
		return PriorityLowest
	}
	return b.Priority
}

// AppliesOn reports whether the block takes place on the given date.
func (b TimeBlock) AppliesOn(date time.Time) bool {
	if b.IsDated() {
		return SameDate(b.Date, date)
	}
	return b.Days.Has(date.Weekday())
}

// Signature identifies the block content independently of its identity.
func (b TimeBlock) Signature() string {
	when := b.Days.String()
	if b.IsDated() {
		when = b.Date.Format(time.DateOnly)
	}
	return fmt.Sprintf("%s|%s|%s", strings.TrimSpace(b.Title), b.SemanticStart(), when)
}

// Validate rejects malformed records. It never coerces values.
func (b TimeBlock) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidBlock)
	}
	start, end := b.SemanticStart(), b.SemanticEnd()
	if start < 0 || end > MinutesPerDay {
		return fmt.Errorf("%w: %q time out of range", ErrInvalidBlock, b.Title)
	}
	if start >= end {
		return fmt.Errorf("%w: %q start %s not before end %s", ErrInvalidBlock, b.Title, start, end)
	}
	if !b.IsDated() && b.Days == 0 {
		return fmt.Errorf("%w: %q has neither days nor date", ErrInvalidBlock, b.Title)
	}
	if b.Priority != 0 && (b.Priority < PriorityHighest || b.Priority > PriorityLowest) {
		return fmt.Errorf("%w: %q priority %d out of range", ErrInvalidBlock, b.Title, b.Priority)
	}
	if b.Location != nil {
		if err := b.Location.Validate(); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidBlock, b.Title, err)
		}
	}
	return nil
}

// Rejection pairs a dropped record with the reason it was dropped.
type Rejection struct {
	Block TimeBlock
	Err   error
}

// FilterValid splits blocks into valid ones and rejections.
func FilterValid(blocks []TimeBlock) ([]TimeBlock, []Rejection) {
	valid := make([]TimeBlock, 0, len(blocks))
	var rejected []Rejection
	for _, b := range blocks {
		if err := b.Validate(); err != nil {
			rejected = append(rejected, Rejection{Block: b, Err: err})
			continue
		}
		valid = append(valid, b)
	}
	return valid, rejected
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether a and b fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
