package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDay is returned for unknown day codes.
var ErrInvalidDay = errors.New("invalid day")

var dayNames = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday, "mo": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday, "tu": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday, "we": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday, "th": time.Thursday,
	"fri": time.Friday, "friday": time.Friday, "fr": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday, "sa": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday, "su": time.Sunday,
}

// ParseDay parses a day code. Names are case-insensitive; numbers follow ISO
// 8601 (1 = Monday ... 7 = Sunday) and 0 is also accepted for Sunday so that
// both common conventions map to the same weekday.
func ParseDay(s string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if d, ok := dayNames[v]; ok {
		return d, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		switch {
		case n == 0 || n == 7:
			return time.Sunday, nil
		case n >= 1 && n <= 6:
			return time.Weekday(n), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDay, s)
}

// DaySet is a set of weekdays stored as a bitmask.
type DaySet uint8

// NewDaySet builds a set from the given weekdays.
func NewDaySet(days ...time.Weekday) DaySet {
	var s DaySet
	for _, d := range days {
		s |= 1 << uint(d%7)
	}
	return s
}

// Has reports whether d is in the set.
func (s DaySet) Has(d time.Weekday) bool { return s&(1<<uint(d%7)) != 0 }

// Intersects reports whether both sets share a weekday.
func (s DaySet) Intersects(o DaySet) bool { return s&o != 0 }

// Len returns the number of weekdays in the set.
func (s DaySet) Len() int {
	n := 0
	for v := s; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// Days returns the weekdays in Monday-first order.
func (s DaySet) Days() []time.Weekday {
	var out []time.Weekday
	for _, d := range mondayFirst {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

var mondayFirst = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}

// SortDays orders weekdays Monday first and removes duplicates.
func SortDays(days []time.Weekday) []time.Weekday {
	return NewDaySet(days...).Days()
}

// String renders the set as comma separated day codes, e.g. "mon,wed,fri".
func (s DaySet) String() string {
	codes := make([]string, 0, 7)
	for _, d := range s.Days() {
		codes = append(codes, DayCode(d))
	}
	return strings.Join(codes, ",")
}

// ParseDaySet parses a comma or space separated list of day codes.
func ParseDaySet(s string) (DaySet, error) {
	var set DaySet
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '/' }) {
		d, err := ParseDay(f)
		if err != nil {
			return 0, err
		}
		set |= NewDaySet(d)
	}
	return set, nil
}

// MarshalText implements encoding.TextMarshaler.
func (s DaySet) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DaySet) UnmarshalText(b []byte) error {
	v, err := ParseDaySet(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// DayCode returns the short lower-case name used in signatures and storage.
func DayCode(d time.Weekday) string {
	return strings.ToLower(d.String()[:3])
}
