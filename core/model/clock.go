package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the length of a calendar day in minutes.
const MinutesPerDay = 24 * 60

// ErrInvalidClock is returned when a wall-clock string cannot be parsed.
var ErrInvalidClock = errors.New("invalid clock")

// Clock is a wall-clock time expressed in minutes since midnight.
// 24:00 is a valid value and marks the end of the day.
type Clock int

// ParseClock parses "HH:MM". Hours above 24, minutes above 59 and anything
// past 24:00 are rejected.
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil || len(h) == 0 || len(h) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	mm, err := strconv.Atoi(m)
	if err != nil || len(m) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if hh < 0 || mm < 0 || mm > 59 || hh > 24 || (hh == 24 && mm != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock(hh*60 + mm), nil
}

// MustClock is ParseClock for literals known to be valid. It panics otherwise.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Minutes returns the minute-of-day value.
func (c Clock) Minutes() int { return int(c) }

// Add shifts the clock by the given number of minutes, clamped to [00:00, 24:00].
func (c Clock) Add(minutes int) Clock {
	v := int(c) + minutes
	if v < 0 {
		return 0
	}
	if v > MinutesPerDay {
		return MinutesPerDay
	}
	return Clock(v)
}

// String formats the clock as "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
