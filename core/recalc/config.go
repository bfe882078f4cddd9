package recalc

import (
	"fmt"
	"time"

	"github.com/kilianp07/blockplan/core/model"
)

// Window is a blocked period of the day, e.g. a school run or a nap.
type Window struct {
	Label string      `json:"label,omitempty"`
	Start model.Clock `json:"start"`
	End   model.Clock `json:"end"`
	// Days restricts the window to weekdays; empty means every day.
	Days model.DaySet `json:"days,omitempty"`
}

// AppliesOn reports whether the window is active on date. A zero date
// matches every window.
func (w Window) AppliesOn(date time.Time) bool {
	if w.Days == 0 || date.IsZero() {
		return true
	}
	return w.Days.Has(date.Weekday())
}

// Contains reports whether c falls in [Start, End).
func (w Window) Contains(c model.Clock) bool { return c >= w.Start && c < w.End }

// Config tunes the recalculator.
type Config struct {
	BlockedWindows []Window         `json:"blocked_windows"`
	DefaultMode    model.TravelMode `json:"default_mode"`
	// SkipPrefetch disables concurrent route resolution before a simulation.
	SkipPrefetch bool `json:"skip_prefetch"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.DefaultMode == "" {
		c.DefaultMode = model.TravelNormal
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for i, w := range c.BlockedWindows {
		if w.End <= w.Start {
			return fmt.Errorf("recalc: blocked window %d (%s): end %s not after start %s", i, w.Label, w.End, w.Start)
		}
	}
	if _, err := model.ParseTravelMode(string(c.DefaultMode)); err != nil {
		return fmt.Errorf("recalc: %w", err)
	}
	return nil
}
