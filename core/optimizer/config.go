package optimizer

import (
	"fmt"
	"strings"
)

// DefaultPlaceholderTitles are titles that mark an empty or administrative
// cell rather than a real activity.
var DefaultPlaceholderTitles = []string{
	"o", "x", "0", "-", "n/a", "none", "tbd",
	"break", "lunch", "recess", "homeroom", "assembly", "free", "free period",
	"점심", "쉬는시간", "조회", "종례", "자습",
}

// Config tunes the optimizer.
type Config struct {
	// PlaceholderTitles replaces DefaultPlaceholderTitles when non-empty.
	PlaceholderTitles []string `json:"placeholder_titles"`
	// DisableBackfill turns off the post-pin backfill phase.
	DisableBackfill bool `json:"disable_backfill"`
	// Classifier selects the classifier module; resolved by the application.
	Classifier string `json:"classifier"`
	// ClassifierConf is passed to the classifier factory.
	ClassifierConf map[string]any `json:"classifier_conf"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if len(c.PlaceholderTitles) == 0 {
		c.PlaceholderTitles = DefaultPlaceholderTitles
	}
	if c.Classifier == "" {
		c.Classifier = "rules"
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for _, t := range c.PlaceholderTitles {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("placeholder titles must not be blank")
		}
	}
	return nil
}

type placeholders map[string]struct{}

func newPlaceholders(titles []string) placeholders {
	p := make(placeholders, len(titles))
	for _, t := range titles {
		p[normalizeTitle(t)] = struct{}{}
	}
	return p
}

// match reports whether title is a placeholder or sentinel label.
func (p placeholders) match(title string) bool {
	_, ok := p[normalizeTitle(title)]
	return ok
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
