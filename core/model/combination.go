package model

import (
	"sort"
	"strings"
)

// Combination is a set of blocks of which no two overlap.
type Combination struct {
	Blocks []TimeBlock `json:"blocks"`
}

// Len returns the number of blocks.
func (c Combination) Len() int { return len(c.Blocks) }

// Signature is the sorted list of member signatures. Two combinations that
// differ only in block identity share a signature.
func (c Combination) Signature() string {
	parts := make([]string, len(c.Blocks))
	for i, b := range c.Blocks {
		parts[i] = b.Signature()
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

// EarliestStart returns the smallest semantic start time, or 24:00 when empty.
func (c Combination) EarliestStart() Clock {
	min := Clock(MinutesPerDay)
	for _, b := range c.Blocks {
		if s := b.SemanticStart(); s < min {
			min = s
		}
	}
	return min
}
