// Package overlap decides whether time blocks collide. Every function is pure
// and total: blocks are expected to have been validated beforehand.
package overlap

import (
	"github.com/kilianp07/blockplan/core/model"
)

// SharesDay reports whether both blocks apply to at least one common day.
// Recurring blocks compare weekday sets, dated blocks compare calendar dates
// and a dated block shares a day with a recurring one when its weekday is in
// the recurring set.
func SharesDay(a, b model.TimeBlock) bool {
	switch {
	case a.IsDated() && b.IsDated():
		return model.SameDate(a.Date, b.Date)
	case a.IsDated():
		return b.Days.Has(a.Date.Weekday())
	case b.IsDated():
		return a.Days.Has(b.Date.Weekday())
	default:
		return a.Days.Intersects(b.Days)
	}
}

// Intervals reports whether two half-open minute intervals intersect.
func Intervals(start1, end1, start2, end2 model.Clock) bool {
	return start1 < end2 && start2 < end1
}

// Overlaps reports whether a and b share a day and their semantic intervals
// intersect. Touching intervals (10:00-11:00 and 11:00-12:00) do not overlap.
func Overlaps(a, b model.TimeBlock) bool {
	if !SharesDay(a, b) {
		return false
	}
	return Intervals(a.SemanticStart(), a.SemanticEnd(), b.SemanticStart(), b.SemanticEnd())
}

// ConflictsWith reports whether b overlaps any block of set.
func ConflictsWith(b model.TimeBlock, set []model.TimeBlock) bool {
	for _, o := range set {
		if Overlaps(b, o) {
			return true
		}
	}
	return false
}

// Any reports whether at least two members of set overlap.
func Any(set []model.TimeBlock) bool {
	for i := range set {
		for j := i + 1; j < len(set); j++ {
			if Overlaps(set[i], set[j]) {
				return true
			}
		}
	}
	return false
}

// Pair is a pair of indexes into a block slice.
type Pair struct{ I, J int }

// Conflicts lists every overlapping index pair of set with I < J.
func Conflicts(set []model.TimeBlock) []Pair {
	var out []Pair
	for i := range set {
		for j := i + 1; j < len(set); j++ {
			if Overlaps(set[i], set[j]) {
				out = append(out, Pair{I: i, J: j})
			}
		}
	}
	return out
}
