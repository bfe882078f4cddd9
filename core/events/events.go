package events

import (
	"time"

	"github.com/kilianp07/blockplan/core/model"
)

// SearchEvent is published when a combination search returns.
type SearchEvent struct {
	PoolSize   int    `json:"pool_size"`
	Returned   int    `json:"returned"`
	Iterations int    `json:"iterations"`
	Stop       string `json:"stop"`
}

// OptimizationEvent is published at the end of an optimizer run.
type OptimizationEvent struct {
	RunID         string `json:"run_id"`
	Selected      int    `json:"selected"`
	RemovedByPins int    `json:"removed_by_pins"`
	Backfilled    int    `json:"backfilled"`
}

// TravelDegradedEvent is published when every travel fallback tier failed and
// the fixed default duration was used.
type TravelDegradedEvent struct {
	Origin      string           `json:"origin"`
	Destination string           `json:"destination"`
	Mode        model.TravelMode `json:"mode"`
	Minutes     int              `json:"minutes"`
	Reason      string           `json:"reason"`
}

// DayRecalculatedEvent is published after a day simulation has been rebuilt.
type DayRecalculatedEvent struct {
	Date     time.Time        `json:"date"`
	Mode     model.TravelMode `json:"mode"`
	Blocks   int              `json:"blocks"`
	Adjusted int              `json:"adjusted"`
}

// PlacementEvent reports a placement validation outcome.
type PlacementEvent struct {
	Date   time.Time `json:"date"`
	Title  string    `json:"title"`
	Valid  bool      `json:"valid"`
	Reason string    `json:"reason,omitempty"`
}

// Name returns the routing name of an event, used as topic suffix or message
// key by forwarders. Unknown values yield "unknown".
func Name(ev any) string {
	switch ev.(type) {
	case SearchEvent:
		return "search"
	case OptimizationEvent:
		return "optimization"
	case TravelDegradedEvent:
		return "travel_degraded"
	case DayRecalculatedEvent:
		return "day_recalculated"
	case PlacementEvent:
		return "placement"
	default:
		return "unknown"
	}
}
