// Package store defines the persistence collaborator of the planner. The
// planning core never persists anything itself; the application hands it the
// records below. Implementations live in infra/store.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/blockplan/core/factory"
	"github.com/kilianp07/blockplan/core/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// PlanRecord is one optimizer outcome.
type PlanRecord struct {
	RunID     string            `json:"run_id"`
	CreatedAt time.Time         `json:"created_at"`
	Selected  []model.TimeBlock `json:"selected"`
	Removed   []model.TimeBlock `json:"removed,omitempty"`
	Stats     map[string]int    `json:"stats,omitempty"`
}

// CombinationRecord is one combination search result.
type CombinationRecord struct {
	ID           string              `json:"id"`
	CreatedAt    time.Time           `json:"created_at"`
	Combinations []model.Combination `json:"combinations"`
	Iterations   int                 `json:"iterations"`
	Stop         string              `json:"stop"`
}

// DayRecord is the adjusted view of one calendar day. Blocks carry the
// derived travel fields; their semantic times are unchanged.
type DayRecord struct {
	Date      time.Time         `json:"date"`
	Mode      model.TravelMode  `json:"mode"`
	Base      *model.Location   `json:"base,omitempty"`
	Blocks    []model.TimeBlock `json:"blocks"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Store persists plans, searches and days.
type Store interface {
	SavePlan(ctx context.Context, rec PlanRecord) error
	// LatestPlan returns the most recently created plan.
	LatestPlan(ctx context.Context) (PlanRecord, error)
	SaveCombinations(ctx context.Context, rec CombinationRecord) error
	// SaveDay replaces the record stored for rec.Date.
	SaveDay(ctx context.Context, rec DayRecord) error
	LoadDay(ctx context.Context, date time.Time) (DayRecord, error)
	// ListDays returns stored dates in ascending order.
	ListDays(ctx context.Context) ([]time.Time, error)
	Close() error
}

// DayKey is the canonical key of a day record.
func DayKey(date time.Time) string { return model.DateOf(date).Format(time.DateOnly) }

var registry = factory.NewRegistry[Store]("store")

// Register adds a store factory identified by name.
func Register(name string, f factory.Factory[Store]) error { return registry.Register(name, f) }

// MustRegister is Register for package init functions.
func MustRegister(name string, f factory.Factory[Store]) { registry.MustRegister(name, f) }

// New creates the store described by cfg. An empty type yields the memory
// store when one is registered.
func New(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	return registry.Create(cfg)
}
