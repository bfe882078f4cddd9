package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/blockplan/core/model"
	corestore "github.com/kilianp07/blockplan/core/store"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	plans  []corestore.PlanRecord
	combos []corestore.CombinationRecord
	days   map[string]corestore.DayRecord
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{days: make(map[string]corestore.DayRecord)}
}

func (s *MemoryStore) SavePlan(_ context.Context, rec corestore.PlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans = append(s.plans, rec)
	return nil
}

func (s *MemoryStore) LatestPlan(_ context.Context) (corestore.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.plans) == 0 {
		return corestore.PlanRecord{}, corestore.ErrNotFound
	}
	latest := s.plans[0]
	for _, p := range s.plans[1:] {
		if !p.CreatedAt.Before(latest.CreatedAt) {
			latest = p
		}
	}
	return latest, nil
}

func (s *MemoryStore) SaveCombinations(_ context.Context, rec corestore.CombinationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.combos = append(s.combos, rec)
	return nil
}

func (s *MemoryStore) SaveDay(_ context.Context, rec corestore.DayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Date = model.DateOf(rec.Date)
	s.days[corestore.DayKey(rec.Date)] = rec
	return nil
}

func (s *MemoryStore) LoadDay(_ context.Context, date time.Time) (corestore.DayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.days[corestore.DayKey(date)]
	if !ok {
		return corestore.DayRecord{}, corestore.ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) ListDays(_ context.Context) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]time.Time, 0, len(s.days))
	for _, d := range s.days {
		out = append(out, d.Date)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// Combinations returns the saved search results.
func (s *MemoryStore) Combinations() []corestore.CombinationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]corestore.CombinationRecord(nil), s.combos...)
}

func (s *MemoryStore) Close() error { return nil }
