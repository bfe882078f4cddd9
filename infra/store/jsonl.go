package store

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	corestore "github.com/kilianp07/blockplan/core/store"
)

const (
	kindPlan         = "plan"
	kindCombinations = "combinations"
	kindDay          = "day"
)

type envelope struct {
	Kind         string                       `json:"kind"`
	Plan         *corestore.PlanRecord        `json:"plan,omitempty"`
	Combinations *corestore.CombinationRecord `json:"combinations,omitempty"`
	Day          *corestore.DayRecord         `json:"day,omitempty"`
}

// RotatingJSONLStore appends records to a JSONL file with automatic rotation.
// Reads replay every file; the last record written for a day wins.
type RotatingJSONLStore struct {
	mu     sync.Mutex
	logger *lumberjack.Logger
	path   string
}

// NewRotatingJSONLStore creates a store with rotation options in megabytes and days.
func NewRotatingJSONLStore(path string, maxSizeMB, maxBackups, maxAgeDays int) (*RotatingJSONLStore, error) {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &RotatingJSONLStore{logger: lj, path: path}, nil
}

func (s *RotatingJSONLStore) append(e envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.NewEncoder(s.logger).Encode(e)
}

func (s *RotatingJSONLStore) SavePlan(_ context.Context, rec corestore.PlanRecord) error {
	return s.append(envelope{Kind: kindPlan, Plan: &rec})
}

func (s *RotatingJSONLStore) SaveCombinations(_ context.Context, rec corestore.CombinationRecord) error {
	return s.append(envelope{Kind: kindCombinations, Combinations: &rec})
}

func (s *RotatingJSONLStore) SaveDay(_ context.Context, rec corestore.DayRecord) error {
	return s.append(envelope{Kind: kindDay, Day: &rec})
}

func (s *RotatingJSONLStore) LatestPlan(_ context.Context) (corestore.PlanRecord, error) {
	var latest *corestore.PlanRecord
	err := s.replay(func(e envelope) {
		if e.Kind == kindPlan && e.Plan != nil && (latest == nil || !e.Plan.CreatedAt.Before(latest.CreatedAt)) {
			latest = e.Plan
		}
	})
	if err != nil {
		return corestore.PlanRecord{}, err
	}
	if latest == nil {
		return corestore.PlanRecord{}, corestore.ErrNotFound
	}
	return *latest, nil
}

func (s *RotatingJSONLStore) LoadDay(_ context.Context, date time.Time) (corestore.DayRecord, error) {
	key := corestore.DayKey(date)
	var found *corestore.DayRecord
	err := s.replay(func(e envelope) {
		if e.Kind == kindDay && e.Day != nil && corestore.DayKey(e.Day.Date) == key {
			found = e.Day
		}
	})
	if err != nil {
		return corestore.DayRecord{}, err
	}
	if found == nil {
		return corestore.DayRecord{}, corestore.ErrNotFound
	}
	return *found, nil
}

func (s *RotatingJSONLStore) ListDays(_ context.Context) ([]time.Time, error) {
	seen := map[string]time.Time{}
	err := s.replay(func(e envelope) {
		if e.Kind == kindDay && e.Day != nil {
			d, _ := time.Parse(time.DateOnly, corestore.DayKey(e.Day.Date))
			seen[corestore.DayKey(e.Day.Date)] = d
		}
	})
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// replay feeds every decodable line of the rotated files, oldest first, then
// the active file. Undecodable lines are skipped.
func (s *RotatingJSONLStore) replay(fn func(envelope)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ext := filepath.Ext(s.path)
	files, err := filepath.Glob(strings.TrimSuffix(s.path, ext) + "*" + ext)
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		file, err := os.Open(f)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			var e envelope
			if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
				continue
			}
			fn(e)
		}
		_ = file.Close()
	}
	return nil
}

// Close closes the underlying writer.
func (s *RotatingJSONLStore) Close() error {
	return s.logger.Close()
}
