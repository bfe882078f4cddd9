package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	corestore "github.com/kilianp07/blockplan/core/store"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS plans (
	run_id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	record TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS combinations (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	record TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS days (
	day TEXT PRIMARY KEY,
	updated_at INTEGER NOT NULL,
	record TEXT NOT NULL
);`

// SQLiteStore persists records to a SQLite database as JSON documents.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SavePlan(ctx context.Context, rec corestore.PlanRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO plans (run_id, created_at, record) VALUES (?, ?, ?)`,
		rec.RunID, rec.CreatedAt.UnixNano(), string(b))
	return err
}

func (s *SQLiteStore) LatestPlan(ctx context.Context) (corestore.PlanRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM plans ORDER BY created_at DESC LIMIT 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return corestore.PlanRecord{}, corestore.ErrNotFound
	}
	if err != nil {
		return corestore.PlanRecord{}, err
	}
	var rec corestore.PlanRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return corestore.PlanRecord{}, fmt.Errorf("unmarshal plan: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) SaveCombinations(ctx context.Context, rec corestore.CombinationRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO combinations (id, created_at, record) VALUES (?, ?, ?)`,
		rec.ID, rec.CreatedAt.UnixNano(), string(b))
	return err
}

func (s *SQLiteStore) SaveDay(ctx context.Context, rec corestore.DayRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO days (day, updated_at, record) VALUES (?, ?, ?)
		 ON CONFLICT(day) DO UPDATE SET updated_at = excluded.updated_at, record = excluded.record`,
		corestore.DayKey(rec.Date), rec.UpdatedAt.UnixNano(), string(b))
	return err
}

func (s *SQLiteStore) LoadDay(ctx context.Context, date time.Time) (corestore.DayRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM days WHERE day = ?`, corestore.DayKey(date)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return corestore.DayRecord{}, corestore.ErrNotFound
	}
	if err != nil {
		return corestore.DayRecord{}, err
	}
	var rec corestore.DayRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return corestore.DayRecord{}, fmt.Errorf("unmarshal day: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) ListDays(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT day FROM days ORDER BY day`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []time.Time
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		d, err := time.Parse(time.DateOnly, day)
		if err != nil {
			return nil, fmt.Errorf("parse day %q: %w", day, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
