package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kilianp07/blockplan/core/model"
	corestore "github.com/kilianp07/blockplan/core/store"
)

// PostgresStore persists records as JSONB documents.
type PostgresStore struct{ pool *pgxpool.Pool }

// NewPostgresStore connects to dsn and runs the migrations.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) SavePlan(ctx context.Context, rec corestore.PlanRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO plans (run_id, created_at, record) VALUES ($1, $2, $3)
		ON CONFLICT (run_id) DO UPDATE SET created_at = EXCLUDED.created_at, record = EXCLUDED.record
	`, rec.RunID, rec.CreatedAt, b)
	return err
}

func (s *PostgresStore) LatestPlan(ctx context.Context) (corestore.PlanRecord, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT record FROM plans ORDER BY created_at DESC LIMIT 1`).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return corestore.PlanRecord{}, corestore.ErrNotFound
	}
	if err != nil {
		return corestore.PlanRecord{}, err
	}
	var rec corestore.PlanRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return corestore.PlanRecord{}, fmt.Errorf("unmarshal plan: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) SaveCombinations(ctx context.Context, rec corestore.CombinationRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO combinations (id, created_at, record) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET record = EXCLUDED.record
	`, rec.ID, rec.CreatedAt, b)
	return err
}

func (s *PostgresStore) SaveDay(ctx context.Context, rec corestore.DayRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO days (day, updated_at, record) VALUES ($1, $2, $3)
		ON CONFLICT (day) DO UPDATE SET updated_at = EXCLUDED.updated_at, record = EXCLUDED.record
	`, model.DateOf(rec.Date), rec.UpdatedAt, b)
	return err
}

func (s *PostgresStore) LoadDay(ctx context.Context, date time.Time) (corestore.DayRecord, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT record FROM days WHERE day = $1`, model.DateOf(date)).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return corestore.DayRecord{}, corestore.ErrNotFound
	}
	if err != nil {
		return corestore.DayRecord{}, err
	}
	var rec corestore.DayRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return corestore.DayRecord{}, fmt.Errorf("unmarshal day: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListDays(ctx context.Context) ([]time.Time, error) {
	rows, err := s.pool.Query(ctx, `SELECT day FROM days ORDER BY day`)
	if err != nil {
		return nil, err
	}
	days, err := pgx.CollectRows(rows, pgx.RowTo[time.Time])
	if err != nil {
		return nil, err
	}
	for i, d := range days {
		days[i] = model.DateOf(d)
	}
	return days, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
