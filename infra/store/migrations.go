package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS plans (
	run_id TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	record JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS combinations (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	record JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS days (
	day DATE PRIMARY KEY,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	record JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plans_created_at ON plans(created_at);
`

// Migrate creates the PostgreSQL schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, postgresSchema)
	return err
}
