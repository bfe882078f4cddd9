// Package store provides the persistence backends of the planner.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/blockplan/core/factory"
	corestore "github.com/kilianp07/blockplan/core/store"
)

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	Path string `json:"path"`
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	DSN            string        `json:"dsn"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
}

// JSONLConfig configures the rotating JSONL backend.
type JSONLConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

func init() {
	corestore.MustRegister("memory", func(map[string]any) (corestore.Store, error) {
		return NewMemoryStore(), nil
	})
	corestore.MustRegister("sqlite", func(conf map[string]any) (corestore.Store, error) {
		var c SQLiteConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "blockplan.db"
		}
		return NewSQLiteStore(c.Path)
	})
	corestore.MustRegister("postgres", func(conf map[string]any) (corestore.Store, error) {
		var c PostgresConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.DSN == "" {
			return nil, fmt.Errorf("postgres store: dsn required")
		}
		if c.ConnectTimeout <= 0 {
			c.ConnectTimeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.ConnectTimeout)
		defer cancel()
		return NewPostgresStore(ctx, c.DSN)
	})
	corestore.MustRegister("jsonl", func(conf map[string]any) (corestore.Store, error) {
		var c JSONLConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "data/blockplan.jsonl"
		}
		if c.MaxSizeMB <= 0 {
			c.MaxSizeMB = 50
		}
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	})
}
