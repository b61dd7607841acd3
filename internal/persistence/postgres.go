package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

const (
	createPreferencesTable = `CREATE TABLE IF NOT EXISTS dashboard_preferences (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	selectPreference = `SELECT value FROM dashboard_preferences WHERE key = $1`
	upsertPreference = `INSERT INTO dashboard_preferences (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

// PostgresKV stores preferences in the dashboard_preferences table.
type PostgresKV struct {
	db *sql.DB
}

// NewPostgresKV connects using dsn ("host=... user=... dbname=... sslmode=..."
// or a postgres:// URL) and ensures the table exists.
func NewPostgresKV(ctx context.Context, dsn string) (*PostgresKV, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is empty")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, createPreferencesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create preferences table: %w", err)
	}
	return &PostgresKV{db: db}, nil
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := p.db.QueryRowContext(ctx, selectPreference, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query preference: %w", err)
	}
	return []byte(value), true, nil
}

func (p *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	if _, err := p.db.ExecContext(ctx, upsertPreference, key, string(value)); err != nil {
		return fmt.Errorf("failed to upsert preference: %w", err)
	}
	return nil
}

func (p *PostgresKV) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection pool.
func (p *PostgresKV) Close() error {
	return p.db.Close()
}
