package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool.
type DB struct {
	*pgxpool.Pool
}

// Connect opens a connection pool against the given PostgreSQL URL.
func Connect(ctx context.Context, url string) (*DB, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// EnsureSchema creates the tables and indexes if they do not exist. The
// statements mirror the SQLite migrations in postgres dialect.
func (db *DB) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id           UUID PRIMARY KEY,
			full_name    TEXT NOT NULL,
			linkedin_url TEXT,
			created_at   TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id               UUID PRIMARY KEY,
			user_id          UUID NOT NULL REFERENCES users(id),
			task_description TEXT NOT NULL DEFAULT '',
			start_time       TIMESTAMPTZ NOT NULL,
			end_time         TIMESTAMPTZ,
			duration         BIGINT,
			verified         BOOLEAN NOT NULL DEFAULT FALSE,
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL,
			CHECK ((end_time IS NULL) = (duration IS NULL))
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS sessions_one_active_per_user
			ON sessions(user_id) WHERE end_time IS NULL`,
		`CREATE INDEX IF NOT EXISTS sessions_start_time ON sessions(start_time)`,
		`CREATE INDEX IF NOT EXISTS sessions_user_start ON sessions(user_id, start_time DESC)`,
		`CREATE TABLE IF NOT EXISTS split_marks (
			id          INTEGER PRIMARY KEY CHECK (id = 1),
			last_cutoff TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
