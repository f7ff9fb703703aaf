package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// MarkStore records the last processed boundary cutoff in a single-row table.
type MarkStore struct {
	db *DB
}

// NewMarkStore creates a new PostgreSQL split mark store.
func NewMarkStore(db *DB) *MarkStore {
	return &MarkStore{db: db}
}

// LastCutoff returns the most recently processed cutoff, or nil if no
// boundary run has completed yet.
func (s *MarkStore) LastCutoff(ctx context.Context) (*time.Time, error) {
	var cutoff time.Time
	err := s.db.QueryRow(ctx,
		"SELECT last_cutoff FROM split_marks WHERE id = 1",
	).Scan(&cutoff)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read split mark: %w", err)
	}
	return &cutoff, nil
}

// SetLastCutoff records a completed boundary run.
func (s *MarkStore) SetLastCutoff(ctx context.Context, cutoff time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO split_marks (id, last_cutoff, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			last_cutoff = EXCLUDED.last_cutoff,
			updated_at = EXCLUDED.updated_at`,
		cutoff, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("write split mark: %w", err)
	}
	return nil
}
