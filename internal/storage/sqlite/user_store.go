package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stint/internal/domain"
)

// UserStore implements user persistence backed by SQLite.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new SQLite-backed user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Upsert inserts a user or refreshes the profile fields of an existing one.
// The identity subsystem is the source of truth; this mirrors its records.
func (s *UserStore) Upsert(ctx context.Context, u *domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, full_name, linkedin_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			full_name = excluded.full_name,
			linkedin_url = excluded.linkedin_url,
			updated_at = excluded.updated_at`,
		u.ID.String(), u.FullName, u.LinkedinURL, u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, linkedin_url, created_at, updated_at
		FROM users WHERE id = ?`, id.String())

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// List returns every registered user, ordered by name for stable output.
func (s *UserStore) List(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, linkedin_url, created_at, updated_at
		FROM users ORDER BY full_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func scanUser(sc scanner) (*domain.User, error) {
	var u domain.User
	var idStr string
	var linkedin sql.NullString

	err := sc.Scan(&idStr, &u.FullName, &linkedin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if u.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("parse user id %q: %w", idStr, err)
	}
	if linkedin.Valid {
		v := linkedin.String
		u.LinkedinURL = &v
	}
	return &u, nil
}
