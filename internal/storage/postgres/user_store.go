package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/stint/internal/domain"
)

// UserStore implements user persistence using PostgreSQL.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new PostgreSQL user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Upsert inserts a user or refreshes the profile fields of an existing one.
func (s *UserStore) Upsert(ctx context.Context, u *domain.User) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, full_name, linkedin_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			linkedin_url = EXCLUDED.linkedin_url,
			updated_at = EXCLUDED.updated_at`,
		u.ID, u.FullName, u.LinkedinURL, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRow(ctx, `
		SELECT id, full_name, linkedin_url, created_at, updated_at
		FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.FullName, &u.LinkedinURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// List returns every registered user, ordered by name for stable output.
func (s *UserStore) List(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, full_name, linkedin_url, created_at, updated_at
		FROM users ORDER BY full_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.FullName, &u.LinkedinURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
