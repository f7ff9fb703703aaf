package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/felixgeelhaar/stint/internal/domain"
	"github.com/felixgeelhaar/stint/internal/period"
)

// uniqueViolation is the postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

// SessionStore implements session persistence using PostgreSQL.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new PostgreSQL session store.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

const sessionColumns = `id, user_id, task_description, start_time, end_time, duration, verified, created_at, updated_at`

// Create inserts a session. Violating the partial unique index over open
// sessions maps to domain.ErrActiveSessionExists.
func (s *SessionStore) Create(ctx context.Context, sess *domain.Session) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sess.ID, sess.UserID, sess.TaskDescription,
		sess.StartTime, sess.EndTime, sess.Duration,
		sess.Verified, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrActiveSessionExists
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Update overwrites a session's mutable fields.
func (s *SessionStore) Update(ctx context.Context, sess *domain.Session) error {
	result, err := s.db.Exec(ctx, `
		UPDATE sessions
		SET task_description = $2, start_time = $3, end_time = $4, duration = $5,
			verified = $6, updated_at = $7
		WHERE id = $1`,
		sess.ID, sess.TaskDescription, sess.StartTime, sess.EndTime,
		sess.Duration, sess.Verified, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// CloseIfOpen applies a closure only if the session is still open.
func (s *SessionStore) CloseIfOpen(ctx context.Context, sess *domain.Session) error {
	result, err := s.db.Exec(ctx, `
		UPDATE sessions
		SET end_time = $2, duration = $3, verified = $4, updated_at = $5
		WHERE id = $1 AND end_time IS NULL`,
		sess.ID, sess.EndTime, sess.Duration, sess.Verified, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if result.RowsAffected() == 0 {
		var exists bool
		err := s.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)", sess.ID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check session: %w", err)
		}
		if exists {
			return domain.ErrSessionAlreadyClosed
		}
		return domain.ErrSessionNotFound
	}
	return nil
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return sess, nil
}

// FindActiveByUser returns the user's open session.
func (s *SessionStore) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions WHERE user_id = $1 AND end_time IS NULL`, userID)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoActiveSession
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return sess, nil
}

// ListOpen returns every open session across all users.
func (s *SessionStore) ListOpen(ctx context.Context) ([]*domain.Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions WHERE end_time IS NULL ORDER BY start_time`)
	if err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ListCompletedByUser returns the user's most recent closed, verified
// sessions, newest first.
func (s *SessionStore) ListCompletedByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1 AND end_time IS NOT NULL AND verified
		ORDER BY start_time DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list completed sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// TotalsByUser sums verified, closed session durations whose start time
// falls inside the window, grouped by user.
func (s *SessionStore) TotalsByUser(ctx context.Context, w period.Window) (map[uuid.UUID]int64, error) {
	query := `
		SELECT user_id, COALESCE(SUM(duration), 0)
		FROM sessions
		WHERE verified AND end_time IS NOT NULL AND start_time >= $1`
	args := []any{w.Start}
	if w.End != nil {
		query += " AND start_time < $2"
		args = append(args, *w.End)
	}
	query += " GROUP BY user_id"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sum session durations: %w", err)
	}
	defer rows.Close()

	totals := make(map[uuid.UUID]int64)
	for rows.Next() {
		var id uuid.UUID
		var total int64
		if err := rows.Scan(&id, &total); err != nil {
			return nil, fmt.Errorf("scan total: %w", err)
		}
		totals[id] = total
	}
	return totals, rows.Err()
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var sess domain.Session
	var endTime *time.Time
	var duration *int64

	err := row.Scan(
		&sess.ID, &sess.UserID, &sess.TaskDescription,
		&sess.StartTime, &endTime, &duration, &sess.Verified,
		&sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sess.EndTime = endTime
	sess.Duration = duration
	return &sess, nil
}

func scanSessions(rows pgx.Rows) ([]*domain.Session, error) {
	var sessions []*domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
