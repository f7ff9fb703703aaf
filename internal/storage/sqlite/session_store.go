package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/felixgeelhaar/stint/internal/domain"
	"github.com/felixgeelhaar/stint/internal/period"
)

// SessionStore implements session persistence backed by SQLite.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new SQLite-backed session store.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

const sessionColumns = `id, user_id, task_description, start_time, end_time, duration, verified, created_at, updated_at`

// Create inserts a session. For active sessions the partial unique index on
// (user_id) WHERE end_time IS NULL makes the one-active-session invariant
// atomic; a violation maps to domain.ErrActiveSessionExists.
func (s *SessionStore) Create(ctx context.Context, sess *domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID.String(), sess.UserID.String(), sess.TaskDescription,
		sess.StartTime.UTC(), nullTime(sess.EndTime), nullInt64(sess.Duration),
		sess.Verified, sess.CreatedAt.UTC(), sess.UpdatedAt.UTC(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return domain.ErrActiveSessionExists
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Update overwrites a session's mutable fields.
func (s *SessionStore) Update(ctx context.Context, sess *domain.Session) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET task_description = ?, start_time = ?, end_time = ?, duration = ?,
			verified = ?, updated_at = ?
		WHERE id = ?`,
		sess.TaskDescription, sess.StartTime.UTC(), nullTime(sess.EndTime),
		nullInt64(sess.Duration), sess.Verified, sess.UpdatedAt.UTC(),
		sess.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// CloseIfOpen applies a closure only if the session is still open, so the
// splitter and a concurrent clock-out cannot both write a duration.
func (s *SessionStore) CloseIfOpen(ctx context.Context, sess *domain.Session) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET end_time = ?, duration = ?, verified = ?, updated_at = ?
		WHERE id = ? AND end_time IS NULL`,
		nullTime(sess.EndTime), nullInt64(sess.Duration), sess.Verified,
		sess.UpdatedAt.UTC(), sess.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		var exists bool
		err := s.db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM sessions WHERE id = ?)", sess.ID.String(),
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
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions WHERE id = ?`, id.String())
	return scanSession(row)
}

// FindActiveByUser returns the user's open session.
func (s *SessionStore) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions WHERE user_id = ? AND end_time IS NULL`, userID.String())
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrNoActiveSession
		}
		return nil, err
	}
	return sess, nil
}

// ListOpen returns every open session across all users.
func (s *SessionStore) ListOpen(ctx context.Context) ([]*domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = ? AND end_time IS NOT NULL AND verified = 1
		ORDER BY start_time DESC
		LIMIT ?`, userID.String(), limit)
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
		WHERE verified = 1 AND end_time IS NOT NULL AND start_time >= ?`
	args := []any{w.Start.UTC()}
	if w.End != nil {
		query += " AND start_time < ?"
		args = append(args, w.End.UTC())
	}
	query += " GROUP BY user_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sum session durations: %w", err)
	}
	defer rows.Close()

	totals := make(map[uuid.UUID]int64)
	for rows.Next() {
		var idStr string
		var total int64
		if err := rows.Scan(&idStr, &total); err != nil {
			return nil, fmt.Errorf("scan total: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse user id %q: %w", idStr, err)
		}
		totals[id] = total
	}
	return totals, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSessionFrom(sc scanner) (*domain.Session, error) {
	var sess domain.Session
	var idStr, userIDStr string
	var endTime sql.NullTime
	var duration sql.NullInt64

	err := sc.Scan(
		&idStr, &userIDStr, &sess.TaskDescription,
		&sess.StartTime, &endTime, &duration, &sess.Verified,
		&sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sess.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("parse session id %q: %w", idStr, err)
	}
	if sess.UserID, err = uuid.Parse(userIDStr); err != nil {
		return nil, fmt.Errorf("parse user id %q: %w", userIDStr, err)
	}
	if endTime.Valid {
		t := endTime.Time
		sess.EndTime = &t
	}
	if duration.Valid {
		d := duration.Int64
		sess.Duration = &d
	}
	return &sess, nil
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	sess, err := scanSessionFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return sess, nil
}

func scanSessions(rows *sql.Rows) ([]*domain.Session, error) {
	var sessions []*domain.Session
	for rows.Next() {
		sess, err := scanSessionFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// nullTime converts a *time.Time to sql.NullTime for storage, normalized to UTC.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// nullInt64 converts a *int64 to sql.NullInt64 for storage.
func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
