package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session is a single tracked stretch of work. A session is either active
// (EndTime and Duration absent) or closed (both present); there is no partial
// state. Closed sessions only count toward leaderboards once Verified.
type Session struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	TaskDescription string // empty while active, set at clock-out
	StartTime       time.Time
	EndTime         *time.Time
	Duration        *int64 // whole seconds, present iff EndTime is present
	Verified        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewActiveSession creates a fresh active session for a user.
func NewActiveSession(userID uuid.UUID, start time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		UserID:    userID,
		StartTime: start,
		Verified:  false,
		CreatedAt: start,
		UpdatedAt: start,
	}
}

// IsActive reports whether the session is still open.
func (s *Session) IsActive() bool {
	return s.EndTime == nil
}

// Close ends the session at end with the given task description. Sessions at
// or under autoVerifyThreshold are trusted without review; longer ones stay
// unverified until an explicit Verify or Correct.
func (s *Session) Close(end time.Time, task string, autoVerifyThreshold time.Duration) error {
	if !s.IsActive() {
		return ErrSessionAlreadyClosed
	}
	task = strings.TrimSpace(task)
	if task == "" {
		return ErrTaskDescriptionRequired
	}
	d := durationSeconds(s.StartTime, end)
	s.TaskDescription = task
	s.EndTime = &end
	s.Duration = &d
	s.Verified = d <= int64(autoVerifyThreshold/time.Second)
	s.UpdatedAt = end
	return nil
}

// CloseAtBoundary ends the session at a period boundary. Boundary closures
// are system-driven, not user self-reports, so they are trusted outright.
func (s *Session) CloseAtBoundary(end time.Time) error {
	if !s.IsActive() {
		return ErrSessionAlreadyClosed
	}
	d := durationSeconds(s.StartTime, end)
	s.EndTime = &end
	s.Duration = &d
	s.Verified = true
	s.UpdatedAt = end
	return nil
}

// MarkVerified marks the recorded duration as trusted. Idempotent.
func (s *Session) MarkVerified(now time.Time) error {
	if s.IsActive() {
		return ErrSessionNotClosed
	}
	if s.Verified {
		return nil
	}
	s.Verified = true
	s.UpdatedAt = now
	return nil
}

// Correct overwrites the session's time range. The corrected duration is
// trusted because a human supplied it.
func (s *Session) Correct(start, end, now time.Time) error {
	if !end.After(start) {
		return ErrInvalidTimeRange
	}
	d := durationSeconds(start, end)
	s.StartTime = start
	s.EndTime = &end
	s.Duration = &d
	s.Verified = true
	s.UpdatedAt = now
	return nil
}

// NeedsVerification reports whether the session is closed but not yet trusted.
func (s *Session) NeedsVerification() bool {
	return !s.IsActive() && !s.Verified
}

// durationSeconds returns floor((end - start) / 1s).
func durationSeconds(start, end time.Time) int64 {
	return int64(end.Sub(start) / time.Second)
}
