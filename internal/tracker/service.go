// Package tracker owns the lifecycle of an individual user's tracked time:
// clock-in, clock-out, verification and manual correction.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stint/internal/domain"
	"github.com/felixgeelhaar/stint/internal/events"
)

// RecentSessionsLimit caps the session history returned per user.
const RecentSessionsLimit = 50

// Service manages work session lifecycle transitions.
type Service struct {
	store      SessionStore
	users      UserDirectory
	publisher  events.Publisher // optional
	autoVerify time.Duration
	now        func() time.Time
}

// NewService creates a new lifecycle service. Sessions no longer than
// autoVerify are trusted at clock-out without a verification step.
func NewService(store SessionStore, users UserDirectory, autoVerify time.Duration) *Service {
	return &Service{
		store:      store,
		users:      users,
		autoVerify: autoVerify,
		now:        time.Now,
	}
}

// SetPublisher sets the event publisher for lifecycle notifications.
func (s *Service) SetPublisher(p events.Publisher) {
	s.publisher = p
}

// ClockIn starts a new active session for the user. Fails with
// domain.ErrActiveSessionExists if the user already has one; the store's
// uniqueness constraint makes the check-and-insert atomic under concurrent
// clock-ins.
func (s *Service) ClockIn(ctx context.Context, userID uuid.UUID) (*domain.Session, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, err
	}

	sess := domain.NewActiveSession(userID, s.now())
	if err := s.store.Create(ctx, sess); err != nil {
		if errors.Is(err, domain.ErrActiveSessionExists) {
			return nil, domain.ErrActiveSessionExists
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.publish(ctx, events.TypeClockIn, sess)
	return sess, nil
}

// ClockOut closes the user's active session with the given task description.
// Returns the closed session and whether it still needs verification.
func (s *Service) ClockOut(ctx context.Context, userID uuid.UUID, taskDescription string) (*domain.Session, bool, error) {
	if strings.TrimSpace(taskDescription) == "" {
		return nil, false, domain.ErrTaskDescriptionRequired
	}

	sess, err := s.store.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	if err := sess.Close(s.now(), taskDescription, s.autoVerify); err != nil {
		return nil, false, err
	}

	if err := s.store.Update(ctx, sess); err != nil {
		return nil, false, fmt.Errorf("update session: %w", err)
	}

	s.publish(ctx, events.TypeClockOut, sess)
	return sess, sess.NeedsVerification(), nil
}

// Verify marks a closed session's duration as trusted. Only the owning user
// may verify; the call is idempotent when the session is already verified.
func (s *Service) Verify(ctx context.Context, sessionID, callerID uuid.UUID) (*domain.Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != callerID {
		return nil, domain.ErrNotSessionOwner
	}

	if err := sess.MarkVerified(s.now()); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	s.publish(ctx, events.TypeVerified, sess)
	return sess, nil
}

// Correct overwrites a session's time range with a user-supplied one and
// marks the result verified. Requires ownership and end > start.
func (s *Service) Correct(ctx context.Context, sessionID, callerID uuid.UUID, newStart, newEnd time.Time) (*domain.Session, error) {
	if !newEnd.After(newStart) {
		return nil, domain.ErrInvalidTimeRange
	}

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != callerID {
		return nil, domain.ErrNotSessionOwner
	}

	if err := sess.Correct(newStart, newEnd, s.now()); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	s.publish(ctx, events.TypeCorrected, sess)
	return sess, nil
}

// ActiveSession returns the user's open session, or nil if there is none.
func (s *Service) ActiveSession(ctx context.Context, userID uuid.UUID) (*domain.Session, error) {
	sess, err := s.store.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveSession) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

// UserSessions returns the user's directory entry and their most recent
// completed, verified sessions.
func (s *Service) UserSessions(ctx context.Context, userID uuid.UUID) (*domain.User, []*domain.Session, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	sessions, err := s.store.ListCompletedByUser(ctx, userID, RecentSessionsLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("list sessions: %w", err)
	}
	return user, sessions, nil
}

// publish emits a lifecycle event. Publishing is best-effort: a broker
// failure must never fail the user operation.
func (s *Service) publish(ctx context.Context, eventType string, sess *domain.Session) {
	if s.publisher == nil {
		return
	}
	evt := events.NewEvent(eventType, sess.ID, sess.UserID, sess.Duration, sess.Verified, s.now())
	if err := s.publisher.Publish(ctx, evt); err != nil {
		slog.Warn("failed to publish session event",
			"type", eventType,
			"session_id", sess.ID,
			"user_id", sess.UserID,
			"error", err,
		)
	}
}
