// Package split implements the scheduled period-boundary process: at each
// cutoff every open session is closed one second before the boundary and a
// continuation session is opened in the new period, so elapsed time is
// attributed without gap or overlap.
package split

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stint/internal/domain"
	"github.com/felixgeelhaar/stint/internal/events"
)

// SessionStore is the storage surface the splitter needs.
//
// CloseIfOpen must only apply the closure if the session is still open in
// the store and return domain.ErrSessionAlreadyClosed otherwise, so a user
// clocking out at the same instant loses cleanly instead of corrupting the
// recorded duration.
type SessionStore interface {
	ListOpen(ctx context.Context) ([]*domain.Session, error)
	CloseIfOpen(ctx context.Context, sess *domain.Session) error
	Create(ctx context.Context, sess *domain.Session) error
}

// MarkStore persists the last processed cutoff. The scheduler only promises
// at-least-once delivery; the mark makes redundant invocations no-ops.
type MarkStore interface {
	LastCutoff(ctx context.Context) (*time.Time, error)
	SetLastCutoff(ctx context.Context, cutoff time.Time) error
}

// Outcome is the per-session result of a boundary run.
type Outcome struct {
	SessionID    uuid.UUID  `json:"sessionId"`
	UserID       uuid.UUID  `json:"userId"`
	NewSessionID *uuid.UUID `json:"newSessionId,omitempty"`
	Split        bool       `json:"split"`
	Skipped      bool       `json:"skipped,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// BatchResult reports a whole boundary run.
type BatchResult struct {
	Cutoff           time.Time `json:"cutoff"`
	AlreadyProcessed bool      `json:"alreadyProcessed"`
	Outcomes         []Outcome `json:"outcomes"`
}

// SplitCount returns the number of sessions successfully split.
func (r *BatchResult) SplitCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Split {
			n++
		}
	}
	return n
}

// Splitter closes open sessions at period boundaries.
type Splitter struct {
	sessions  SessionStore
	marks     MarkStore
	publisher events.Publisher // optional
}

// NewSplitter creates a boundary splitter.
func NewSplitter(sessions SessionStore, marks MarkStore) *Splitter {
	return &Splitter{sessions: sessions, marks: marks}
}

// SetPublisher sets the event publisher for split notifications.
func (s *Splitter) SetPublisher(p events.Publisher) {
	s.publisher = p
}

// Run processes the boundary at cutoff. Each open session is handled
// independently: one failure is recorded in the batch result and does not
// abort the rest. A cutoff that was already processed is a no-op.
func (s *Splitter) Run(ctx context.Context, cutoff time.Time) (*BatchResult, error) {
	result := &BatchResult{Cutoff: cutoff}

	last, err := s.marks.LastCutoff(ctx)
	if err != nil {
		return nil, fmt.Errorf("read split mark: %w", err)
	}
	if last != nil && !last.Before(cutoff) {
		slog.Info("cutoff already processed, skipping split",
			"cutoff", cutoff,
			"last_processed", *last,
		)
		result.AlreadyProcessed = true
		return result, nil
	}

	open, err := s.sessions.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}

	slog.Info("running boundary split", "cutoff", cutoff, "open_sessions", len(open))

	failed := 0
	for _, sess := range open {
		outcome := s.splitOne(ctx, sess, cutoff)
		if outcome.Error != "" {
			failed++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	// The mark only advances on a clean batch: a failed session must be
	// re-attempted at the scheduler's next delivery of this cutoff, and
	// re-runs skip the already-split sessions via the conditional close.
	if failed > 0 {
		slog.Warn("boundary split incomplete, mark not advanced",
			"cutoff", cutoff,
			"failed", failed,
			"total", len(result.Outcomes),
		)
		return result, nil
	}

	if err := s.marks.SetLastCutoff(ctx, cutoff); err != nil {
		return nil, fmt.Errorf("record split mark: %w", err)
	}

	slog.Info("boundary split complete",
		"cutoff", cutoff,
		"split", result.SplitCount(),
		"total", len(result.Outcomes),
	)
	return result, nil
}

// splitOne closes one open session at cutoff-1s and opens its continuation
// at the cutoff.
func (s *Splitter) splitOne(ctx context.Context, sess *domain.Session, cutoff time.Time) Outcome {
	outcome := Outcome{SessionID: sess.ID, UserID: sess.UserID}

	// A session that started at or after the cutoff belongs entirely to the
	// new period; closing it one second before the boundary would record a
	// negative duration.
	if !sess.StartTime.Before(cutoff) {
		outcome.Skipped = true
		return outcome
	}

	end := cutoff.Add(-time.Second)
	if err := sess.CloseAtBoundary(end); err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	if err := s.sessions.CloseIfOpen(ctx, sess); err != nil {
		if errors.Is(err, domain.ErrSessionAlreadyClosed) {
			// Lost the race against a concurrent clock-out; the user's
			// closure stands.
			outcome.Skipped = true
			return outcome
		}
		slog.Error("failed to close session at boundary",
			"session_id", sess.ID,
			"user_id", sess.UserID,
			"error", err,
		)
		outcome.Error = err.Error()
		return outcome
	}

	continuation := domain.NewActiveSession(sess.UserID, cutoff)
	continuation.TaskDescription = sess.TaskDescription

	if err := s.sessions.Create(ctx, continuation); err != nil {
		slog.Error("failed to open continuation session",
			"session_id", sess.ID,
			"user_id", sess.UserID,
			"error", err,
		)
		outcome.Error = fmt.Sprintf("continuation: %s", err)
		return outcome
	}

	outcome.Split = true
	outcome.NewSessionID = &continuation.ID

	if s.publisher != nil {
		evt := events.NewEvent(events.TypeSplit, sess.ID, sess.UserID, sess.Duration, true, cutoff)
		if err := s.publisher.Publish(ctx, evt); err != nil {
			slog.Warn("failed to publish split event",
				"session_id", sess.ID,
				"error", err,
			)
		}
	}

	return outcome
}
