package tracker

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stint/internal/domain"
)

// SessionStore persists tracked sessions.
//
// Create must enforce the at-most-one-active-session-per-user invariant
// atomically (a partial unique constraint, not a separate read) and return
// domain.ErrActiveSessionExists when a concurrent or prior clock-in won.
type SessionStore interface {
	Create(ctx context.Context, sess *domain.Session) error
	Update(ctx context.Context, sess *domain.Session) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.Session, error)
	ListCompletedByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Session, error)
}

// UserDirectory reads users registered by the identity subsystem.
type UserDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}
