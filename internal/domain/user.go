package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user. Users are created and maintained by the
// identity subsystem; this service only reads them to label leaderboard
// entries and to seed zero-time totals.
type User struct {
	ID          uuid.UUID
	FullName    string
	LinkedinURL *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
