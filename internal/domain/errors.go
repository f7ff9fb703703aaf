package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by stores
// and services to communicate domain-specific error conditions.
// -----------------------------------------------------------------------------

// Session errors
var (
	ErrSessionNotFound         = errors.New("session not found")
	ErrActiveSessionExists     = errors.New("an active session already exists for this user")
	ErrNoActiveSession         = errors.New("no active session found")
	ErrSessionAlreadyClosed    = errors.New("session already closed")
	ErrSessionNotClosed        = errors.New("session is not closed")
	ErrNotSessionOwner         = errors.New("session belongs to a different user")
	ErrTaskDescriptionRequired = errors.New("task description is required")
	ErrInvalidTimeRange        = errors.New("end time must be after start time")
)

// User errors
var (
	ErrUserNotFound = errors.New("user not found")
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
