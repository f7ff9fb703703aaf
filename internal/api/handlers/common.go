package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stint/internal/api/middleware"
	"github.com/felixgeelhaar/stint/internal/domain"
)

// SessionResponse represents a session in API responses
type SessionResponse struct {
	ID              string  `json:"id"`
	UserID          string  `json:"userId"`
	TaskDescription string  `json:"taskDescription"`
	StartTime       string  `json:"startTime"`
	EndTime         *string `json:"endTime"`
	Duration        *int64  `json:"duration"`
	Verified        bool    `json:"verified"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

func toSessionResponse(s *domain.Session) SessionResponse {
	resp := SessionResponse{
		ID:              s.ID.String(),
		UserID:          s.UserID.String(),
		TaskDescription: s.TaskDescription,
		StartTime:       s.StartTime.UTC().Format(time.RFC3339),
		Duration:        s.Duration,
		Verified:        s.Verified,
		CreatedAt:       s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       s.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if s.EndTime != nil {
		end := s.EndTime.UTC().Format(time.RFC3339)
		resp.EndTime = &end
	}
	return resp
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func jsonError(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

// requireUser extracts the gateway-authenticated user from the request
// context and rejects the request if it is missing.
func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return uuid.Nil, false
	}
	return userID, true
}

// bearerAuthorized checks an internal endpoint's bearer token in constant
// time. An empty configured secret rejects everything.
func bearerAuthorized(r *http.Request, secret string) bool {
	if secret == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

// domainError maps a domain sentinel to an HTTP status and error code. The
// fallback is a 500 with a generic message; the cause is logged, not leaked.
func domainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrTaskDescriptionRequired),
		errors.Is(err, domain.ErrInvalidTimeRange),
		errors.Is(err, domain.ErrNoActiveSession),
		errors.Is(err, domain.ErrInvalidInput):
		// Clocking out without an active session is a state the caller can
		// see and fix, not a missing resource.
		jsonError(w, http.StatusBadRequest, "VALIDATION", err.Error())
	case errors.Is(err, domain.ErrNotSessionOwner),
		errors.Is(err, domain.ErrForbidden):
		jsonError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrNotFound):
		jsonError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrActiveSessionExists),
		errors.Is(err, domain.ErrSessionAlreadyClosed),
		errors.Is(err, domain.ErrSessionNotClosed),
		errors.Is(err, domain.ErrConflict):
		jsonError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	default:
		slog.Error("internal error",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
	}
}
