package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stint/internal/api/middleware"
	"github.com/felixgeelhaar/stint/internal/domain"
)

// UserUpserter writes identity-gateway user records into the local directory
// mirror.
type UserUpserter interface {
	Upsert(ctx context.Context, u *domain.User) error
}

// UsersHandler handles the directory sync endpoint. The identity gateway
// pushes its user records here; nothing else writes the users table.
type UsersHandler struct {
	directory UserUpserter
	secret    string
	now       func() time.Time
}

// NewUsersHandler creates a new directory sync handler
func NewUsersHandler(directory UserUpserter, secret string) *UsersHandler {
	return &UsersHandler{
		directory: directory,
		secret:    secret,
		now:       time.Now,
	}
}

// UpsertUserRequest is the request body for mirroring a user record
type UpsertUserRequest struct {
	FullName    string  `json:"fullName"`
	LinkedinURL *string `json:"linkedinUrl"`
}

// Upsert mirrors one gateway user record. Inserts a new user or refreshes
// the profile fields of an existing one; creation time is kept on refresh.
func (h *UsersHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	if !bearerAuthorized(r, h.secret) {
		slog.Warn("unauthorized directory sync attempt",
			"remote_addr", r.RemoteAddr,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid gateway credentials")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "VALIDATION", "invalid user id")
		return
	}

	var req UpsertUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		jsonError(w, http.StatusBadRequest, "VALIDATION", "fullName is required")
		return
	}

	now := h.now().UTC()
	user := &domain.User{
		ID:          id,
		FullName:    fullName,
		LinkedinURL: req.LinkedinURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.directory.Upsert(r.Context(), user); err != nil {
		domainError(w, r, err)
		return
	}

	slog.Info("user record synced", "user_id", id)
	jsonResponse(w, http.StatusOK, map[string]any{
		"userId":      user.ID.String(),
		"fullName":    user.FullName,
		"linkedinUrl": user.LinkedinURL,
	})
}
