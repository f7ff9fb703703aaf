package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stint/internal/tracker"
)

// SessionHandler handles session lifecycle endpoints
type SessionHandler struct {
	service *tracker.Service
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service *tracker.Service) *SessionHandler {
	return &SessionHandler{service: service}
}

// ClockOutRequest is the request body for clocking out
type ClockOutRequest struct {
	TaskDescription string `json:"taskDescription"`
}

// VerifyRequest is the request body for verifying a session
type VerifyRequest struct {
	SessionID string `json:"sessionId"`
}

// CorrectRequest is the request body for correcting a session's time range
type CorrectRequest struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// UserSessionsResponse bundles a user's directory entry with their recent
// completed sessions
type UserSessionsResponse struct {
	UserID      string            `json:"userId"`
	FullName    string            `json:"fullName"`
	LinkedinURL *string           `json:"linkedinUrl"`
	Sessions    []SessionResponse `json:"sessions"`
}

// ClockIn starts a new work session for the current user
func (h *SessionHandler) ClockIn(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	sess, err := h.service.ClockIn(r.Context(), userID)
	if err != nil {
		domainError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]any{
		"session": toSessionResponse(sess),
	})
}

// ClockOut closes the current user's active session
func (h *SessionHandler) ClockOut(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req ClockOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	sess, needsVerification, err := h.service.ClockOut(r.Context(), userID, req.TaskDescription)
	if err != nil {
		domainError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"session":           toSessionResponse(sess),
		"needsVerification": needsVerification,
	})
}

// Verify marks a closed session's duration as accurate
func (h *SessionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "VALIDATION", "invalid session id")
		return
	}

	sess, err := h.service.Verify(r.Context(), sessionID, userID)
	if err != nil {
		domainError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"session": toSessionResponse(sess),
	})
}

// Correct overwrites a session's time range with a user-supplied one
func (h *SessionHandler) Correct(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "VALIDATION", "invalid session id")
		return
	}

	var req CorrectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		jsonError(w, http.StatusBadRequest, "VALIDATION", "startTime and endTime are required")
		return
	}

	sess, err := h.service.Correct(r.Context(), sessionID, userID, req.StartTime, req.EndTime)
	if err != nil {
		domainError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"session": toSessionResponse(sess),
	})
}

// Current returns the current user's active session, if any
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	sess, err := h.service.ActiveSession(r.Context(), userID)
	if err != nil {
		domainError(w, r, err)
		return
	}

	if sess == nil {
		jsonResponse(w, http.StatusOK, map[string]any{"session": nil})
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"session": toSessionResponse(sess),
	})
}

// UserSessions returns a user's directory entry and their recent completed
// verified sessions
func (h *SessionHandler) UserSessions(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	targetID, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "VALIDATION", "invalid user id")
		return
	}

	user, sessions, err := h.service.UserSessions(r.Context(), targetID)
	if err != nil {
		domainError(w, r, err)
		return
	}

	resp := UserSessionsResponse{
		UserID:      user.ID.String(),
		FullName:    user.FullName,
		LinkedinURL: user.LinkedinURL,
		Sessions:    make([]SessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(s))
	}
	jsonResponse(w, http.StatusOK, resp)
}
