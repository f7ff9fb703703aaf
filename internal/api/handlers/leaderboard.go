package handlers

import (
	"net/http"
	"time"

	"github.com/felixgeelhaar/stint/internal/leaderboard"
	"github.com/felixgeelhaar/stint/internal/period"
)

// LeaderboardHandler handles leaderboard endpoints
type LeaderboardHandler struct {
	service *leaderboard.Service
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(service *leaderboard.Service) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

// LeaderboardEntryResponse is one ranked row, with the total also rendered
// as hh:mm:ss for display
type LeaderboardEntryResponse struct {
	Rank           int     `json:"rank"`
	UserID         string  `json:"userId"`
	FullName       string  `json:"fullName"`
	LinkedinURL    *string `json:"linkedinUrl"`
	TotalSeconds   int64   `json:"totalSeconds"`
	TotalFormatted string  `json:"totalFormatted"`
}

// Get returns the ranked board for the requested period. An optional
// at=RFC3339 query parameter ranks a historical instant instead of now.
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind, err := period.ParseKind(r.URL.Query().Get("period"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	var entries []leaderboard.Entry
	if at := r.URL.Query().Get("at"); at != "" {
		ref, err := time.Parse(time.RFC3339, at)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "VALIDATION", "at must be an RFC3339 timestamp")
			return
		}
		entries, err = h.service.RankAt(r.Context(), kind, ref)
		if err != nil {
			domainError(w, r, err)
			return
		}
	} else {
		entries, err = h.service.Rank(r.Context(), kind)
		if err != nil {
			domainError(w, r, err)
			return
		}
	}

	resp := make([]LeaderboardEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, LeaderboardEntryResponse{
			Rank:           e.Rank,
			UserID:         e.UserID.String(),
			FullName:       e.FullName,
			LinkedinURL:    e.LinkedinURL,
			TotalSeconds:   e.TotalSeconds,
			TotalFormatted: leaderboard.FormatDuration(e.TotalSeconds),
		})
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"period":  string(kind),
		"entries": resp,
	})
}
