package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/stint/internal/api/middleware"
	"github.com/felixgeelhaar/stint/internal/period"
	"github.com/felixgeelhaar/stint/internal/split"
)

// SplitHandler handles the scheduler entry point that splits open sessions
// at period boundaries
type SplitHandler struct {
	splitter *split.Splitter
	calc     *period.Calculator
	secret   string
	now      func() time.Time
}

// NewSplitHandler creates a new split handler
func NewSplitHandler(splitter *split.Splitter, calc *period.Calculator, secret string) *SplitHandler {
	return &SplitHandler{
		splitter: splitter,
		calc:     calc,
		secret:   secret,
		now:      time.Now,
	}
}

// Run processes the boundary split for the most recent cutoff. Only the
// scheduler knows the bearer secret; everything else gets a 401.
func (h *SplitHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !bearerAuthorized(r, h.secret) {
		slog.Warn("unauthorized split attempt",
			"remote_addr", r.RemoteAddr,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid cron credentials")
		return
	}

	cutoff := h.calc.MostRecentCutoff(h.now())
	result, err := h.splitter.Run(r.Context(), cutoff)
	if err != nil {
		domainError(w, r, err)
		return
	}

	slog.Info("boundary split processed",
		"cutoff", result.Cutoff,
		"already_processed", result.AlreadyProcessed,
		"sessions", len(result.Outcomes),
		"split", result.SplitCount(),
	)
	jsonResponse(w, http.StatusOK, result)
}
