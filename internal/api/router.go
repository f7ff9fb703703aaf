package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/stint/internal/api/handlers"
	"github.com/felixgeelhaar/stint/internal/api/middleware"
)

// Router wraps the HTTP multiplexer with middleware and handlers
type Router struct {
	mux         *http.ServeMux
	app         *App
	sessions    *handlers.SessionHandler
	leaderboard *handlers.LeaderboardHandler
	split       *handlers.SplitHandler
	users       *handlers.UsersHandler
	mutate      func(http.Handler) http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(app *App) http.Handler {
	r := &Router{
		mux: http.NewServeMux(),
		app: app,
	}

	// Initialize handlers
	r.sessions = handlers.NewSessionHandler(app.Tracker)
	r.leaderboard = handlers.NewLeaderboardHandler(app.Leaderboard)
	r.split = handlers.NewSplitHandler(app.Splitter, app.Calculator, app.Config.CronSecret)
	r.users = handlers.NewUsersHandler(app.Directory, app.Config.CronSecret)

	// One shared limiter for all clock mutations
	if app.Config.Debug {
		r.mutate = func(h http.Handler) http.Handler { return h }
	} else {
		r.mutate = middleware.MutationRateLimitMiddleware(middleware.DefaultRateLimitConfig())
	}

	// Register routes
	r.registerRoutes()

	// Build middleware chain
	return r.buildMiddlewareChain(r.mux, app)
}

func (r *Router) registerRoutes() {
	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)
	r.mux.HandleFunc("GET /ready", r.handleReady)

	// Session lifecycle (clock mutations get the stricter limiter)
	r.mux.Handle("POST /api/v1/sessions/clock-in", r.mutation(r.sessions.ClockIn))
	r.mux.Handle("POST /api/v1/sessions/clock-out", r.mutation(r.sessions.ClockOut))
	r.mux.Handle("POST /api/v1/sessions/verify", r.mutation(r.sessions.Verify))
	r.mux.Handle("PATCH /api/v1/sessions/{id}", r.mutation(r.sessions.Correct))
	r.mux.HandleFunc("GET /api/v1/sessions/current", r.sessions.Current)
	r.mux.HandleFunc("GET /api/v1/sessions/user/{userId}", r.sessions.UserSessions)

	// Leaderboard
	r.mux.HandleFunc("GET /api/v1/leaderboard", r.leaderboard.Get)

	// Internal endpoints (shared bearer secret, not gateway identity)
	r.mux.HandleFunc("POST /internal/cron/split", r.split.Run)
	r.mux.HandleFunc("PUT /internal/users/{id}", r.users.Upsert)
}

func (r *Router) buildMiddlewareChain(handler http.Handler, app *App) http.Handler {
	// Apply middleware in reverse order (last applied = first executed)
	handler = middleware.Recovery(handler)
	handler = middleware.Logger(handler)

	// Apply rate limiting (skip in debug mode for easier development)
	if !app.Config.Debug {
		handler = middleware.RateLimitMiddleware(middleware.DefaultRateLimitConfig())(handler)
	}

	handler = middleware.Identity(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.CORS(handler)

	return handler
}

// mutation wraps clock mutations with the shared stricter rate limiter.
func (r *Router) mutation(h http.HandlerFunc) http.Handler {
	return r.mutate(h)
}

// Health check handlers
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	r.jsonResponse(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleReady(w http.ResponseWriter, req *http.Request) {
	// Check database connectivity
	if err := r.app.Ping(req.Context()); err != nil {
		slog.Error("database health check failed",
			"error", err,
			"request_id", middleware.GetRequestID(req.Context()),
		)
		r.jsonResponse(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"checks": map[string]string{
				"database": "unhealthy",
			},
		})
		return
	}

	r.jsonResponse(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": map[string]string{
			"database": "healthy",
		},
	})
}

// Helper for JSON responses
func (r *Router) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}
