package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/stint/internal/api/handlers"
	"github.com/felixgeelhaar/stint/internal/config"
	"github.com/felixgeelhaar/stint/internal/events"
	"github.com/felixgeelhaar/stint/internal/leaderboard"
	"github.com/felixgeelhaar/stint/internal/period"
	"github.com/felixgeelhaar/stint/internal/split"
	"github.com/felixgeelhaar/stint/internal/storage/postgres"
	"github.com/felixgeelhaar/stint/internal/storage/sqlite"
	"github.com/felixgeelhaar/stint/internal/tracker"
)

// App holds all application dependencies
type App struct {
	Config      *config.Config
	Tracker     *tracker.Service
	Leaderboard *leaderboard.Service
	Splitter    *split.Splitter
	Calculator  *period.Calculator
	Directory   handlers.UserUpserter

	publisher events.Publisher
	ping      func(ctx context.Context) error
	closers   []func() error
}

// NewApp creates a new application instance with all dependencies wired
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	app := &App{
		Config:     cfg,
		Calculator: period.NewCalculator(loc, cfg.CutoffHour),
	}

	var (
		sessions interface {
			tracker.SessionStore
			split.SessionStore
			leaderboard.SessionStore
		}
		users interface {
			tracker.UserDirectory
			leaderboard.UserDirectory
			handlers.UserUpserter
		}
		marks split.MarkStore
	)

	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		app.closers = append(app.closers, func() error { db.Close(); return nil })
		app.ping = db.Ping
		sessions = postgres.NewSessionStore(db)
		users = postgres.NewUserStore(db)
		marks = postgres.NewMarkStore(db)

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		app.closers = append(app.closers, db.Close)
		app.ping = db.PingContext
		sessions = sqlite.NewSessionStore(db)
		users = sqlite.NewUserStore(db)
		marks = sqlite.NewMarkStore(db)

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	app.Directory = users

	app.publisher = buildPublisher(cfg)
	app.closers = append(app.closers, app.publisher.Close)

	autoVerify := time.Duration(cfg.AutoVerifySeconds) * time.Second
	app.Tracker = tracker.NewService(sessions, users, autoVerify)
	app.Tracker.SetPublisher(app.publisher)

	app.Splitter = split.NewSplitter(sessions, marks)
	app.Splitter.SetPublisher(app.publisher)

	cacheTTL := time.Duration(cfg.LeaderboardCacheTTL) * time.Second
	app.Leaderboard = leaderboard.NewService(sessions, users, app.Calculator, cacheTTL)
	app.closers = append(app.closers, func() error { app.Leaderboard.Close(); return nil })

	return app, nil
}

// buildPublisher connects to the broker, falling back to a no-op publisher
// so an unavailable broker never blocks time tracking.
func buildPublisher(cfg *config.Config) events.Publisher {
	if cfg.AMQPURL == "" {
		slog.Info("event publishing disabled, no AMQP URL configured")
		return events.NoopPublisher{}
	}

	conn, err := events.Connect(cfg.AMQPURL)
	if err != nil {
		slog.Warn("event broker unavailable, continuing without events", "error", err)
		return events.NoopPublisher{}
	}

	return events.NewResilientPublisher(conn, events.ResilientConfig{
		Logger: slog.Default(),
	})
}

// Ping reports storage connectivity for readiness checks.
func (a *App) Ping(ctx context.Context) error {
	if a.ping == nil {
		return nil
	}
	return a.ping(ctx)
}

// Close cleans up application resources in reverse construction order.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
