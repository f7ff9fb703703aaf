// Package leaderboard ranks users by verified session time over
// cutoff-aligned periods.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/felixgeelhaar/stint/internal/domain"
	"github.com/felixgeelhaar/stint/internal/period"
)

// SessionStore aggregates verified session time.
//
// TotalsByUser sums Duration over all closed, verified sessions whose
// StartTime falls inside the window, grouped by user.
type SessionStore interface {
	TotalsByUser(ctx context.Context, w period.Window) (map[uuid.UUID]int64, error)
}

// UserDirectory lists every registered user.
type UserDirectory interface {
	List(ctx context.Context) ([]domain.User, error)
}

// Entry is one ranked row. Every registered user appears, including those
// with zero qualifying time.
type Entry struct {
	Rank         int       `json:"rank"`
	UserID       uuid.UUID `json:"userId"`
	FullName     string    `json:"fullName"`
	LinkedinURL  *string   `json:"linkedinUrl"`
	TotalSeconds int64     `json:"totalSeconds"`
}

// Service computes leaderboards. Current-period results are cached briefly;
// explicit reference instants bypass the cache.
type Service struct {
	sessions SessionStore
	users    UserDirectory
	calc     *period.Calculator
	cache    *ttlcache.Cache[period.Kind, []Entry]
	now      func() time.Time
}

// NewService creates a leaderboard service with the given cache TTL.
func NewService(sessions SessionStore, users UserDirectory, calc *period.Calculator, cacheTTL time.Duration) *Service {
	cache := ttlcache.New[period.Kind, []Entry](
		ttlcache.WithTTL[period.Kind, []Entry](cacheTTL),
		ttlcache.WithDisableTouchOnHit[period.Kind, []Entry](),
	)
	go cache.Start()

	return &Service{
		sessions: sessions,
		users:    users,
		calc:     calc,
		cache:    cache,
		now:      time.Now,
	}
}

// Close stops the cache janitor.
func (s *Service) Close() {
	s.cache.Stop()
}

// Rank returns the leaderboard for the period containing the current instant.
func (s *Service) Rank(ctx context.Context, kind period.Kind) ([]Entry, error) {
	if item := s.cache.Get(kind); item != nil {
		return item.Value(), nil
	}

	entries, err := s.RankAt(ctx, kind, s.now())
	if err != nil {
		return nil, err
	}

	s.cache.Set(kind, entries, ttlcache.DefaultTTL)
	return entries, nil
}

// RankAt returns the leaderboard for the period containing ref. Membership
// is decided by each session's start time, not by when it was verified, so a
// late verification still lands in its historical period.
func (s *Service) RankAt(ctx context.Context, kind period.Kind, ref time.Time) ([]Entry, error) {
	window := s.calc.WindowFor(kind, ref)

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	totals, err := s.sessions.TotalsByUser(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("sum sessions: %w", err)
	}

	entries := make([]Entry, 0, len(users))
	for _, u := range users {
		entries = append(entries, Entry{
			UserID:       u.ID,
			FullName:     u.FullName,
			LinkedinURL:  u.LinkedinURL,
			TotalSeconds: totals[u.ID],
		})
	}

	// Total seconds descending, then full name ascending for ties.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalSeconds != entries[j].TotalSeconds {
			return entries[i].TotalSeconds > entries[j].TotalSeconds
		}
		return entries[i].FullName < entries[j].FullName
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// FormatDuration renders whole seconds as hh:mm:ss.
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	sec := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}
