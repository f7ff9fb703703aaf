package tracker

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stint/internal/domain"
	"github.com/felixgeelhaar/stint/internal/events"
)

// memSessionStore is an in-memory SessionStore that enforces the
// one-active-session-per-user constraint the way the real stores do.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[uuid.UUID]*domain.Session)}
}

func cloneSession(s *domain.Session) *domain.Session {
	c := *s
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	if s.Duration != nil {
		d := *s.Duration
		c.Duration = &d
	}
	return &c
}

func (m *memSessionStore) Create(ctx context.Context, sess *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess.IsActive() {
		for _, existing := range m.sessions {
			if existing.UserID == sess.UserID && existing.IsActive() {
				return domain.ErrActiveSessionExists
			}
		}
	}
	m.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (m *memSessionStore) Update(ctx context.Context, sess *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sess.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	m.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (m *memSessionStore) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cloneSession(sess), nil
}

func (m *memSessionStore) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sess := range m.sessions {
		if sess.UserID == userID && sess.IsActive() {
			return cloneSession(sess), nil
		}
	}
	return nil, domain.ErrNoActiveSession
}

func (m *memSessionStore) ListCompletedByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Session
	for _, sess := range m.sessions {
		if sess.UserID == userID && !sess.IsActive() && sess.Verified {
			out = append(out, cloneSession(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memUserDirectory is an in-memory UserDirectory.
type memUserDirectory struct {
	users map[uuid.UUID]domain.User
}

func newMemUserDirectory(users ...domain.User) *memUserDirectory {
	m := &memUserDirectory{users: make(map[uuid.UUID]domain.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUserDirectory) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (m *memUserDirectory) List(ctx context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

// capturePublisher records published events.
type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}
