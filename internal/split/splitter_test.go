package split

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stint/internal/domain"
)

type memStore struct {
	mu         sync.Mutex
	sessions   map[uuid.UUID]*domain.Session
	failCreate map[uuid.UUID]error // keyed by user ID
	failClose  map[uuid.UUID]error // keyed by user ID
}

func newMemStore() *memStore {
	return &memStore{
		sessions:   make(map[uuid.UUID]*domain.Session),
		failCreate: make(map[uuid.UUID]error),
		failClose:  make(map[uuid.UUID]error),
	}
}

func (m *memStore) add(sess *domain.Session) {
	m.sessions[sess.ID] = sess
}

func (m *memStore) ListOpen(ctx context.Context) ([]*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Session
	for _, s := range m.sessions {
		if s.IsActive() {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memStore) CloseIfOpen(ctx context.Context, sess *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failClose[sess.UserID]; ok {
		return err
	}
	stored, ok := m.sessions[sess.ID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if !stored.IsActive() {
		return domain.ErrSessionAlreadyClosed
	}
	c := *sess
	m.sessions[sess.ID] = &c
	return nil
}

func (m *memStore) Create(ctx context.Context, sess *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failCreate[sess.UserID]; ok {
		return err
	}
	c := *sess
	m.sessions[sess.ID] = &c
	return nil
}

func (m *memStore) openForUser(userID uuid.UUID) []*domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Session
	for _, s := range m.sessions {
		if s.UserID == userID && s.IsActive() {
			out = append(out, s)
		}
	}
	return out
}

type memMarks struct {
	last *time.Time
}

func (m *memMarks) LastCutoff(ctx context.Context) (*time.Time, error) { return m.last, nil }
func (m *memMarks) SetLastCutoff(ctx context.Context, cutoff time.Time) error {
	t := cutoff
	m.last = &t
	return nil
}

func mustLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation() error = %v", err)
	}
	return loc
}

func openSession(userID uuid.UUID, start time.Time, task string) *domain.Session {
	sess := domain.NewActiveSession(userID, start)
	sess.TaskDescription = task
	return sess
}

func TestSplitter_Run_SplitContinuity(t *testing.T) {
	loc := mustLoc(t)
	store := newMemStore()
	marks := &memMarks{}
	splitter := NewSplitter(store, marks)

	userID := uuid.New()
	start := time.Date(2024, 1, 1, 23, 0, 0, 0, loc)
	sess := openSession(userID, start, "night shift")
	store.add(sess)

	cutoff := time.Date(2024, 1, 2, 5, 0, 0, 0, loc)
	result, err := splitter.Run(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.SplitCount() != 1 {
		t.Fatalf("SplitCount() = %d; want 1", result.SplitCount())
	}

	closed := store.sessions[sess.ID]
	if closed.IsActive() {
		t.Fatal("original session should be closed")
	}
	wantEnd := time.Date(2024, 1, 2, 4, 59, 59, 0, loc)
	if !closed.EndTime.Equal(wantEnd) {
		t.Errorf("EndTime = %v; want %v", closed.EndTime, wantEnd)
	}
	if *closed.Duration != 21599 {
		t.Errorf("Duration = %d; want 21599", *closed.Duration)
	}
	if !closed.Verified {
		t.Error("boundary-closed session should be verified")
	}

	open := store.openForUser(userID)
	if len(open) != 1 {
		t.Fatalf("%d open sessions after split; want 1", len(open))
	}
	cont := open[0]
	if !cont.StartTime.Equal(cutoff) {
		t.Errorf("continuation StartTime = %v; want %v", cont.StartTime, cutoff)
	}
	if cont.TaskDescription != "night shift" {
		t.Errorf("continuation TaskDescription = %q; want %q", cont.TaskDescription, "night shift")
	}
	if cont.Verified {
		t.Error("continuation should not be verified")
	}

	// No gap, no overlap: closed end + 1s == continuation start.
	if !closed.EndTime.Add(time.Second).Equal(cont.StartTime) {
		t.Error("closed segment and continuation must cover the interval exactly")
	}
}

func TestSplitter_Run_Idempotent(t *testing.T) {
	loc := mustLoc(t)
	store := newMemStore()
	marks := &memMarks{}
	splitter := NewSplitter(store, marks)

	userID := uuid.New()
	store.add(openSession(userID, time.Date(2024, 1, 1, 23, 0, 0, 0, loc), "task"))

	cutoff := time.Date(2024, 1, 2, 5, 0, 0, 0, loc)
	ctx := context.Background()

	first, err := splitter.Run(ctx, cutoff)
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if first.SplitCount() != 1 {
		t.Fatalf("first SplitCount() = %d; want 1", first.SplitCount())
	}

	// The scheduler redelivered the same cutoff; the continuation must not
	// be re-split.
	second, err := splitter.Run(ctx, cutoff)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if !second.AlreadyProcessed {
		t.Error("second run should report the cutoff as already processed")
	}
	if second.SplitCount() != 0 {
		t.Errorf("second SplitCount() = %d; want 0", second.SplitCount())
	}
	if got := len(store.openForUser(userID)); got != 1 {
		t.Errorf("%d open sessions after redundant run; want 1", got)
	}

	// The next day's cutoff processes normally.
	next := time.Date(2024, 1, 3, 5, 0, 0, 0, loc)
	third, err := splitter.Run(ctx, next)
	if err != nil {
		t.Fatalf("third Run() error = %v", err)
	}
	if third.AlreadyProcessed {
		t.Error("next cutoff should not be treated as processed")
	}
	if third.SplitCount() != 1 {
		t.Errorf("third SplitCount() = %d; want 1", third.SplitCount())
	}
}

func TestSplitter_Run_FailureDoesNotAbortBatch(t *testing.T) {
	loc := mustLoc(t)
	store := newMemStore()
	marks := &memMarks{}
	splitter := NewSplitter(store, marks)

	okUser := uuid.New()
	badUser := uuid.New()
	start := time.Date(2024, 1, 1, 22, 0, 0, 0, loc)
	store.add(openSession(okUser, start, "ok"))
	store.add(openSession(badUser, start, "will fail"))
	store.failCreate[badUser] = errors.New("storage unavailable")

	cutoff := time.Date(2024, 1, 2, 5, 0, 0, 0, loc)
	result, err := splitter.Run(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Outcomes) != 2 {
		t.Fatalf("len(Outcomes) = %d; want 2", len(result.Outcomes))
	}
	if result.SplitCount() != 1 {
		t.Errorf("SplitCount() = %d; want 1", result.SplitCount())
	}

	var failed *Outcome
	for i := range result.Outcomes {
		if result.Outcomes[i].UserID == badUser {
			failed = &result.Outcomes[i]
		}
	}
	if failed == nil || failed.Split || failed.Error == "" {
		t.Errorf("failing session outcome = %+v; want recorded failure", failed)
	}

	if got := len(store.openForUser(okUser)); got != 1 {
		t.Errorf("healthy user has %d open sessions; want 1", got)
	}

	// An incomplete batch must not advance the mark, or the failed session
	// would never be re-attempted for this cutoff.
	if marks.last != nil {
		t.Errorf("mark = %v; want nil after partial failure", *marks.last)
	}
}

func TestSplitter_Run_FailedSessionRetriedOnRedelivery(t *testing.T) {
	loc := mustLoc(t)
	store := newMemStore()
	marks := &memMarks{}
	splitter := NewSplitter(store, marks)

	okUser := uuid.New()
	badUser := uuid.New()
	start := time.Date(2024, 1, 1, 22, 0, 0, 0, loc)
	store.add(openSession(okUser, start, "ok"))
	badSess := openSession(badUser, start, "flaky storage")
	store.add(badSess)
	store.failClose[badUser] = errors.New("storage unavailable")

	cutoff := time.Date(2024, 1, 2, 5, 0, 0, 0, loc)
	ctx := context.Background()

	first, err := splitter.Run(ctx, cutoff)
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if first.SplitCount() != 1 {
		t.Fatalf("first SplitCount() = %d; want 1", first.SplitCount())
	}
	if marks.last != nil {
		t.Fatal("mark must not advance while a session is unprocessed")
	}

	// Storage recovers; the scheduler redelivers the same cutoff.
	delete(store.failClose, badUser)

	second, err := splitter.Run(ctx, cutoff)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if second.AlreadyProcessed {
		t.Error("redelivery after failure must not be treated as processed")
	}
	if second.SplitCount() != 1 {
		t.Errorf("second SplitCount() = %d; want 1 (the recovered session)", second.SplitCount())
	}

	closed := store.sessions[badSess.ID]
	if closed.IsActive() {
		t.Fatal("failed session should be closed on retry")
	}
	wantEnd := cutoff.Add(-time.Second)
	if !closed.EndTime.Equal(wantEnd) {
		t.Errorf("EndTime = %v; want %v", closed.EndTime, wantEnd)
	}

	// The first run's successful split is not redone: its continuation
	// started at the cutoff and is skipped.
	if got := len(store.openForUser(okUser)); got != 1 {
		t.Errorf("ok user has %d open sessions after retry; want 1", got)
	}

	if marks.last == nil || !marks.last.Equal(cutoff) {
		t.Error("mark should advance once the batch completes cleanly")
	}
}

func TestSplitter_Run_SkipsSessionsStartedAfterCutoff(t *testing.T) {
	loc := mustLoc(t)
	store := newMemStore()
	marks := &memMarks{}
	splitter := NewSplitter(store, marks)

	userID := uuid.New()
	cutoff := time.Date(2024, 1, 2, 5, 0, 0, 0, loc)
	// Clocked in after the boundary the (late) scheduler is delivering.
	sess := openSession(userID, cutoff.Add(10*time.Minute), "fresh start")
	store.add(sess)

	result, err := splitter.Run(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.SplitCount() != 0 {
		t.Errorf("SplitCount() = %d; want 0", result.SplitCount())
	}
	if len(result.Outcomes) != 1 || !result.Outcomes[0].Skipped {
		t.Errorf("Outcomes = %+v; want one skipped outcome", result.Outcomes)
	}
	if !store.sessions[sess.ID].IsActive() {
		t.Error("session started after the cutoff must stay open")
	}
}

func TestSplitter_Run_NoOpenSessions(t *testing.T) {
	store := newMemStore()
	marks := &memMarks{}
	splitter := NewSplitter(store, marks)

	cutoff := time.Date(2024, 1, 2, 5, 0, 0, 0, time.UTC)
	result, err := splitter.Run(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Outcomes) != 0 {
		t.Errorf("len(Outcomes) = %d; want 0", len(result.Outcomes))
	}
	if marks.last == nil || !marks.last.Equal(cutoff) {
		t.Error("mark should be recorded even when nothing was split")
	}
}
