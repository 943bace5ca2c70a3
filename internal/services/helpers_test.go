package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"imposter-game-backend/internal/database"
	"imposter-game-backend/internal/events"
	"imposter-game-backend/internal/logging"
	"imposter-game-backend/internal/models"
	"imposter-game-backend/internal/random"
	"imposter-game-backend/internal/scheduler"
	"imposter-game-backend/internal/store"
)

type timerCall struct {
	Round    int
	Duration time.Duration
	Chaos    bool
}

type fakeTimers struct {
	mu      sync.Mutex
	running map[string]*scheduler.Status
	starts  []timerCall
	stops   int
}

func newFakeTimers() *fakeTimers {
	return &fakeTimers{running: make(map[string]*scheduler.Status)}
}

func (f *fakeTimers) Start(sessionID string, round int, duration time.Duration, chaos bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, timerCall{Round: round, Duration: duration, Chaos: chaos})
	f.running[sessionID] = &scheduler.Status{Round: round, RemainingSeconds: int(duration / time.Second), ChaosEnabled: chaos}
}

func (f *fakeTimers) Stop(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.running[sessionID]; ok {
		f.stops++
	}
	delete(f.running, sessionID)
}

func (f *fakeTimers) Pause(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.running[sessionID]
	if !ok {
		return scheduler.ErrNoTimer
	}
	st.Paused = true
	return nil
}

func (f *fakeTimers) Resume(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.running[sessionID]
	if !ok {
		return scheduler.ErrNoTimer
	}
	st.Paused = false
	return nil
}

func (f *fakeTimers) Status(sessionID string) (scheduler.Status, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.running[sessionID]
	if !ok {
		return scheduler.Status{}, false
	}
	return *st, true
}

func (f *fakeTimers) isRunning(sessionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.running[sessionID]
	return ok
}

type harness struct {
	svc    *SessionService
	store  store.Store
	timers *fakeTimers
	events *events.Recorder
}

func newHarness(t *testing.T, st store.Store, settings Settings, rng random.Source) *harness {
	t.Helper()
	if st == nil {
		st = store.NewMemoryStore()
	}
	if rng == nil {
		rng = random.New(42)
	}
	h := &harness{store: st, timers: newFakeTimers(), events: &events.Recorder{}}
	h.svc = NewSessionService(st, settings,
		WithTimers(h.timers),
		WithPublisher(h.events),
		WithLogger(discardLogger{}),
		WithRand(rng),
	)
	return h
}

type discardLogger struct{}

func (discardLogger) LogEvent(level logging.Level, source, message string, metadata map[string]any) {}

func (h *harness) create(t *testing.T) *models.Session {
	t.Helper()
	s, err := h.svc.CreateSession(context.Background(), CreateSessionInput{Topic: "Beach Vacation", Hint: "Summer"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return s
}

// lobby creates a session with n joined players, in seat order.
func (h *harness) lobby(t *testing.T, n int) (*models.Session, []*models.Player) {
	t.Helper()
	s := h.create(t)
	players := make([]*models.Player, n)
	for i := 0; i < n; i++ {
		p, err := h.svc.JoinSession(context.Background(), s.ID, fmt.Sprintf("user-%d", i+1), fmt.Sprintf("Player %d", i+1))
		if err != nil {
			t.Fatalf("JoinSession %d: %v", i+1, err)
		}
		players[i] = p
	}
	return s, players
}

// started creates and starts a session with n players; the scripted source
// makes the first seat the only imposter.
func (h *harness) started(t *testing.T, n int) (*models.Session, []*models.Player) {
	t.Helper()
	s, players := h.lobby(t, n)
	if _, err := h.svc.StartSession(context.Background(), s.ID); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return s, players
}

func (h *harness) voting(t *testing.T, n int) (*models.Session, []*models.Player) {
	t.Helper()
	s, players := h.started(t, n)
	if err := h.svc.OpenVoting(context.Background(), s.ID); err != nil {
		t.Fatalf("OpenVoting: %v", err)
	}
	return s, players
}

func (h *harness) vote(t *testing.T, sessionID string, voter, target *models.Player) *CastVoteResult {
	t.Helper()
	res, err := h.svc.CastVote(context.Background(), sessionID, voter.ID, target.ID)
	if err != nil {
		t.Fatalf("CastVote %s -> %s: %v", voter.Name, target.Name, err)
	}
	return res
}

func (h *harness) snapshot(t *testing.T, sessionID string) *store.Snapshot {
	t.Helper()
	snap, err := h.store.Snapshot(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return snap
}

// firstSeatImposter makes every draw zero: seat 1 gets the imposter card and
// the join code is always 000000, so it serves one session per store.
func firstSeatImposter() random.Source {
	return random.NewSequence(0)
}

var sqliteCounter atomic.Int64

func newSQLiteStore(t *testing.T) *store.GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:services_test_%d?mode=memory&cache=shared", sqliteCounter.Add(1))
	db, err := database.OpenSQLite(dsn, nil)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return store.NewGormStore(db)
}
