package store

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"imposter-game-backend/internal/apperr"
	"imposter-game-backend/internal/models"
)

// maxEventLogs bounds the audit lines kept by MemoryStore.
const maxEventLogs = 1000

// MemoryStore keeps sessions in process memory. Each session is an immutable
// state value swapped on commit, so readers never take the writer lock.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	codes    map[string]string // code -> session id

	logMu sync.Mutex
	logs  []models.EventLog
}

type memorySession struct {
	mu    sync.Mutex // serializes writers
	state atomic.Pointer[memoryState]
}

type memoryState struct {
	session models.Session
	players []models.Player
	votes   []models.Vote
	nextID  uint
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		codes:    make(map[string]string),
	}
}

func (s *MemoryStore) CreateSession(ctx context.Context, session *models.Session) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, "create session", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return apperr.Newf(apperr.Conflict, "session %s already exists", session.ID)
	}
	if id, taken := s.codes[session.Code]; taken && session.Code != "" {
		if ms, ok := s.sessions[id]; ok && ms.state.Load().session.Status != models.SessionStatusEnded {
			return apperr.Newf(apperr.Conflict, "code %s is in use", session.Code)
		}
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	ms := &memorySession{}
	ms.state.Store(&memoryState{session: *session, nextID: 1})
	s.sessions[session.ID] = ms
	if session.Code != "" {
		s.codes[session.Code] = session.ID
	}
	return nil
}

func (s *MemoryStore) get(id string) (*memorySession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms, ok := s.sessions[id]
	return ms, ok
}

func (s *MemoryStore) SessionIDByCode(ctx context.Context, code string) (string, error) {
	s.mu.RLock()
	id, ok := s.codes[code]
	s.mu.RUnlock()
	if !ok {
		return "", apperr.Newf(apperr.NotFound, "no session with code %s", code)
	}
	ms, ok := s.get(id)
	if !ok || ms.state.Load().session.Status == models.SessionStatusEnded {
		return "", apperr.Newf(apperr.NotFound, "no session with code %s", code)
	}
	return id, nil
}

func (s *MemoryStore) Snapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	ms, ok := s.get(sessionID)
	if !ok {
		return nil, apperr.Newf(apperr.NotFound, "session %s not found", sessionID)
	}
	st := ms.state.Load()
	snap := &Snapshot{
		Session: st.session,
		Players: append([]models.Player(nil), st.players...),
	}
	for _, v := range st.votes {
		if v.Round == st.session.Round {
			snap.Votes = append(snap.Votes, v)
		}
	}
	return snap, nil
}

func (s *MemoryStore) RoundVotes(ctx context.Context, sessionID string, round int) ([]models.Vote, error) {
	ms, ok := s.get(sessionID)
	if !ok {
		return nil, apperr.Newf(apperr.NotFound, "session %s not found", sessionID)
	}
	var votes []models.Vote
	for _, v := range ms.state.Load().votes {
		if v.Round == round {
			votes = append(votes, v)
		}
	}
	return votes, nil
}

func (s *MemoryStore) Update(ctx context.Context, sessionID string, fn func(tx Tx) error) error {
	ms, ok := s.get(sessionID)
	if !ok {
		return apperr.Newf(apperr.NotFound, "session %s not found", sessionID)
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, "update session", err)
	}

	cur := ms.state.Load()
	staged := &memoryState{
		session: cur.session,
		players: append([]models.Player(nil), cur.players...),
		votes:   append([]models.Vote(nil), cur.votes...),
		nextID:  cur.nextID,
	}
	tx := &memoryTx{state: staged, session: staged.session}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, "commit session", err)
	}
	ms.state.Store(staged)

	if staged.session.Status == models.SessionStatusEnded {
		s.mu.Lock()
		if s.codes[staged.session.Code] == sessionID {
			delete(s.codes, staged.session.Code)
		}
		s.mu.Unlock()
	}
	return nil
}

func (s *MemoryStore) AppendEventLog(ctx context.Context, entry *models.EventLog) error {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	entry.ID = uint(len(s.logs) + 1)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.logs = append(s.logs, *entry)
	if len(s.logs) > maxEventLogs {
		s.logs = s.logs[len(s.logs)-maxEventLogs:]
	}
	return nil
}

// EventLogs returns a copy of the retained audit lines.
func (s *MemoryStore) EventLogs() []models.EventLog {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	return append([]models.EventLog(nil), s.logs...)
}

type memoryTx struct {
	state   *memoryState
	session models.Session
}

func (t *memoryTx) Session() *models.Session {
	return &t.session
}

func (t *memoryTx) SaveSession(session *models.Session) error {
	if session.Version != t.state.session.Version {
		return apperr.Newf(apperr.Conflict, "session %s was modified concurrently", session.ID)
	}
	session.Version++
	t.state.session = *session
	t.session = *session
	return nil
}

func (t *memoryTx) Players() ([]models.Player, error) {
	players := append([]models.Player(nil), t.state.players...)
	sort.SliceStable(players, func(i, j int) bool { return players[i].Seat < players[j].Seat })
	return players, nil
}

func (t *memoryTx) InsertPlayer(player *models.Player) (bool, error) {
	for _, p := range t.state.players {
		if p.UserID == player.UserID {
			return false, nil
		}
	}
	if player.JoinedAt.IsZero() {
		player.JoinedAt = time.Now()
	}
	t.state.players = append(t.state.players, *player)
	return true, nil
}

func (t *memoryTx) SavePlayer(player *models.Player) error {
	for i := range t.state.players {
		if t.state.players[i].ID == player.ID {
			t.state.players[i] = *player
			return nil
		}
	}
	return apperr.Newf(apperr.NotFound, "player %s not found", player.ID)
}

func (t *memoryTx) InsertVote(vote *models.Vote) (bool, error) {
	for _, v := range t.state.votes {
		if v.VoterID == vote.VoterID && v.Round == vote.Round {
			return false, nil
		}
	}
	vote.ID = t.state.nextID
	t.state.nextID++
	if vote.CastAt.IsZero() {
		vote.CastAt = time.Now()
	}
	t.state.votes = append(t.state.votes, *vote)
	return true, nil
}

func (t *memoryTx) Votes(round int) ([]models.Vote, error) {
	var votes []models.Vote
	for _, v := range t.state.votes {
		if v.Round == round {
			votes = append(votes, v)
		}
	}
	return votes, nil
}
