package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"imposter-game-backend/internal/apperr"
	"imposter-game-backend/internal/events"
	"imposter-game-backend/internal/logging"
	"imposter-game-backend/internal/metrics"
	"imposter-game-backend/internal/models"
	"imposter-game-backend/internal/random"
	"imposter-game-backend/internal/scheduler"
	"imposter-game-backend/internal/store"

	"github.com/google/uuid"
)

const (
	logSource       = "SessionService"
	maxCodeAttempts = 20
)

// PhaseTimers is the scheduler surface the service drives.
type PhaseTimers interface {
	Start(sessionID string, round int, duration time.Duration, chaos bool)
	Stop(sessionID string)
	Pause(sessionID string) error
	Resume(sessionID string) error
	Status(sessionID string) (scheduler.Status, bool)
}

type Settings struct {
	MinPlayers             int
	DefaultDurationMinutes int
	StoreTimeout           time.Duration
	StoreRetries           uint
	// AutoEliminate runs the elimination as soon as every alive player voted.
	AutoEliminate bool
}

func DefaultSettings() Settings {
	return Settings{
		MinPlayers:             3,
		DefaultDurationMinutes: 15,
		StoreTimeout:           5 * time.Second,
		StoreRetries:           3,
	}
}

type SessionService struct {
	store     store.Store
	settings  Settings
	timers    PhaseTimers
	publisher events.Publisher
	logger    logging.EventLogger
	metrics   *metrics.Metrics
	rng       random.Source
	topics    *TopicPack
	locks     *sessionLocks
	now       func() time.Time
}

type Option func(*SessionService)

func WithTimers(t PhaseTimers) Option         { return func(s *SessionService) { s.timers = t } }
func WithPublisher(p events.Publisher) Option { return func(s *SessionService) { s.publisher = p } }
func WithLogger(l logging.EventLogger) Option { return func(s *SessionService) { s.logger = l } }
func WithMetrics(m *metrics.Metrics) Option   { return func(s *SessionService) { s.metrics = m } }
func WithRand(r random.Source) Option         { return func(s *SessionService) { s.rng = r } }
func WithTopics(p *TopicPack) Option          { return func(s *SessionService) { s.topics = p } }
func WithClock(now func() time.Time) Option   { return func(s *SessionService) { s.now = now } }

func NewSessionService(st store.Store, settings Settings, opts ...Option) *SessionService {
	def := DefaultSettings()
	if settings.MinPlayers < 3 {
		settings.MinPlayers = def.MinPlayers
	}
	if settings.DefaultDurationMinutes <= 0 {
		settings.DefaultDurationMinutes = def.DefaultDurationMinutes
	}
	if settings.StoreTimeout <= 0 {
		settings.StoreTimeout = def.StoreTimeout
	}
	if settings.StoreRetries == 0 {
		settings.StoreRetries = def.StoreRetries
	}

	s := &SessionService{
		store:     st,
		settings:  settings,
		timers:    noopTimers{},
		publisher: events.Nop{},
		logger:    logging.StdLogger{},
		locks:     newSessionLocks(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		rng, err := random.NewFromEntropy()
		if err != nil {
			rng = random.New(time.Now().UnixNano())
		}
		s.rng = rng
	}
	if s.topics == nil {
		s.topics = DefaultTopicPack()
	}
	return s
}

type CreateSessionInput struct {
	Topic           string `json:"topic"`
	Hint            string `json:"hint"`
	ImposterCount   int    `json:"imposter_count"`
	DurationMinutes int    `json:"duration_minutes"`
	ChaosEnabled    bool   `json:"chaos_enabled"`
}

type StartResult struct {
	ImposterIDs  []string `json:"imposter_ids"`
	TotalPlayers int      `json:"total_players"`
}

type RoleInfo struct {
	Role        string `json:"role"`
	IsAlive     bool   `json:"is_alive"`
	Information string `json:"information"`
}

type EliminatedPlayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type EliminationResult struct {
	Round      int              `json:"round"`
	Eliminated EliminatedPlayer `json:"eliminated"`
	// Winner is nil while the game continues.
	Winner *string `json:"winner"`
}

type CastVoteResult struct {
	Round     int `json:"round"`
	VotesCast int `json:"votes_cast"`
	// Elimination is set when the vote completed the round and automatic
	// elimination is on.
	Elimination *EliminationResult `json:"elimination,omitempty"`
}

type PlayerView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Seat          int    `json:"seat"`
	Alive         bool   `json:"alive"`
	VotesReceived int    `json:"votes_received"`
	HasVoted      bool   `json:"has_voted"`
	Role          string `json:"role,omitempty"`
}

type SessionState struct {
	Session   models.Session    `json:"session"`
	Players   []PlayerView      `json:"players"`
	VotesCast int               `json:"votes_cast"`
	Timer     *scheduler.Status `json:"timer,omitempty"`
}

func (s *SessionService) CreateSession(ctx context.Context, in CreateSessionInput) (*models.Session, error) {
	topic := strings.TrimSpace(in.Topic)
	hint := strings.TrimSpace(in.Hint)
	switch {
	case topic == "" && hint == "":
		picked := s.topics.Pick(s.rng)
		topic, hint = picked.Topic, picked.Hint
	case topic == "" || hint == "":
		return nil, apperr.New(apperr.InvalidArgument, "topic and hint must be given together")
	}

	imposters := in.ImposterCount
	if imposters == 0 {
		imposters = 1
	}
	if imposters < 0 {
		return nil, apperr.Newf(apperr.InvalidArgument, "imposter count %d is negative", imposters)
	}
	duration := in.DurationMinutes
	if duration == 0 {
		duration = s.settings.DefaultDurationMinutes
	}
	if duration < 0 {
		return nil, apperr.Newf(apperr.InvalidArgument, "duration %d is negative", duration)
	}

	ctx, cancel := context.WithTimeout(ctx, s.settings.StoreTimeout)
	defer cancel()

	session := &models.Session{
		ID:              uuid.NewString(),
		Status:          models.SessionStatusLobby,
		Round:           1,
		SecretTopic:     topic,
		ImposterHint:    hint,
		ImposterCount:   imposters,
		DurationMinutes: duration,
		ChaosEnabled:    in.ChaosEnabled,
		CreatedAt:       s.now(),
	}
	if err := s.insertWithUniqueCode(ctx, session); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
	}
	s.logger.LogEvent(logging.LevelInfo, logSource, "session created", map[string]any{
		"session_id": session.ID,
		"code":       session.Code,
	})
	s.publish(events.SessionCreated, session.ID, map[string]any{"code": session.Code})
	return session, nil
}

// insertWithUniqueCode draws join codes until the store accepts one. The
// store owns the uniqueness check, so concurrent creates cannot share a code.
func (s *SessionService) insertWithUniqueCode(ctx context.Context, session *models.Session) error {
	for i := 0; i < maxCodeAttempts; i++ {
		session.Code = fmt.Sprintf("%06d", s.rng.IntN(1000000))
		taken := false
		err := s.retry(ctx, func() error {
			err := s.store.CreateSession(ctx, session)
			if errors.Is(err, apperr.ErrConflict) {
				taken = true
				return nil
			}
			return err
		})
		if err != nil {
			return err
		}
		if !taken {
			return nil
		}
	}
	return apperr.New(apperr.Conflict, "could not allocate a join code")
}

// GetSessionByCode resolves the join code of a session that has not ended.
func (s *SessionService) GetSessionByCode(ctx context.Context, code string) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settings.StoreTimeout)
	defer cancel()

	id, err := s.store.SessionIDByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	snap, err := s.read(ctx, id)
	if err != nil {
		return nil, err
	}
	return &snap.Session, nil
}

func (s *SessionService) JoinSession(ctx context.Context, sessionID, userID, name string) (*models.Player, error) {
	userID = strings.TrimSpace(userID)
	name = strings.TrimSpace(name)
	if userID == "" || name == "" {
		return nil, apperr.New(apperr.InvalidArgument, "user id and name are required")
	}

	var player models.Player
	err := s.mutate(ctx, sessionID, func(tx store.Tx) error {
		session := tx.Session()
		if session.Status != models.SessionStatusLobby {
			return apperr.Newf(apperr.InvalidState, "cannot join a session in %s", session.Status)
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		seat := 1
		for _, p := range players {
			if p.Seat >= seat {
				seat = p.Seat + 1
			}
		}
		player = models.Player{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			UserID:    userID,
			Name:      name,
			Seat:      seat,
			Role:      models.RoleUnassigned,
			Alive:     true,
			JoinedAt:  s.now(),
		}
		inserted, err := tx.InsertPlayer(&player)
		if err != nil {
			return err
		}
		if !inserted {
			return apperr.Newf(apperr.DuplicateJoin, "user %s already joined", userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PlayersJoined.Inc()
	}
	s.logger.LogEvent(logging.LevelInfo, logSource, "player joined", map[string]any{
		"session_id": sessionID,
		"player_id":  player.ID,
		"seat":       player.Seat,
	})
	s.publish(events.PlayerJoined, sessionID, map[string]any{
		"player_id": player.ID,
		"name":      player.Name,
		"seat":      player.Seat,
	})
	return &player, nil
}

// StartSession assigns every role and moves the session to ACTIVE in one
// store unit, then starts the phase timer.
func (s *SessionService) StartSession(ctx context.Context, sessionID string) (*StartResult, error) {
	var (
		result  StartResult
		started models.Session
	)
	err := s.mutate(ctx, sessionID, func(tx store.Tx) error {
		result = StartResult{}
		session := tx.Session()
		if session.Status != models.SessionStatusLobby {
			return apperr.Newf(apperr.InvalidState, "cannot start a session in %s", session.Status)
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		if len(players) < s.settings.MinPlayers {
			return apperr.Newf(apperr.InsufficientPlayers,
				"need at least %d players, have %d", s.settings.MinPlayers, len(players))
		}

		ids := make([]string, len(players))
		for i, p := range players {
			ids[i] = p.ID
		}
		roles, err := AssignRoles(ids, session.ImposterCount, s.rng)
		if err != nil {
			return err
		}
		for i := range players {
			players[i].Role = roles[players[i].ID]
			players[i].Alive = true
			players[i].VotesReceived = 0
			if err := tx.SavePlayer(&players[i]); err != nil {
				return err
			}
			if players[i].Role == models.RoleImposter {
				result.ImposterIDs = append(result.ImposterIDs, players[i].ID)
			}
		}
		result.TotalPlayers = len(players)

		now := s.now()
		session.Status = models.SessionStatusActive
		session.StartedAt = &now
		session.VotingEnabled = false
		session.WarningSent = false
		if err := tx.SaveSession(session); err != nil {
			return err
		}
		started = *session
		return nil
	}, func() {
		s.timers.Start(sessionID, started.Round, roundDuration(&started), started.ChaosEnabled)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SessionsStarted.Inc()
	}
	s.logger.LogEvent(logging.LevelInfo, logSource, "session started", map[string]any{
		"session_id": sessionID,
		"players":    result.TotalPlayers,
		"imposters":  len(result.ImposterIDs),
	})
	s.publish(events.SessionStarted, sessionID, map[string]any{
		"round":         started.Round,
		"total_players": result.TotalPlayers,
	})
	return &result, nil
}

// GetPlayerRole returns the caller's own card. Roles do not exist before the
// session starts.
func (s *SessionService) GetPlayerRole(ctx context.Context, sessionID, userID string) (*RoleInfo, error) {
	snap, err := s.read(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	player, ok := snap.PlayerByUser(userID)
	if !ok {
		return nil, apperr.Newf(apperr.NotFound, "user %s is not in session %s", userID, sessionID)
	}
	if snap.Session.Status == models.SessionStatusLobby || player.Role == models.RoleUnassigned {
		return nil, apperr.New(apperr.InvalidState, "roles are not assigned yet")
	}
	return &RoleInfo{
		Role:        player.Role,
		IsAlive:     player.Alive,
		Information: RoleInformation(&snap.Session, player.Role),
	}, nil
}

func (s *SessionService) OpenVoting(ctx context.Context, sessionID string) error {
	var round int
	err := s.mutate(ctx, sessionID, func(tx store.Tx) error {
		session := tx.Session()
		if session.Status != models.SessionStatusActive {
			return apperr.Newf(apperr.InvalidState, "cannot open voting in %s", session.Status)
		}
		round = session.Round
		return openVoting(tx, session)
	}, func() {
		s.timers.Stop(sessionID)
	})
	if err != nil {
		return err
	}

	s.logger.LogEvent(logging.LevelInfo, logSource, "voting opened", map[string]any{
		"session_id": sessionID,
		"round":      round,
	})
	s.publish(events.VotingOpened, sessionID, map[string]any{"round": round})
	return nil
}

func openVoting(tx store.Tx, session *models.Session) error {
	session.Status = models.SessionStatusVote
	session.VotingEnabled = true
	return tx.SaveSession(session)
}

func (s *SessionService) CastVote(ctx context.Context, sessionID, voterID, targetID string) (*CastVoteResult, error) {
	var (
		result CastVoteResult
		ended  models.Session
	)
	err := s.mutate(ctx, sessionID, func(tx store.Tx) error {
		result = CastVoteResult{}
		session := tx.Session()
		if session.Status != models.SessionStatusVote || !session.VotingEnabled {
			return apperr.New(apperr.VotingClosed, "voting is closed")
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		voter, vi := findPlayer(players, voterID)
		if vi < 0 {
			return apperr.Newf(apperr.NotFound, "voter %s not found", voterID)
		}
		_, ti := findPlayer(players, targetID)
		if ti < 0 {
			return apperr.Newf(apperr.NotFound, "target %s not found", targetID)
		}
		switch {
		case !voter.Alive:
			return apperr.New(apperr.InvalidArgument, "eliminated players cannot vote")
		case !players[ti].Alive:
			return apperr.New(apperr.InvalidArgument, "cannot vote for an eliminated player")
		case voterID == targetID:
			return apperr.New(apperr.InvalidArgument, "cannot vote for yourself")
		}

		inserted, err := tx.InsertVote(&models.Vote{
			SessionID: sessionID,
			VoterID:   voterID,
			TargetID:  targetID,
			Round:     session.Round,
			CastAt:    s.now(),
		})
		if err != nil {
			return err
		}
		if !inserted {
			return apperr.Newf(apperr.DuplicateVote, "player %s already voted in round %d", voterID, session.Round)
		}
		players[ti].VotesReceived++
		if err := tx.SavePlayer(&players[ti]); err != nil {
			return err
		}

		votes, err := tx.Votes(session.Round)
		if err != nil {
			return err
		}
		result.Round = session.Round
		result.VotesCast = len(votes)

		if s.settings.AutoEliminate && len(votes) >= aliveCount(players) {
			elim, err := eliminate(tx, session, players, s.now())
			if err != nil {
				return err
			}
			result.Elimination = elim
			ended = *session
		}
		return nil
	}, func() {
		if result.Elimination != nil {
			s.stopIfEnded(sessionID, result.Elimination)
		}
	})
	if err != nil {
		if errors.Is(err, apperr.ErrDuplicateVote) && s.metrics != nil {
			s.metrics.DuplicateVotes.Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.VotesCast.Inc()
	}
	s.logger.LogEvent(logging.LevelInfo, logSource, "vote cast", map[string]any{
		"session_id": sessionID,
		"round":      result.Round,
		"voter_id":   voterID,
	})
	s.publish(events.VoteCast, sessionID, map[string]any{
		"round":      result.Round,
		"voter_id":   voterID,
		"votes_cast": result.VotesCast,
	})
	if result.Elimination != nil {
		s.afterElimination(sessionID, &ended, result.Elimination)
	}
	return &result, nil
}

// Tally counts the votes of round, or of the current round when round is 0.
func (s *SessionService) Tally(ctx context.Context, sessionID string, round int) ([]TallyEntry, error) {
	snap, err := s.read(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	votes := snap.Votes
	if round != 0 && round != snap.Session.Round {
		if round < 0 || round > snap.Session.Round {
			return nil, apperr.Newf(apperr.InvalidArgument, "round %d does not exist", round)
		}
		ctx, cancel := context.WithTimeout(ctx, s.settings.StoreTimeout)
		defer cancel()
		votes, err = s.store.RoundVotes(ctx, sessionID, round)
		if err != nil {
			return nil, err
		}
	}
	return TallyVotes(votes, snap.Players), nil
}

func (s *SessionService) Eliminate(ctx context.Context, sessionID string) (*EliminationResult, error) {
	var (
		result *EliminationResult
		after  models.Session
	)
	err := s.mutate(ctx, sessionID, func(tx store.Tx) error {
		session := tx.Session()
		players, err := tx.Players()
		if err != nil {
			return err
		}
		result, err = eliminate(tx, session, players, s.now())
		if err != nil {
			return err
		}
		after = *session
		return nil
	}, func() {
		s.stopIfEnded(sessionID, result)
	})
	if err != nil {
		return nil, err
	}
	s.afterElimination(sessionID, &after, result)
	return result, nil
}

// eliminate removes the alive player with the most votes received and
// applies the win rules. players is updated in place.
func eliminate(tx store.Tx, session *models.Session, players []models.Player, now time.Time) (*EliminationResult, error) {
	if session.Status != models.SessionStatusVote {
		return nil, apperr.Newf(apperr.InvalidState, "cannot eliminate in %s", session.Status)
	}
	if session.Resolved() {
		return nil, apperr.Newf(apperr.InvalidState, "round %d already resolved", session.Round)
	}
	if aliveCount(players) == 0 {
		return nil, apperr.New(apperr.NoEligibleTarget, "no alive players")
	}
	target, ok := pickEliminated(players)
	if !ok {
		return nil, apperr.New(apperr.NoEligibleTarget, "no votes cast this round")
	}

	_, idx := findPlayer(players, target.ID)
	players[idx].Alive = false
	if err := tx.SavePlayer(&players[idx]); err != nil {
		return nil, err
	}

	result := &EliminationResult{
		Round: session.Round,
		Eliminated: EliminatedPlayer{
			ID:   target.ID,
			Name: target.Name,
			Role: target.Role,
		},
	}
	session.VotingEnabled = false
	session.LastResolvedRound = session.Round
	if winner := evaluateWinner(players); winner != "" {
		session.Status = models.SessionStatusEnded
		session.Winner = winner
		session.EndedAt = &now
		result.Winner = &winner
	}
	if err := tx.SaveSession(session); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SessionService) afterElimination(sessionID string, session *models.Session, result *EliminationResult) {
	if s.metrics != nil {
		s.metrics.Eliminations.WithLabelValues(result.Eliminated.Role).Inc()
	}
	s.logger.LogEvent(logging.LevelInfo, logSource, "player eliminated", map[string]any{
		"session_id": sessionID,
		"round":      result.Round,
		"player_id":  result.Eliminated.ID,
	})
	s.publish(events.PlayerEliminated, sessionID, result)

	if result.Winner != nil {
		if s.metrics != nil {
			s.metrics.GamesEnded.WithLabelValues(*result.Winner).Inc()
		}
		s.logger.LogEvent(logging.LevelInfo, logSource, "session ended", map[string]any{
			"session_id": sessionID,
			"winner":     *result.Winner,
		})
		s.publish(events.SessionEnded, sessionID, map[string]any{
			"winner": *result.Winner,
			"round":  session.Round,
		})
	}
}

// stopIfEnded cancels the timer of a session the elimination just ended. It
// runs under the session lock, like every other timer start or stop.
func (s *SessionService) stopIfEnded(sessionID string, result *EliminationResult) {
	if result.Winner != nil {
		s.timers.Stop(sessionID)
	}
}

// NextRound starts another discussion round after a vote that did not end
// the game.
func (s *SessionService) NextRound(ctx context.Context, sessionID string) (int, error) {
	var next models.Session
	err := s.mutate(ctx, sessionID, func(tx store.Tx) error {
		session := tx.Session()
		if session.Status != models.SessionStatusVote {
			return apperr.Newf(apperr.InvalidState, "cannot start a new round in %s", session.Status)
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		for i := range players {
			if players[i].VotesReceived == 0 {
				continue
			}
			players[i].VotesReceived = 0
			if err := tx.SavePlayer(&players[i]); err != nil {
				return err
			}
		}
		session.Round++
		session.Status = models.SessionStatusActive
		session.VotingEnabled = false
		session.WarningSent = false
		if err := tx.SaveSession(session); err != nil {
			return err
		}
		next = *session
		return nil
	}, func() {
		s.timers.Start(sessionID, next.Round, roundDuration(&next), next.ChaosEnabled)
	})
	if err != nil {
		return 0, err
	}

	s.logger.LogEvent(logging.LevelInfo, logSource, "round started", map[string]any{
		"session_id": sessionID,
		"round":      next.Round,
	})
	s.publish(events.RoundStarted, sessionID, map[string]any{"round": next.Round})
	return next.Round, nil
}

func (s *SessionService) ForceEnd(ctx context.Context, sessionID string) error {
	err := s.mutate(ctx, sessionID, func(tx store.Tx) error {
		session := tx.Session()
		if session.Status == models.SessionStatusEnded {
			return apperr.New(apperr.InvalidState, "session already ended")
		}
		now := s.now()
		session.Status = models.SessionStatusEnded
		session.VotingEnabled = false
		session.EndedAt = &now
		return tx.SaveSession(session)
	}, func() {
		s.timers.Stop(sessionID)
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.GamesEnded.WithLabelValues("none").Inc()
	}
	s.logger.LogEvent(logging.LevelInfo, logSource, "session force-ended", map[string]any{
		"session_id": sessionID,
	})
	s.publish(events.SessionEnded, sessionID, map[string]any{"winner": nil})
	return nil
}

func (s *SessionService) PauseTimer(ctx context.Context, sessionID string) error {
	return s.controlTimer(ctx, sessionID, events.TimerPaused, s.timers.Pause)
}

func (s *SessionService) ResumeTimer(ctx context.Context, sessionID string) error {
	return s.controlTimer(ctx, sessionID, events.TimerResumed, s.timers.Resume)
}

// controlTimer holds the session lock so a pause cannot interleave with a
// concurrent openVoting.
func (s *SessionService) controlTimer(ctx context.Context, sessionID string, evType events.Type, op func(string) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.settings.StoreTimeout)
	defer cancel()

	unlock, err := s.locks.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	snap, err := s.store.Snapshot(ctx, sessionID)
	if err != nil {
		unlock()
		return err
	}
	if snap.Session.Status != models.SessionStatusActive {
		unlock()
		return apperr.Newf(apperr.InvalidState, "no running round in %s", snap.Session.Status)
	}
	err = op(sessionID)
	unlock()
	if err != nil {
		return apperr.Wrap(apperr.InvalidState, "timer", err)
	}

	status, _ := s.timers.Status(sessionID)
	s.publish(evType, sessionID, map[string]any{"remaining_seconds": status.RemainingSeconds})
	return nil
}

// GetState is the polling view. Roles are shown only for eliminated players,
// and for everyone once the session has ended.
func (s *SessionService) GetState(ctx context.Context, sessionID string) (*SessionState, error) {
	snap, err := s.read(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	voted := make(map[string]bool, len(snap.Votes))
	for _, v := range snap.Votes {
		voted[v.VoterID] = true
	}
	ended := snap.Session.Status == models.SessionStatusEnded

	state := &SessionState{
		Session:   snap.Session,
		Players:   make([]PlayerView, 0, len(snap.Players)),
		VotesCast: len(snap.Votes),
	}
	for _, p := range snap.Players {
		view := PlayerView{
			ID:            p.ID,
			Name:          p.Name,
			Seat:          p.Seat,
			Alive:         p.Alive,
			VotesReceived: p.VotesReceived,
			HasVoted:      voted[p.ID],
		}
		if ended || !p.Alive {
			view.Role = p.Role
		}
		state.Players = append(state.Players, view)
	}
	if snap.Session.Status == models.SessionStatusActive {
		if status, ok := s.timers.Status(sessionID); ok {
			state.Timer = &status
		}
	}
	return state, nil
}

// WarnRound implements scheduler.Driver.
func (s *SessionService) WarnRound(ctx context.Context, sessionID string, round int) (bool, error) {
	changed := false
	err := s.mutate(ctx, sessionID, func(tx store.Tx) error {
		changed = false
		session := tx.Session()
		if session.Status != models.SessionStatusActive || session.Round != round || session.WarningSent {
			return nil
		}
		session.WarningSent = true
		if err := tx.SaveSession(session); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil || !changed {
		return false, err
	}
	s.logger.LogEvent(logging.LevelInfo, logSource, "time warning", map[string]any{
		"session_id": sessionID,
		"round":      round,
	})
	s.publish(events.TimerWarning, sessionID, map[string]any{"round": round})
	return true, nil
}

// ExpireRound implements scheduler.Driver. A round that was already moved to
// VOTE by the host, or replaced by a newer round, is left alone.
func (s *SessionService) ExpireRound(ctx context.Context, sessionID string, round int) error {
	changed := false
	err := s.mutate(ctx, sessionID, func(tx store.Tx) error {
		changed = false
		session := tx.Session()
		if session.Status != models.SessionStatusActive || session.Round != round {
			return nil
		}
		if err := openVoting(tx, session); err != nil {
			return err
		}
		changed = true
		return nil
	}, func() {
		if changed {
			s.timers.Stop(sessionID)
		}
	})
	if err != nil || !changed {
		return err
	}

	s.logger.LogEvent(logging.LevelInfo, logSource, "round expired", map[string]any{
		"session_id": sessionID,
		"round":      round,
	})
	s.publish(events.TimerExpired, sessionID, map[string]any{"round": round})
	s.publish(events.VotingOpened, sessionID, map[string]any{"round": round})
	return nil
}

// Roster implements scheduler.Driver. A round that is no longer running has
// no roster.
func (s *SessionService) Roster(ctx context.Context, sessionID string, round int) ([]string, error) {
	snap, err := s.read(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if snap.Session.Status != models.SessionStatusActive || snap.Session.Round != round {
		return nil, nil
	}
	var ids []string
	for _, p := range snap.Players {
		if p.Alive {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

// ChaosTriggered implements scheduler.Driver. The event is published under the
// session lock and only while round is still the ACTIVE round, so a runner
// racing a transition out of ACTIVE cannot leak chaos into VOTE or ENDED.
func (s *SessionService) ChaosTriggered(ctx context.Context, sessionID string, round int, event scheduler.ChaosEvent) bool {
	ctx, cancel := context.WithTimeout(ctx, s.settings.StoreTimeout)
	defer cancel()

	unlock, err := s.locks.acquire(ctx, sessionID)
	if err != nil {
		return false
	}
	defer unlock()

	snap, err := s.store.Snapshot(ctx, sessionID)
	if err != nil || snap.Session.Status != models.SessionStatusActive || snap.Session.Round != round {
		return false
	}
	s.logger.LogEvent(logging.LevelInfo, logSource, "chaos event", map[string]any{
		"session_id": sessionID,
		"kind":       string(event.Kind),
		"target_id":  event.TargetID,
	})
	s.publish(events.ChaosTriggered, sessionID, event)
	return true
}

func (s *SessionService) publish(t events.Type, sessionID string, data interface{}) {
	s.publisher.Publish(events.Event{
		Type:      t,
		SessionID: sessionID,
		Data:      data,
		At:        s.now(),
	})
}

func roundDuration(session *models.Session) time.Duration {
	return time.Duration(session.DurationMinutes) * time.Minute
}

func findPlayer(players []models.Player, id string) (models.Player, int) {
	for i, p := range players {
		if p.ID == id {
			return p, i
		}
	}
	return models.Player{}, -1
}

func aliveCount(players []models.Player) int {
	n := 0
	for _, p := range players {
		if p.Alive {
			n++
		}
	}
	return n
}

type noopTimers struct{}

func (noopTimers) Start(string, int, time.Duration, bool) {}
func (noopTimers) Stop(string)                            {}
func (noopTimers) Pause(string) error                     { return scheduler.ErrNoTimer }
func (noopTimers) Resume(string) error                    { return scheduler.ErrNoTimer }
func (noopTimers) Status(string) (scheduler.Status, bool) { return scheduler.Status{}, false }
