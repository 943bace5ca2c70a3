// Package store holds the State Store back-ends for sessions, players and
// votes.
//
// Both back-ends expose the same contract: Update runs a function against one
// session as an all-or-nothing unit, Snapshot returns a consistent read, and
// the insert-if-absent helpers on Tx enforce the (session, user) and
// (session, voter, round) uniqueness rules.
package store

import (
	"context"

	"imposter-game-backend/internal/models"
)

// Store is the persistence contract consumed by the session service.
type Store interface {
	CreateSession(ctx context.Context, session *models.Session) error
	// SessionIDByCode resolves a join code of a session that has not ended.
	SessionIDByCode(ctx context.Context, code string) (string, error)
	Snapshot(ctx context.Context, sessionID string) (*Snapshot, error)
	RoundVotes(ctx context.Context, sessionID string, round int) ([]models.Vote, error)
	// Update loads the session and runs fn; nothing fn wrote is visible to
	// readers unless fn returns nil.
	Update(ctx context.Context, sessionID string, fn func(tx Tx) error) error
}

// Tx is the mutation surface of one Update unit.
type Tx interface {
	// Session returns the session loaded at the start of the unit. Changes
	// are persisted by SaveSession.
	Session() *models.Session
	SaveSession(session *models.Session) error
	// Players lists the roster in seat order.
	Players() ([]models.Player, error)
	// InsertPlayer reports false when (session, user) already exists.
	InsertPlayer(player *models.Player) (bool, error)
	SavePlayer(player *models.Player) error
	// InsertVote reports false when (session, voter, round) already exists.
	InsertVote(vote *models.Vote) (bool, error)
	Votes(round int) ([]models.Vote, error)
}

// AuditSink persists audit lines written by logging.AuditLogger.
type AuditSink interface {
	AppendEventLog(ctx context.Context, entry *models.EventLog) error
}

// Snapshot is a consistent read of one session.
type Snapshot struct {
	Session models.Session
	Players []models.Player
	// Votes holds the votes of the current round.
	Votes []models.Vote
}

// Player returns the player with id.
func (s *Snapshot) Player(id string) (models.Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return models.Player{}, false
}

// PlayerByUser returns the player joined as userID.
func (s *Snapshot) PlayerByUser(userID string) (models.Player, bool) {
	for _, p := range s.Players {
		if p.UserID == userID {
			return p, true
		}
	}
	return models.Player{}, false
}
