package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"imposter-game-backend/internal/apperr"
	"imposter-game-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists sessions through gorm. It runs on postgres in
// production and on sqlite in tests and single-node setups.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// CreateSession inserts session unless another live session holds its code.
// The partial unique index on live codes catches a concurrent insert that
// passes the check.
func (s *GormStore) CreateSession(ctx context.Context, session *models.Session) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := codeInUse(tx, session.Code)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Newf(apperr.Conflict, "code %s is in use", session.Code)
		}
		return tx.Create(session).Error
	})
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		if taken, checkErr := codeInUse(s.db.WithContext(ctx), session.Code); checkErr == nil && taken {
			return apperr.Wrap(apperr.Conflict, "code "+session.Code+" is in use", err)
		}
	}
	return classify("create session", err)
}

func codeInUse(db *gorm.DB, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	var n int64
	err := db.Model(&models.Session{}).
		Where("code = ? AND status <> ?", code, models.SessionStatusEnded).
		Count(&n).Error
	return n > 0, err
}

func (s *GormStore) SessionIDByCode(ctx context.Context, code string) (string, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Where("code = ? AND status <> ?", code, models.SessionStatusEnded).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		return "", classify("find session by code", err)
	}
	return session.ID, nil
}

func (s *GormStore) Snapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	snap := &Snapshot{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&snap.Session, "id = ?", sessionID).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Order("seat ASC").Find(&snap.Players).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ? AND round = ?", sessionID, snap.Session.Round).
			Order("id ASC").Find(&snap.Votes).Error
	}, s.readOptions()...)
	if err != nil {
		return nil, classify("snapshot session", err)
	}
	return snap, nil
}

func (s *GormStore) RoundVotes(ctx context.Context, sessionID string, round int) ([]models.Vote, error) {
	var votes []models.Vote
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND round = ?", sessionID, round).
		Order("id ASC").Find(&votes).Error
	if err != nil {
		return nil, classify("list votes", err)
	}
	return votes, nil
}

func (s *GormStore) Update(ctx context.Context, sessionID string, fn func(tx Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var session models.Session
		q := db
		if s.isPostgres() {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&session, "id = ?", sessionID).Error; err != nil {
			return err
		}
		return fn(&gormTx{db: db, session: session})
	})
	if err != nil {
		return classify("update session", err)
	}
	return nil
}

func (s *GormStore) AppendEventLog(ctx context.Context, entry *models.EventLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return classify("append event log", err)
	}
	return nil
}

// readOptions asks postgres for a repeatable-read snapshot. sqlite rejects
// isolation levels other than the default.
func (s *GormStore) readOptions() []*sql.TxOptions {
	if !s.isPostgres() {
		return nil
	}
	return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
}

func (s *GormStore) isPostgres() bool {
	return s.db.Dialector.Name() == "postgres"
}

type gormTx struct {
	db      *gorm.DB
	session models.Session
}

func (t *gormTx) Session() *models.Session {
	return &t.session
}

func (t *gormTx) SaveSession(session *models.Session) error {
	res := t.db.Model(&models.Session{}).
		Where("id = ? AND version = ?", session.ID, session.Version).
		Updates(map[string]interface{}{
			"status":              session.Status,
			"round":               session.Round,
			"secret_topic":        session.SecretTopic,
			"imposter_hint":       session.ImposterHint,
			"imposter_count":      session.ImposterCount,
			"voting_enabled":      session.VotingEnabled,
			"duration_minutes":    session.DurationMinutes,
			"warning_sent":        session.WarningSent,
			"chaos_enabled":       session.ChaosEnabled,
			"last_resolved_round": session.LastResolvedRound,
			"winner":              session.Winner,
			"version":             session.Version + 1,
			"started_at":          session.StartedAt,
			"ended_at":            session.EndedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Newf(apperr.Conflict, "session %s was modified concurrently", session.ID)
	}
	session.Version++
	t.session = *session
	return nil
}

func (t *gormTx) Players() ([]models.Player, error) {
	var players []models.Player
	err := t.db.Where("session_id = ?", t.session.ID).Order("seat ASC").Find(&players).Error
	return players, err
}

func (t *gormTx) InsertPlayer(player *models.Player) (bool, error) {
	if player.JoinedAt.IsZero() {
		player.JoinedAt = time.Now()
	}
	res := t.db.Clauses(clause.OnConflict{DoNothing: true}).Create(player)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (t *gormTx) SavePlayer(player *models.Player) error {
	res := t.db.Model(&models.Player{}).Where("id = ?", player.ID).
		Updates(map[string]interface{}{
			"name":           player.Name,
			"seat":           player.Seat,
			"role":           player.Role,
			"alive":          player.Alive,
			"votes_received": player.VotesReceived,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Newf(apperr.NotFound, "player %s not found", player.ID)
	}
	return nil
}

func (t *gormTx) InsertVote(vote *models.Vote) (bool, error) {
	if vote.CastAt.IsZero() {
		vote.CastAt = time.Now()
	}
	res := t.db.Clauses(clause.OnConflict{DoNothing: true}).Create(vote)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (t *gormTx) Votes(round int) ([]models.Vote, error) {
	var votes []models.Vote
	err := t.db.Where("session_id = ? AND round = ?", t.session.ID, round).Order("id ASC").Find(&votes).Error
	return votes, err
}

// classify maps driver errors onto the error kinds the service understands.
// Errors already carrying a kind pass through untouched.
func classify(op string, err error) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.Wrap(apperr.NotFound, op, err)
	default:
		return apperr.Wrap(apperr.StoreUnavailable, op, err)
	}
}
