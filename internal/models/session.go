package models

import "time"

type Session struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	Code              string     `gorm:"size:6;uniqueIndex:idx_sessions_live_code,where:status <> 'ENDED'" json:"code"`
	Status            string     `gorm:"size:10;not null;default:'LOBBY'" json:"status"`
	Round             int        `gorm:"not null;default:1" json:"round"`
	SecretTopic       string     `gorm:"size:255;not null" json:"-"`
	ImposterHint      string     `gorm:"size:255;not null" json:"-"`
	ImposterCount     int        `gorm:"not null;default:1" json:"imposter_count"`
	VotingEnabled     bool       `gorm:"not null" json:"voting_enabled"`
	DurationMinutes   int        `gorm:"not null" json:"duration_minutes"`
	WarningSent       bool       `gorm:"not null" json:"warning_sent"`
	ChaosEnabled      bool       `gorm:"not null" json:"chaos_enabled"`
	LastResolvedRound int        `gorm:"not null;default:0" json:"last_resolved_round"`
	Winner            string     `gorm:"size:10" json:"winner,omitempty"`
	Version           int        `gorm:"not null;default:0" json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
}

const (
	SessionStatusLobby  = "LOBBY"
	SessionStatusActive = "ACTIVE"
	SessionStatusVote   = "VOTE"
	SessionStatusEnded  = "ENDED"

	WinnerCivilians = "CIVILIANS"
	WinnerImposter  = "IMPOSTER"
)

// Resolved reports whether the current round already had its elimination.
func (s *Session) Resolved() bool {
	return s.LastResolvedRound == s.Round
}
