package models

import "time"

type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:36;not null;uniqueIndex:idx_vote_unique" json:"session_id"`
	VoterID   string    `gorm:"size:36;not null;uniqueIndex:idx_vote_unique" json:"voter_id"`
	Round     int       `gorm:"not null;uniqueIndex:idx_vote_unique" json:"round"`
	TargetID  string    `gorm:"size:36;not null;index" json:"target_id"`
	CastAt    time.Time `json:"cast_at"`
}
