package models

import "time"

type Player struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID     string    `gorm:"size:36;not null;uniqueIndex:idx_player_session_user" json:"session_id"`
	UserID        string    `gorm:"size:100;not null;uniqueIndex:idx_player_session_user" json:"user_id"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	Seat          int       `gorm:"not null" json:"seat"`
	Role          string    `gorm:"size:10;not null;default:''" json:"-"`
	Alive         bool      `gorm:"not null" json:"alive"`
	VotesReceived int       `gorm:"not null;default:0" json:"votes_received"`
	JoinedAt      time.Time `json:"joined_at"`
}

const (
	RoleUnassigned = ""
	RoleCivilian   = "CIVILIAN"
	RoleImposter   = "IMPOSTER"
)
