package models

import "time"

// EventLog is one persisted audit line.
type EventLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Level     string    `gorm:"size:10;not null;index" json:"level"`
	Source    string    `gorm:"size:50;not null;index" json:"source"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Metadata  string    `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
