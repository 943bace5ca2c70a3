// Package events defines the notifications pushed to session subscribers.
package events

import (
	"sync"
	"time"
)

type Type string

const (
	SessionCreated   Type = "session_created"
	PlayerJoined     Type = "player_joined"
	SessionStarted   Type = "session_started"
	VotingOpened     Type = "voting_opened"
	VoteCast         Type = "vote_cast"
	PlayerEliminated Type = "player_eliminated"
	RoundStarted     Type = "round_started"
	SessionEnded     Type = "session_ended"
	TimerWarning     Type = "timer_warning"
	TimerExpired     Type = "timer_expired"
	TimerPaused      Type = "timer_paused"
	TimerResumed     Type = "timer_resumed"
	ChaosTriggered   Type = "chaos_triggered"
)

// Event is published after the store unit that produced it has committed.
// Data never carries secret topic, hint or a living player's role.
type Event struct {
	Type      Type        `json:"type"`
	SessionID string      `json:"session_id"`
	Data      interface{} `json:"data,omitempty"`
	At        time.Time   `json:"at"`
}

type Publisher interface {
	Publish(event Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(Event) {}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]Type, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// Multi fans an event out to several publishers.
type Multi []Publisher

func (m Multi) Publish(event Event) {
	for _, p := range m {
		p.Publish(event)
	}
}
