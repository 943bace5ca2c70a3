package scheduler

import "time"

type ChaosKind string

const (
	ChaosSwapSeats  ChaosKind = "SWAP_SEATS"
	ChaosSpeedRound ChaosKind = "SPEED_ROUND"
	ChaosInquisitor ChaosKind = "INQUISITOR"
)

// chaosKinds is the uniform draw order.
var chaosKinds = [...]ChaosKind{ChaosSwapSeats, ChaosSpeedRound, ChaosInquisitor}

// ChaosEvent is an ephemeral side effect of an active round.
type ChaosEvent struct {
	Kind      ChaosKind `json:"kind"`
	TargetID  string    `json:"target_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func pruneChaos(events []ChaosEvent, now time.Time) []ChaosEvent {
	kept := events[:0]
	for _, ev := range events {
		if now.Before(ev.ExpiresAt) {
			kept = append(kept, ev)
		}
	}
	return kept
}
