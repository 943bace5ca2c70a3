// Package metrics exposes Prometheus counters for the game engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "imposter"

type Metrics struct {
	SessionsCreated prometheus.Counter
	SessionsStarted prometheus.Counter
	PlayersJoined   prometheus.Counter
	VotesCast       prometheus.Counter
	DuplicateVotes  prometheus.Counter
	Eliminations    *prometheus.CounterVec
	GamesEnded      *prometheus.CounterVec
	ChaosEvents     *prometheus.CounterVec
	TimerWarnings   prometheus.Counter
	TimerExpiries   prometheus.Counter
	StoreRetries    prometheus.Counter
	ActiveTimers    prometheus.Gauge
}

// New registers the engine collectors on reg. A nil reg leaves them
// unregistered, which tests use to avoid global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions created.",
		}),
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions moved from LOBBY to ACTIVE.",
		}),
		PlayersJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "players_joined_total",
			Help:      "Players admitted to a lobby.",
		}),
		VotesCast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Votes accepted.",
		}),
		DuplicateVotes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_votes_total",
			Help:      "Votes rejected because the voter already voted this round.",
		}),
		Eliminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eliminations_total",
			Help:      "Players eliminated, by role.",
		}, []string{"role"}),
		GamesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_ended_total",
			Help:      "Sessions ended, by winner (none for forced ends).",
		}, []string{"winner"}),
		ChaosEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chaos_events_total",
			Help:      "Chaos events triggered, by kind.",
		}, []string{"kind"}),
		TimerWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timer_warnings_total",
			Help:      "Time warnings delivered.",
		}),
		TimerExpiries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timer_expiries_total",
			Help:      "Rounds moved to VOTE by the timer.",
		}),
		StoreRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_retries_total",
			Help:      "Store operations retried after a transient failure.",
		}),
		ActiveTimers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_timers",
			Help:      "Phase timers currently running.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.SessionsCreated,
			m.SessionsStarted,
			m.PlayersJoined,
			m.VotesCast,
			m.DuplicateVotes,
			m.Eliminations,
			m.GamesEnded,
			m.ChaosEvents,
			m.TimerWarnings,
			m.TimerExpiries,
			m.StoreRetries,
			m.ActiveTimers,
		)
	}
	return m
}
