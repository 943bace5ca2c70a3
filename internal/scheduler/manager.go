// Package scheduler runs the phase timer of every ACTIVE session: the round
// countdown, the one-time warning, the expiry into voting and the optional
// chaos events.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"imposter-game-backend/internal/metrics"
	"imposter-game-backend/internal/random"
)

// Driver applies timer outcomes to the session. Implementations take the
// session's exclusion themselves and must tolerate calls for a round that
// has already moved on.
type Driver interface {
	// WarnRound persists the warning flag and reports whether it was newly set.
	WarnRound(ctx context.Context, sessionID string, round int) (bool, error)
	// ExpireRound moves the round to VOTE if it is still ACTIVE.
	ExpireRound(ctx context.Context, sessionID string, round int) error
	// Roster lists the alive player ids while round is the ACTIVE round, and
	// nothing otherwise.
	Roster(ctx context.Context, sessionID string, round int) ([]string, error)
	// ChaosTriggered publishes event and reports whether round was still the
	// ACTIVE round. A refused event is dropped by the runner.
	ChaosTriggered(ctx context.Context, sessionID string, round int, event ChaosEvent) bool
}

type Settings struct {
	TickInterval     time.Duration
	WarningThreshold time.Duration
	ChaosInterval    time.Duration
	SpeedRoundWindow time.Duration
	SwapSeatsTTL     time.Duration
	InquisitorTTL    time.Duration
	DriverTimeout    time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		TickInterval:     time.Second,
		WarningThreshold: 10 * time.Minute,
		ChaosInterval:    2 * time.Minute,
		SpeedRoundWindow: 30 * time.Second,
		SwapSeatsTTL:     15 * time.Second,
		InquisitorTTL:    60 * time.Second,
		DriverTimeout:    5 * time.Second,
	}
}

// Status is the externally visible timer state of one session.
type Status struct {
	Round            int          `json:"round"`
	RemainingSeconds int          `json:"remaining_seconds"`
	Paused           bool         `json:"paused"`
	WarningSent      bool         `json:"warning_sent"`
	Expired          bool         `json:"expired"`
	SpeedRound       bool         `json:"speed_round"`
	ChaosEnabled     bool         `json:"chaos_enabled"`
	Chaos            []ChaosEvent `json:"chaos"`
}

type Manager struct {
	settings Settings
	rng      random.Source
	metrics  *metrics.Metrics
	now      func() time.Time

	mu      sync.Mutex
	driver  Driver
	runners map[string]*runner
}

func NewManager(settings Settings, rng random.Source, m *metrics.Metrics) *Manager {
	if settings.TickInterval <= 0 {
		settings.TickInterval = time.Second
	}
	if settings.DriverTimeout <= 0 {
		settings.DriverTimeout = 5 * time.Second
	}
	return &Manager{
		settings: settings,
		rng:      rng,
		metrics:  m,
		now:      time.Now,
		runners:  make(map[string]*runner),
	}
}

// SetDriver wires the session service after both are constructed.
func (m *Manager) SetDriver(d Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driver = d
}

// Start replaces any runner of the session with a fresh countdown for round.
func (m *Manager) Start(sessionID string, round int, duration time.Duration, chaos bool) {
	r := &runner{
		manager:      m,
		sessionID:    sessionID,
		round:        round,
		countdown:    NewCountdown(duration, m.settings.WarningThreshold),
		chaosEnabled: chaos && m.settings.ChaosInterval > 0,
		last:         m.now(),
		stopCh:       make(chan struct{}),
		resetCh:      make(chan struct{}, 1),
	}

	m.mu.Lock()
	old := m.runners[sessionID]
	m.runners[sessionID] = r
	m.mu.Unlock()

	if old != nil {
		old.stop()
	} else {
		m.gauge(1)
	}
	go r.loop(m.settings.TickInterval)
	log.Printf("[Scheduler] started timer for session %s round %d (%s, chaos=%t)", sessionID, round, duration, chaos)
}

// Stop cancels the session's runner. Stopping an absent or already stopped
// runner is a no-op.
func (m *Manager) Stop(sessionID string) {
	m.mu.Lock()
	r := m.runners[sessionID]
	delete(m.runners, sessionID)
	m.mu.Unlock()

	if r != nil {
		r.stop()
		m.gauge(-1)
		log.Printf("[Scheduler] stopped timer for session %s", sessionID)
	}
}

// StopAll cancels every runner.
func (m *Manager) StopAll() {
	m.mu.Lock()
	runners := m.runners
	m.runners = make(map[string]*runner)
	m.mu.Unlock()

	for _, r := range runners {
		r.stop()
		m.gauge(-1)
	}
}

// Pause freezes the countdown. The part of the current tick interval that ran
// before the pause is banked and credited on the first tick after Resume.
func (m *Manager) Pause(sessionID string) error {
	r := m.runner(sessionID)
	if r == nil {
		return ErrNoTimer
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	wasRunning := !r.countdown.Paused() && !r.countdown.Expired()
	if err := r.countdown.Pause(); err != nil {
		return err
	}
	if wasRunning {
		r.carry += min(max(m.now().Sub(r.last), 0), m.settings.TickInterval)
	}
	return nil
}

// Resume restarts the countdown and realigns the runner's ticker so the next
// tick lands one full interval after the resume.
func (m *Manager) Resume(sessionID string) error {
	r := m.runner(sessionID)
	if r == nil {
		return ErrNoTimer
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.countdown.Resume(); err != nil {
		return err
	}
	r.last = m.now()
	select {
	case r.resetCh <- struct{}{}:
	default:
	}
	return nil
}

func (m *Manager) Status(sessionID string) (Status, bool) {
	r := m.runner(sessionID)
	if r == nil {
		return Status{}, false
	}
	return r.status(m.now()), true
}

func (m *Manager) runner(sessionID string) *runner {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runners[sessionID]
}

func (m *Manager) getDriver() Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.driver
}

// release drops r if it is still the session's current runner.
func (m *Manager) release(r *runner) {
	m.mu.Lock()
	current := m.runners[r.sessionID] == r
	if current {
		delete(m.runners, r.sessionID)
	}
	m.mu.Unlock()
	if current {
		m.gauge(-1)
	}
	r.stop()
}

func (m *Manager) gauge(delta float64) {
	if m.metrics != nil {
		m.metrics.ActiveTimers.Add(delta)
	}
}

type runner struct {
	manager   *Manager
	sessionID string
	round     int

	mu           sync.Mutex
	countdown    *Countdown
	chaosEnabled bool
	sinceChaos   time.Duration
	chaos        []ChaosEvent
	stopped      bool

	// last is when the countdown last advanced or resumed; carry is unpaused
	// time banked by Pause that no tick has credited yet.
	last  time.Time
	carry time.Duration

	stopCh   chan struct{}
	resetCh  chan struct{}
	stopOnce sync.Once
}

func (r *runner) stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
		close(r.stopCh)
	})
}

func (r *runner) alive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.stopped
}

func (r *runner) loop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-r.resetCh:
			ticker.Reset(interval)
		case <-ticker.C:
			if !r.step(interval) {
				return
			}
		}
	}
}

// step runs one tick and reports whether the runner should keep going. The
// runner lock is never held across driver calls since the driver may call
// back into the manager.
func (r *runner) step(interval time.Duration) bool {
	m := r.manager

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return false
	}
	elapsed := interval
	if !r.countdown.Paused() {
		elapsed += r.carry
		r.carry = 0
	}
	res := r.countdown.Tick(elapsed)
	r.last = m.now()
	chaosDue := false
	if r.chaosEnabled && res.Elapsed > 0 && !res.Expired {
		r.sinceChaos += res.Elapsed
		if r.sinceChaos >= m.settings.ChaosInterval {
			r.sinceChaos -= m.settings.ChaosInterval
			chaosDue = true
		}
	}
	r.chaos = pruneChaos(r.chaos, m.now())
	r.mu.Unlock()

	driver := m.getDriver()
	if driver == nil {
		return !res.Expired
	}

	if res.Warning && r.alive() {
		ctx, cancel := context.WithTimeout(context.Background(), m.settings.DriverTimeout)
		if _, err := driver.WarnRound(ctx, r.sessionID, r.round); err != nil {
			log.Printf("[Scheduler] warn session %s: %v", r.sessionID, err)
		} else if m.metrics != nil {
			m.metrics.TimerWarnings.Inc()
		}
		cancel()
	}

	if res.Expired {
		if r.alive() {
			ctx, cancel := context.WithTimeout(context.Background(), m.settings.DriverTimeout)
			if err := driver.ExpireRound(ctx, r.sessionID, r.round); err != nil {
				log.Printf("[Scheduler] expire session %s: %v", r.sessionID, err)
			} else if m.metrics != nil {
				m.metrics.TimerExpiries.Inc()
			}
			cancel()
		}
		m.release(r)
		return false
	}

	if chaosDue {
		r.fireChaos(driver)
	}
	return true
}

func (r *runner) fireChaos(driver Driver) {
	m := r.manager
	ctx, cancel := context.WithTimeout(context.Background(), m.settings.DriverTimeout)
	defer cancel()

	kind := chaosKinds[m.rng.IntN(len(chaosKinds))]
	ev := ChaosEvent{Kind: kind}
	now := m.now()

	switch kind {
	case ChaosSwapSeats:
		ev.ExpiresAt = now.Add(m.settings.SwapSeatsTTL)
	case ChaosSpeedRound:
		ev.ExpiresAt = now.Add(m.settings.SpeedRoundWindow)
	case ChaosInquisitor:
		roster, err := driver.Roster(ctx, r.sessionID, r.round)
		if err != nil {
			log.Printf("[Scheduler] roster for session %s: %v", r.sessionID, err)
			return
		}
		if len(roster) == 0 {
			return
		}
		ev.TargetID = roster[m.rng.IntN(len(roster))]
		ev.ExpiresAt = now.Add(m.settings.InquisitorTTL)
	}

	if !r.alive() {
		return
	}
	if !driver.ChaosTriggered(ctx, r.sessionID, r.round, ev) {
		log.Printf("[Scheduler] dropped %s for session %s: round %d is no longer active", kind, r.sessionID, r.round)
		return
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	if kind == ChaosSpeedRound {
		r.countdown.StartSpeedRound(m.settings.SpeedRoundWindow)
	}
	r.chaos = append(r.chaos, ev)
	r.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ChaosEvents.WithLabelValues(string(kind)).Inc()
	}
}

func (r *runner) status(now time.Time) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chaos = pruneChaos(r.chaos, now)
	remaining := r.countdown.Remaining()
	return Status{
		Round:            r.round,
		RemainingSeconds: int((remaining + time.Second - 1) / time.Second),
		Paused:           r.countdown.Paused(),
		WarningSent:      r.countdown.WarningSent(),
		Expired:          r.countdown.Expired(),
		SpeedRound:       r.countdown.SpeedRound(),
		ChaosEnabled:     r.chaosEnabled,
		Chaos:            append([]ChaosEvent(nil), r.chaos...),
	}
}
