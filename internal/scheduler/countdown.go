package scheduler

import (
	"errors"
	"time"
)

var (
	ErrExpired = errors.New("countdown already expired")
	ErrNoTimer = errors.New("no timer running for session")
)

// Countdown is the per-round clock. It is not safe for concurrent use; the
// runner owning it serializes access.
type Countdown struct {
	total       time.Duration
	remaining   time.Duration
	warnAt      time.Duration
	paused      bool
	warningSent bool
	expired     bool
	speedLeft   time.Duration
}

// TickResult reports what one tick crossed.
type TickResult struct {
	Warning bool
	Expired bool
	// Elapsed is the unpaused wall time covered by the tick.
	Elapsed time.Duration
}

// NewCountdown starts a countdown of total. A warning is due once when the
// remaining time reaches warnAt, and only when total is at least warnAt.
func NewCountdown(total, warnAt time.Duration) *Countdown {
	return &Countdown{total: total, remaining: total, warnAt: warnAt}
}

// Tick advances the clock by step, or by twice step inside a speed window.
func (c *Countdown) Tick(step time.Duration) TickResult {
	if c.paused || c.expired || step <= 0 {
		return TickResult{}
	}

	dec := step
	if c.speedLeft > 0 {
		dec = 2 * step
		c.speedLeft -= step
		if c.speedLeft < 0 {
			c.speedLeft = 0
		}
	}

	res := TickResult{Elapsed: step}
	c.remaining -= dec
	if c.remaining <= 0 {
		c.remaining = 0
		c.expired = true
		c.speedLeft = 0
		res.Expired = true
		return res
	}
	if !c.warningSent && c.total >= c.warnAt && c.remaining <= c.warnAt {
		c.warningSent = true
		res.Warning = true
	}
	return res
}

func (c *Countdown) Pause() error {
	if c.expired {
		return ErrExpired
	}
	c.paused = true
	return nil
}

func (c *Countdown) Resume() error {
	if c.expired {
		return ErrExpired
	}
	c.paused = false
	return nil
}

// StartSpeedRound doubles the tick rate for window of unpaused time.
func (c *Countdown) StartSpeedRound(window time.Duration) {
	if c.expired {
		return
	}
	c.speedLeft = window
}

func (c *Countdown) Remaining() time.Duration { return c.remaining }
func (c *Countdown) Paused() bool             { return c.paused }
func (c *Countdown) WarningSent() bool        { return c.warningSent }
func (c *Countdown) Expired() bool            { return c.expired }
func (c *Countdown) SpeedRound() bool         { return c.speedLeft > 0 }
