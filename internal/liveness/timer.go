// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

// Package liveness detects a duplex connection that is open at the socket
// level but no longer delivering frames.
//
// A Timer waits a randomized idle delay after the last inbound frame, then
// sends up to MaxPings pings PingInterval apart. Any inbound frame cancels
// the cycle. If the last ping goes unanswered for one more interval the
// exhaustion callback fires, so detection never takes longer than
// IdleDelay + IdleJitter + MaxPings*PingInterval.
package liveness

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Config controls the idle delay and ping budget.
type Config struct {
	IdleDelay    time.Duration
	IdleJitter   time.Duration
	PingInterval time.Duration
	MaxPings     int
}

// DetectionBound returns the worst-case time from the last inbound frame to
// exhaustion.
func (c Config) DetectionBound() time.Duration {
	return c.IdleDelay + c.IdleJitter + time.Duration(c.MaxPings)*c.PingInterval
}

// Timer is a single-handle idle/ping state machine. Callbacks run on timer
// goroutines without the internal lock held and may call Reset or Stop.
type Timer struct {
	cfg         Config
	sendPing    func(attempt int)
	onExhausted func()
	jitter      func(max time.Duration) time.Duration

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	pings      int
	armed      bool
}

// Option configures a Timer.
type Option func(*Timer)

// WithJitterFunc overrides the random jitter source.
func WithJitterFunc(fn func(max time.Duration) time.Duration) Option {
	return func(t *Timer) { t.jitter = fn }
}

// New creates a disarmed Timer. sendPing receives the 1-based attempt number.
func New(cfg Config, sendPing func(attempt int), onExhausted func(), opts ...Option) *Timer {
	if cfg.MaxPings < 1 {
		cfg.MaxPings = 1
	}
	t := &Timer{
		cfg:         cfg,
		sendPing:    sendPing,
		onExhausted: onExhausted,
		jitter:      randomJitter,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}

// Start arms the timer if it is not already armed.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.armed {
		return
	}
	t.armed = true
	t.restartIdleLocked()
}

// Reset records inbound traffic: any ping cycle is abandoned and the idle
// delay starts over. Reset on a disarmed timer does nothing.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed {
		return
	}
	t.restartIdleLocked()
}

// Stop disarms the timer. Pending fires are discarded.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = false
	t.pings = 0
	t.generation++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Armed reports whether the timer is running.
func (t *Timer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// Pinging reports whether a ping cycle is in progress.
func (t *Timer) Pinging() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed && t.pings > 0
}

// PingsSent returns the number of pings sent in the current cycle.
func (t *Timer) PingsSent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pings
}

func (t *Timer) restartIdleLocked() {
	t.pings = 0
	t.scheduleLocked(t.cfg.IdleDelay + t.jitter(t.cfg.IdleJitter))
}

func (t *Timer) scheduleLocked(d time.Duration) {
	t.generation++
	gen := t.generation
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(d, func() { t.fire(gen) })
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.generation || !t.armed {
		t.mu.Unlock()
		return
	}

	if t.pings < t.cfg.MaxPings {
		t.pings++
		attempt := t.pings
		t.scheduleLocked(t.cfg.PingInterval)
		t.mu.Unlock()
		if t.sendPing != nil {
			t.sendPing(attempt)
		}
		return
	}

	t.armed = false
	t.timer = nil
	t.mu.Unlock()
	if t.onExhausted != nil {
		t.onExhausted()
	}
}
