// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package liveness

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func noJitter(time.Duration) time.Duration { return 0 }

type recorder struct {
	mu        sync.Mutex
	attempts  []int
	exhausted atomic.Int32
	done      chan struct{}
	once      sync.Once
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{})}
}

func (r *recorder) ping(attempt int) {
	r.mu.Lock()
	r.attempts = append(r.attempts, attempt)
	r.mu.Unlock()
}

func (r *recorder) exhaust() {
	r.exhausted.Add(1)
	r.once.Do(func() { close(r.done) })
}

func (r *recorder) pingAttempts() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.attempts...)
}

func TestTimer_ExhaustsAfterPingBudget(t *testing.T) {
	t.Parallel()

	cfg := Config{IdleDelay: 30 * time.Millisecond, PingInterval: 20 * time.Millisecond, MaxPings: 3}
	rec := newRecorder()
	timer := New(cfg, rec.ping, rec.exhaust, WithJitterFunc(noJitter))

	start := time.Now()
	timer.Start()

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never exhausted")
	}
	elapsed := time.Since(start)

	bound := cfg.DetectionBound()
	if elapsed < bound {
		t.Errorf("exhausted after %v, before the %v bound", elapsed, bound)
	}
	if elapsed > bound+250*time.Millisecond {
		t.Errorf("exhausted after %v, well past the %v bound", elapsed, bound)
	}

	got := rec.pingAttempts()
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("ping attempts = %v, want [1 2 3]", got)
	}

	time.Sleep(4 * cfg.PingInterval)
	if n := rec.exhausted.Load(); n != 1 {
		t.Errorf("onExhausted called %d times, want 1", n)
	}
	if timer.Armed() {
		t.Error("timer should disarm after exhaustion")
	}
}

func TestTimer_ResetCancelsPingCycle(t *testing.T) {
	t.Parallel()

	cfg := Config{IdleDelay: 40 * time.Millisecond, PingInterval: 30 * time.Millisecond, MaxPings: 2}
	rec := newRecorder()
	timer := New(cfg, rec.ping, rec.exhaust, WithJitterFunc(noJitter))
	timer.Start()
	defer timer.Stop()

	// Wait for the first ping, then answer before the budget runs out.
	deadline := time.Now().Add(time.Second)
	for len(rec.pingAttempts()) == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if !timer.Pinging() {
		t.Fatal("expected ping cycle in progress")
	}
	timer.Reset()

	if timer.Pinging() {
		t.Error("Reset should cancel the ping cycle")
	}
	if timer.PingsSent() != 0 {
		t.Errorf("PingsSent = %d after Reset, want 0", timer.PingsSent())
	}

	// Keep feeding traffic for longer than the full detection bound.
	stop := time.Now().Add(2 * cfg.DetectionBound())
	for time.Now().Before(stop) {
		timer.Reset()
		time.Sleep(10 * time.Millisecond)
	}

	if n := rec.exhausted.Load(); n != 0 {
		t.Errorf("onExhausted called %d times despite traffic", n)
	}
	if got := rec.pingAttempts(); len(got) != 1 {
		t.Errorf("expected exactly the one ping before Reset, got %v", got)
	}
}

func TestTimer_StopDiscardsPendingFires(t *testing.T) {
	t.Parallel()

	cfg := Config{IdleDelay: 10 * time.Millisecond, PingInterval: 10 * time.Millisecond, MaxPings: 1}
	rec := newRecorder()
	timer := New(cfg, rec.ping, rec.exhaust, WithJitterFunc(noJitter))
	timer.Start()
	timer.Stop()

	// Reset on a stopped timer must not re-arm it.
	timer.Reset()
	time.Sleep(5 * cfg.DetectionBound())

	if len(rec.pingAttempts()) != 0 || rec.exhausted.Load() != 0 {
		t.Errorf("stopped timer fired: pings=%v exhausted=%d", rec.pingAttempts(), rec.exhausted.Load())
	}
	if timer.Armed() {
		t.Error("timer should be disarmed")
	}
}

func TestTimer_StartIsIdempotent(t *testing.T) {
	t.Parallel()

	cfg := Config{IdleDelay: 20 * time.Millisecond, PingInterval: 10 * time.Millisecond, MaxPings: 1}
	rec := newRecorder()
	timer := New(cfg, rec.ping, rec.exhaust, WithJitterFunc(noJitter))
	timer.Start()
	timer.Start()
	timer.Start()

	select {
	case <-rec.done:
	case <-time.After(time.Second):
		t.Fatal("timer never exhausted")
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(rec.pingAttempts()); n != 1 {
		t.Errorf("pings = %d, want 1", n)
	}
}

func TestRandomJitterBounds(t *testing.T) {
	t.Parallel()

	if randomJitter(0) != 0 || randomJitter(-time.Second) != 0 {
		t.Error("non-positive jitter should be zero")
	}
	for i := 0; i < 100; i++ {
		j := randomJitter(50 * time.Millisecond)
		if j < 0 || j >= 50*time.Millisecond {
			t.Fatalf("jitter %v out of [0, 50ms)", j)
		}
	}
}

func TestNew_ClampsMaxPings(t *testing.T) {
	t.Parallel()

	timer := New(Config{MaxPings: 0}, nil, nil)
	if timer.cfg.MaxPings != 1 {
		t.Errorf("MaxPings = %d, want 1", timer.cfg.MaxPings)
	}
}
