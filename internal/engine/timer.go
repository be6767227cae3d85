package engine

import (
	"context"
	"sync"
	"time"
)

// WarningLevel is the urgency classification of remaining time.
type WarningLevel string

const (
	WarningNormal   WarningLevel = "normal"
	WarningWarning  WarningLevel = "warning"
	WarningCritical WarningLevel = "critical"
)

// ClassifyWarning maps remaining/total seconds onto a WarningLevel:
// <=5% critical, <=15% warning, otherwise normal.
func ClassifyWarning(secondsRemaining, totalSeconds int) WarningLevel {
	if totalSeconds <= 0 {
		return WarningCritical
	}
	pct := float64(secondsRemaining) / float64(totalSeconds) * 100
	switch {
	case pct <= 5:
		return WarningCritical
	case pct <= 15:
		return WarningWarning
	default:
		return WarningNormal
	}
}

// Timer counts down from the test duration to zero at one-second
// resolution. It never auto-submits; it only flips Expired and notifies
// subscribers, leaving the forced submit to the host.
//
// Missed ticks (host suspended, slow receiver) are not replayed — the
// countdown accepts wall-clock drift rather than correcting for it.
type Timer struct {
	mu               sync.Mutex
	secondsRemaining int
	totalSeconds     int
	active           bool
	expired          bool
	subscribers      []func()
}

// NewTimer creates an inactive timer holding the full duration.
func NewTimer(durationMinutes int) *Timer {
	total := durationMinutes * 60
	return &Timer{secondsRemaining: total, totalSeconds: total}
}

// OnChange registers a callback invoked after every state change
// (start, pause, reset, tick). Callbacks run on the mutating goroutine
// and must not call back into the timer.
func (t *Timer) OnChange(fn func()) {
	t.mu.Lock()
	t.subscribers = append(t.subscribers, fn)
	t.mu.Unlock()
}

// Start activates the countdown. No-op if already active or expired.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.active || t.expired {
		t.mu.Unlock()
		return
	}
	t.active = true
	t.mu.Unlock()
	t.notify()
}

// Pause halts the countdown, preserving the remaining time exactly.
func (t *Timer) Pause() {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}
	t.active = false
	t.mu.Unlock()
	t.notify()
}

// Reset restores the full duration and clears both the active and
// expired flags.
func (t *Timer) Reset(durationMinutes int) {
	t.mu.Lock()
	t.totalSeconds = durationMinutes * 60
	t.secondsRemaining = t.totalSeconds
	t.active = false
	t.expired = false
	t.mu.Unlock()
	t.notify()
}

// Tick decrements the remaining time by one second. When the countdown
// reaches zero the expired flag is set and the timer deactivated in the
// same critical section, so no observer can see zero remaining with
// expired still false.
func (t *Timer) Tick() {
	t.mu.Lock()
	if !t.active || t.expired {
		t.mu.Unlock()
		return
	}
	t.secondsRemaining--
	if t.secondsRemaining <= 0 {
		t.secondsRemaining = 0
		t.expired = true
		t.active = false
	}
	t.mu.Unlock()
	t.notify()
}

// Run drives Tick once per second until the context is cancelled or the
// timer expires. Call in a goroutine. Ticks while paused are dropped.
func (t *Timer) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick()
			if t.Expired() {
				return
			}
		}
	}
}

// SecondsRemaining returns the current remaining time.
func (t *Timer) SecondsRemaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.secondsRemaining
}

// Active reports whether the countdown is running.
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Expired reports whether the countdown reached zero. The transition is
// one-way; only Reset clears it.
func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

// Warning returns the urgency classification of the current remaining
// time against the full duration.
func (t *Timer) Warning() WarningLevel {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ClassifyWarning(t.secondsRemaining, t.totalSeconds)
}

func (t *Timer) notify() {
	t.mu.Lock()
	subs := make([]func(), len(t.subscribers))
	copy(subs, t.subscribers)
	t.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
