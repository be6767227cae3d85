package engine

import "testing"

func tick(t *Timer, n int) {
	for i := 0; i < n; i++ {
		t.Tick()
	}
}

func TestTimerCountdown(t *testing.T) {
	timer := NewTimer(1) // 60 seconds
	timer.Start()

	tick(timer, 55)
	if got := timer.SecondsRemaining(); got != 5 {
		t.Fatalf("expected 5 seconds remaining, got %d", got)
	}
	// 5s of 60s is ~8.3%, inside the 5–15%% warning band.
	if lvl := timer.Warning(); lvl != WarningWarning {
		t.Fatalf("expected warning level at 5s/60s, got %s", lvl)
	}
	if timer.Expired() {
		t.Fatal("timer must not be expired with time remaining")
	}
}

func TestTimerExpiryAtomicWithFinalTick(t *testing.T) {
	timer := NewTimer(1)
	timer.Start()

	tick(timer, 59)
	if timer.Expired() {
		t.Fatal("expired too early")
	}

	timer.Tick()
	if got := timer.SecondsRemaining(); got != 0 {
		t.Fatalf("expected 0 remaining, got %d", got)
	}
	if !timer.Expired() {
		t.Fatal("expected expired after final tick")
	}
	if timer.Active() {
		t.Fatal("expired timer must be inactive")
	}

	// Further ticks never go negative.
	tick(timer, 3)
	if got := timer.SecondsRemaining(); got != 0 {
		t.Fatalf("remaining went negative: %d", got)
	}
}

func TestTimerStartPauseSemantics(t *testing.T) {
	timer := NewTimer(2)

	// Ticks while inactive are dropped, not queued.
	tick(timer, 10)
	if got := timer.SecondsRemaining(); got != 120 {
		t.Fatalf("inactive timer must not tick, got %d", got)
	}

	timer.Start()
	timer.Start() // no-op
	tick(timer, 30)
	timer.Pause()
	tick(timer, 30) // dropped while paused
	if got := timer.SecondsRemaining(); got != 90 {
		t.Fatalf("expected 90 after pause, got %d", got)
	}

	timer.Start() // resume from the exact remaining time
	tick(timer, 1)
	if got := timer.SecondsRemaining(); got != 89 {
		t.Fatalf("expected 89 after resume, got %d", got)
	}
}

func TestTimerStartAfterExpiryIsNoop(t *testing.T) {
	timer := NewTimer(1)
	timer.Start()
	tick(timer, 60)

	timer.Start()
	if timer.Active() || !timer.Expired() {
		t.Fatal("start after expiry must be a no-op")
	}

	timer.Reset(1)
	if timer.Expired() || timer.Active() || timer.SecondsRemaining() != 60 {
		t.Fatal("reset must clear expiry and restore the full duration")
	}
}

func TestTimerMonotonicWhileActive(t *testing.T) {
	timer := NewTimer(1)
	timer.Start()

	prev := timer.SecondsRemaining()
	for i := 0; i < 60; i++ {
		timer.Tick()
		cur := timer.SecondsRemaining()
		if cur > prev {
			t.Fatalf("remaining increased from %d to %d", prev, cur)
		}
		prev = cur
	}
}

func TestClassifyWarning(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		total     int
		want      WarningLevel
	}{
		{name: "full time", remaining: 600, total: 600, want: WarningNormal},
		{name: "just above warning band", remaining: 91, total: 600, want: WarningNormal},
		{name: "exactly 15 percent", remaining: 90, total: 600, want: WarningWarning},
		{name: "8.3 percent", remaining: 5, total: 60, want: WarningWarning},
		{name: "exactly 5 percent", remaining: 30, total: 600, want: WarningCritical},
		{name: "exactly 5 percent of a minute", remaining: 3, total: 60, want: WarningCritical},
		{name: "zero remaining", remaining: 0, total: 600, want: WarningCritical},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyWarning(tc.remaining, tc.total); got != tc.want {
				t.Fatalf("ClassifyWarning(%d, %d) = %s, want %s", tc.remaining, tc.total, got, tc.want)
			}
		})
	}
}

func TestTimerNotifiesSubscribers(t *testing.T) {
	timer := NewTimer(1)

	fired := 0
	timer.OnChange(func() { fired++ })

	timer.Start()
	timer.Tick()
	timer.Pause()
	if fired != 3 {
		t.Fatalf("expected 3 notifications, got %d", fired)
	}

	// No-op transitions do not notify.
	timer.Pause()
	timer.Tick()
	if fired != 3 {
		t.Fatalf("no-op operations must not notify, got %d", fired)
	}
}
