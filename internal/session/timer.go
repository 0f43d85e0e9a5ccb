package session

import (
	"sync"
	"time"
)

// defaultTickPeriod is the display update period for the countdown timer.
const defaultTickPeriod = 100 * time.Millisecond

// Timer is a resettable, pausable countdown against a fixed duration limit.
//
// While running it invokes the tick callback every tick period with the
// elapsed and remaining time, and invokes the expiry callback exactly once
// when the remaining time reaches zero. Pausing preserves the remaining
// time rather than the deadline, so a pause/resume cycle never drifts.
//
// All methods are safe for concurrent use.
type Timer struct {
	tickPeriod time.Duration
	onTick     func(elapsed, remaining time.Duration)
	onExpire   func()

	// now is the clock source; replaced in tests.
	now func() time.Time

	mu        sync.Mutex
	limit     time.Duration
	deadline  time.Time
	remaining time.Duration
	running   bool
	expired   bool
	done      chan struct{}
}

// TimerConfig configures a [Timer].
type TimerConfig struct {
	// TickPeriod is the callback period. Defaults to 100ms if zero.
	TickPeriod time.Duration

	// OnTick is invoked every tick with elapsed and remaining time.
	// Remaining is clamped at zero. Optional.
	OnTick func(elapsed, remaining time.Duration)

	// OnExpire is invoked exactly once when the limit is reached. Optional.
	OnExpire func()
}

// NewTimer creates a stopped [Timer] with the given configuration.
func NewTimer(cfg TimerConfig) *Timer {
	period := cfg.TickPeriod
	if period <= 0 {
		period = defaultTickPeriod
	}
	return &Timer{
		tickPeriod: period,
		onTick:     cfg.OnTick,
		onExpire:   cfg.OnExpire,
		now:        time.Now,
	}
}

// Start arms the timer for the given limit and begins ticking. Any previous
// run is discarded.
func (t *Timer) Start(limit time.Duration) {
	t.mu.Lock()
	t.stopLocked()
	t.limit = limit
	t.remaining = limit
	t.deadline = t.now().Add(limit)
	t.expired = false
	t.running = true
	t.done = make(chan struct{})
	done := t.done
	t.mu.Unlock()

	go t.loop(done)
}

// Pause freezes the remaining time and stops ticking. A no-op when the
// timer is not running.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.remaining = t.deadline.Sub(t.now())
	if t.remaining < 0 {
		t.remaining = 0
	}
	t.running = false
	t.stopLocked()
}

// Resume re-arms the deadline from the preserved remaining time and resumes
// ticking. A no-op when the timer is running or has expired.
func (t *Timer) Resume() {
	t.mu.Lock()
	if t.running || t.expired {
		t.mu.Unlock()
		return
	}
	t.deadline = t.now().Add(t.remaining)
	t.running = true
	t.done = make(chan struct{})
	done := t.done
	t.mu.Unlock()

	go t.loop(done)
}

// Stop cancels the timer. No further callbacks fire. Safe to call multiple
// times and on a timer that was never started.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.stopLocked()
}

// Remaining returns the time left before expiry. While running this is
// computed against the live deadline; while paused it is the frozen value.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	rem := t.remaining
	if t.running {
		rem = t.deadline.Sub(t.now())
	}
	if rem < 0 {
		rem = 0
	}
	return rem
}

// Elapsed returns how much of the limit has been consumed.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	limit := t.limit
	t.mu.Unlock()
	return limit - t.Remaining()
}

// stopLocked closes the current run's done channel. Must be called with
// t.mu held.
func (t *Timer) stopLocked() {
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
}

// loop drives tick and expiry callbacks until the run's done channel closes.
func (t *Timer) loop(done chan struct{}) {
	ticker := time.NewTicker(t.tickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			t.mu.Lock()
			if !t.running {
				t.mu.Unlock()
				return
			}
			rem := t.deadline.Sub(t.now())
			if rem < 0 {
				rem = 0
			}
			t.remaining = rem
			elapsed := t.limit - rem
			expire := rem <= 0 && !t.expired
			if expire {
				t.expired = true
				t.running = false
				t.stopLocked()
			}
			t.mu.Unlock()

			if t.onTick != nil {
				t.onTick(elapsed, rem)
			}
			if expire {
				if t.onExpire != nil {
					t.onExpire()
				}
				return
			}
		}
	}
}
