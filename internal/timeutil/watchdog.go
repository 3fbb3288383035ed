package timeutil

import (
	"sync"
	"time"
)

// Watchdog calls its callback when it has not been kicked for the period.
// The callback runs at most once, a fired watchdog ignores further kicks.
// A zero period disables the watchdog.
type Watchdog struct {
	period time.Duration
	fn     func()

	mu      sync.Mutex
	timer   *time.Timer
	armed   bool
	fired   bool
	stopped bool
	kicked  time.Time
}

// NewWatchdog creates a disarmed watchdog. Call [Watchdog.Kick] to arm it.
func NewWatchdog(period time.Duration, fn func()) *Watchdog {
	return &Watchdog{period: period, fn: fn}
}

// Kick arms the watchdog or restarts the running period.
func (w *Watchdog) Kick() {
	if w == nil || w.period <= 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fired || w.stopped {
		return
	}
	w.kicked = time.Now()
	w.armed = true
	if w.timer == nil {
		w.timer = time.AfterFunc(w.period, w.expire)
		return
	}
	w.timer.Reset(w.period)
}

// Pause disarms the watchdog until the next [Watchdog.Kick].
func (w *Watchdog) Pause() {
	if w == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.armed = false
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Stop disarms the watchdog permanently.
// It reports whether the watchdog was stopped before firing.
func (w *Watchdog) Stop() bool {
	if w == nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopped = true
	w.armed = false
	if w.timer != nil {
		w.timer.Stop()
	}
	return !w.fired
}

// Fired reports whether the callback has been called.
func (w *Watchdog) Fired() bool {
	if w == nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}

// Left returns the time remaining before the watchdog fires, zero when it is not armed.
func (w *Watchdog) Left() time.Duration {
	if w == nil {
		return 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.armed || w.fired {
		return 0
	}
	return max(w.period-time.Since(w.kicked), 0)
}

func (w *Watchdog) expire() {
	w.mu.Lock()
	// a stale timer event may race with Kick or Pause
	if !w.armed || w.fired || w.stopped || time.Since(w.kicked) < w.period {
		w.mu.Unlock()
		return
	}
	w.fired = true
	w.armed = false
	fn := w.fn
	w.mu.Unlock()

	if fn != nil {
		fn()
	}
}
