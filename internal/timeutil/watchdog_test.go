package timeutil_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/tmnsur/jsip-sub002/internal/timeutil"
)

func TestWatchdog_Fires(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	done := make(chan struct{})
	wd := timeutil.NewWatchdog(20*time.Millisecond, func() {
		calls.Add(1)
		close(done)
	})
	wd.Kick()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not fire")
	}

	wd.Kick()
	time.Sleep(50 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("callback calls = %d, want 1", got)
	}
	if !wd.Fired() {
		t.Error("wd.Fired() = false, want true")
	}
	if wd.Stop() {
		t.Error("wd.Stop() = true, want false")
	}
}

func TestWatchdog_KickPostpones(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	wd := timeutil.NewWatchdog(60*time.Millisecond, func() { calls.Add(1) })
	defer wd.Stop()

	for range 5 {
		wd.Kick()
		time.Sleep(20 * time.Millisecond)
	}

	if got := calls.Load(); got != 0 {
		t.Errorf("callback calls = %d, want 0", got)
	}
	if wd.Left() <= 0 {
		t.Errorf("wd.Left() = %v, want > 0", wd.Left())
	}
}

func TestWatchdog_PauseAndStop(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	wd := timeutil.NewWatchdog(10*time.Millisecond, func() { calls.Add(1) })

	wd.Kick()
	wd.Pause()
	time.Sleep(30 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callback calls after Pause = %d, want 0", got)
	}
	if wd.Left() != 0 {
		t.Errorf("wd.Left() = %v, want 0", wd.Left())
	}

	if !wd.Stop() {
		t.Error("wd.Stop() = false, want true")
	}
	wd.Kick()
	time.Sleep(30 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callback calls after Stop = %d, want 0", got)
	}
}

func TestWatchdog_ZeroPeriod(t *testing.T) {
	t.Parallel()

	wd := timeutil.NewWatchdog(0, func() { t.Error("zero period watchdog fired") })
	wd.Kick()
	time.Sleep(10 * time.Millisecond)
	if wd.Fired() {
		t.Error("wd.Fired() = true, want false")
	}
}
