package sched

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid repeated triggers of one function into a
// single delayed execution. The policy is trailing-edge with a
// leading-edge fast path: a trigger arriving more than delay after the
// previous run fires immediately, while triggers inside the quiet
// window cancel and replace the pending timer, so the function runs
// delay after the last trigger of a burst.
//
// Each call-site owns its own Debouncer; no two timers for the same
// instance are ever pending at once.
type Debouncer struct {
	fn    func()
	delay time.Duration

	mu      sync.Mutex
	lastRun time.Time
	timer   *time.Timer
}

// NewDebouncer wraps fn with the given quiet window.
func NewDebouncer(fn func(), delay time.Duration) *Debouncer {
	return &Debouncer{fn: fn, delay: delay}
}

// Trigger requests an execution under the debounce policy.
func (d *Debouncer) Trigger() {
	d.mu.Lock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	now := time.Now()
	run := func() {
		d.mu.Lock()
		// lastRun records the trigger that caused this execution,
		// matching the reference semantics.
		d.lastRun = now
		d.timer = nil
		d.mu.Unlock()
		d.fn()
	}

	if now.Sub(d.lastRun) > d.delay {
		d.mu.Unlock()
		run()
		return
	}

	d.timer = time.AfterFunc(d.delay, run)
	d.mu.Unlock()
}

// Stop cancels any pending execution. Safe to call concurrently with
// Trigger.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
