package engine

import (
	"sync"
	"time"

	"github.com/zaziork/photocat-client/pkg/metrics"
)

// debouncer coalesces bursts of notifications into a single deferred fire.
// Each Notify supersedes the pending timer the same way a new network request
// supersedes the in-flight one; Stop cancels outright.
type debouncer struct {
	window time.Duration
	fire   func()

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
}

func newDebouncer(window time.Duration, fire func()) *debouncer {
	if window <= 0 {
		window = time.Second
	}
	return &debouncer{window: window, fire: fire}
}

// Notify schedules (or reschedules) the fire. N notifications inside the
// window produce exactly one fire.
func (d *debouncer) Notify() {
	d.mu.Lock()
	d.pending = true
	if d.timer == nil {
		d.timer = time.AfterFunc(d.window, d.onTimer)
		d.mu.Unlock()
		return
	}
	d.timer.Reset(d.window)
	d.mu.Unlock()
	metrics.ObserveDebounceCoalesced()
}

// Stop cancels any pending fire.
func (d *debouncer) Stop() {
	d.mu.Lock()
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
}

func (d *debouncer) onTimer() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()

	d.fire()
}
