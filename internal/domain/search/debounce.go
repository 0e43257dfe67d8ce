package search

import (
	"sync"
	"time"

	"github.com/ganot/sitewatch/internal/autosave"
)

// DefaultDebounce matches the keystroke settle window the dashboard uses.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer coalesces rapid calls into one, invoking only the most recent
// function once the delay elapses with no further calls.
type Debouncer struct {
	mu    sync.Mutex
	clock autosave.Clock
	delay time.Duration
	timer autosave.Timer
}

// NewDebouncer creates a debouncer. A nil clock uses the system clock and
// a non-positive delay falls back to DefaultDebounce.
func NewDebouncer(clock autosave.Clock, delay time.Duration) *Debouncer {
	if clock == nil {
		clock = autosave.SystemClock()
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{clock: clock, delay: delay}
}

// Call schedules fn, replacing any previously scheduled call.
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, fn)
}

// Stop cancels any pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
