package catalog

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer the debouncer relies on.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once d has elapsed.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs only the last function triggered within a quiet window.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	after   AfterFunc
	timer   Timer
	seq     uint64
	stopped bool
}

// NewDebouncer builds a debouncer; a nil after uses time.AfterFunc.
func NewDebouncer(window time.Duration, after AfterFunc) *Debouncer {
	if after == nil {
		after = stdAfterFunc
	}
	return &Debouncer{window: window, after: after}
}

// Trigger cancels the pending call, if any, and schedules fn.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = d.after(d.window, func() {
		d.mu.Lock()
		// a timer that already fired cannot be stopped; seq catches it
		if d.stopped || seq != d.seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels the pending call and ignores later triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
