package meter

import (
	"sync/atomic"
	"time"
)

// ResetFlag carries a reset request from an interrupt handler to the poll
// loop. Request is safe to call from an interrupt.
type ResetFlag struct {
	requested atomic.Bool
}

// Request asks the loop to zero the length on its next iteration.
func (f *ResetFlag) Request() {
	f.requested.Store(true)
}

// Take reports whether a reset was requested and clears the request.
func (f *ResetFlag) Take() bool {
	return f.requested.Swap(false)
}

// Debouncer drops button presses that arrive within Window of the last
// accepted one.
type Debouncer struct {
	Window time.Duration
	last   atomic.Int64
}

// Allow reports whether a press at now should be acted on.
func (d *Debouncer) Allow(now time.Time) bool {
	n := now.UnixNano()
	last := d.last.Load()
	if last != 0 && n-last < int64(d.Window) {
		return false
	}
	return d.last.CompareAndSwap(last, n)
}
