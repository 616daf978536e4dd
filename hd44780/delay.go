package hd44780

import "time"

// Delayer blocks the caller for at least d.
type Delayer interface {
	Delay(d time.Duration)
}

// BusyWait spins on the clock instead of sleeping. On a single core
// microcontroller this keeps the scheduler from running anything else in the
// middle of a bus transfer.
type BusyWait struct{}

func (BusyWait) Delay(d time.Duration) {
	start := time.Now()
	for time.Since(start) < d {
	}
}

// DelayFunc adapts a function to the Delayer interface.
type DelayFunc func(d time.Duration)

func (f DelayFunc) Delay(d time.Duration) { f(d) }
