// Package length converts quadrature encoder pulses from a measuring wheel
// into a linear distance.
package length

import "math"

// Accumulator keeps a signed pulse count for a wheel of a fixed radius.
// Deltas are summed as integers and the distance is derived on every read,
// so no rounding error builds up over long runs.
type Accumulator struct {
	position            int64
	radius              float64 // meters
	pulsesPerRevolution uint32
}

// New returns an Accumulator at position zero. radius must be positive and
// pulsesPerRevolution non-zero.
func New(radius float64, pulsesPerRevolution uint32) *Accumulator {
	return &Accumulator{
		radius:              radius,
		pulsesPerRevolution: pulsesPerRevolution,
	}
}

// Reset zeroes the pulse count.
func (a *Accumulator) Reset() {
	a.position = 0
}

// UpdateWithDifference adds delta pulses. Callers compute delta with a
// wrap-aware subtraction of two hardware counter samples.
func (a *Accumulator) UpdateWithDifference(delta int32) {
	a.position += int64(delta)
}

// Position returns the accumulated pulse count.
func (a *Accumulator) Position() int64 {
	return a.position
}

// Revolutions returns the number of wheel turns since the last reset.
func (a *Accumulator) Revolutions() float64 {
	return float64(a.position) / float64(a.pulsesPerRevolution)
}

// Length returns the rolled distance in meters. It is negative when the
// wheel has turned backwards further than forwards.
func (a *Accumulator) Length() float64 {
	return 2 * math.Pi * a.Revolutions() * a.radius
}
