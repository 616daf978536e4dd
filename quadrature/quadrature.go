// Package quadrature turns two-channel encoder signals and hardware counter
// samples into signed pulse deltas.
package quadrature

// Direction is the sense of wheel rotation. Clockwise means the counter is
// counting up.
type Direction int8

const (
	Idle Direction = iota
	Clockwise
	CounterClockwise
)

func (d Direction) String() string {
	switch d {
	case Clockwise:
		return "CW"
	case CounterClockwise:
		return "CCW"
	default:
		return "idle"
	}
}

// DirectionOf returns the direction a delta moved in.
func DirectionOf(delta int32) Direction {
	switch {
	case delta > 0:
		return Clockwise
	case delta < 0:
		return CounterClockwise
	}
	return Idle
}

// Delta returns cur - prev for a free running counter that is bits wide,
// taking the shortest way around the wrap. bits outside 1..31 are treated as
// a full 32-bit counter.
//
// The result is only meaningful while the counter moves less than half its
// range between two samples.
func Delta(prev, cur uint32, bits uint) int32 {
	if bits == 0 || bits >= 32 {
		return int32(cur - prev)
	}
	shift := 32 - bits
	return int32((cur-prev)<<shift) >> shift
}
