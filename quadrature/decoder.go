package quadrature

import "periph.io/x/conn/v3/gpio"

// transitions maps previous<<2|current, with a state being A<<1|B, to a
// step. A leading B (00, 10, 11, 01) counts up.
var transitions = [16]int8{
	0, -1, +1, 0,
	+1, 0, 0, -1,
	-1, 0, 0, +1,
	0, +1, -1, 0,
}

// Decoder performs x4 decoding of A/B levels.
type Decoder struct {
	state   uint8
	invalid uint32
}

func state(a, b gpio.Level) uint8 {
	var s uint8
	if a {
		s |= 2
	}
	if b {
		s |= 1
	}
	return s
}

// Reset sets the current levels without producing a step.
func (d *Decoder) Reset(a, b gpio.Level) {
	d.state = state(a, b)
}

// Update consumes the latest levels and returns -1, 0 or +1.
// When both channels changed at once the step is lost and counted as invalid.
func (d *Decoder) Update(a, b gpio.Level) int8 {
	next := state(a, b)
	prev := d.state
	d.state = next
	if prev^next == 3 {
		d.invalid++
		return 0
	}
	return transitions[prev<<2|next]
}

// Invalid returns the number of transitions where both channels changed.
func (d *Decoder) Invalid() uint32 { return d.invalid }
