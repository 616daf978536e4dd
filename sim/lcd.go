// Package sim emulates an HD44780 character LCD at the bus level so the
// driver and everything above it can run without hardware.
//
// The emulator watches the eight data lines and the RS, RW and E lines. A
// transfer is latched on the falling edge of E, the same as the real
// controller, and is decoded into DDRAM writes and instruction side effects.
package sim

import (
	"sync"

	"github.com/harveysanders/ropemeasure/hd44780"
	"periph.io/x/conn/v3/gpio"
)

const (
	ddramSize = 0x80

	lineTwoStart = 0x40
	lineOneEnd   = 0x28 // first address past row 0 in two-line mode
	lineTwoEnd   = 0x68
	oneLineEnd   = 0x50
)

const (
	pinRegisterSelect = 8 + iota
	pinReadWrite
	pinEnable
)

// Transfer is one latched bus cycle.
type Transfer struct {
	Data  bool // RS was high
	Read  bool // RW was high
	Value byte
}

// LCD is an emulated display. All methods are safe for concurrent use.
type LCD struct {
	mu     sync.Mutex
	width  int
	height int

	bus byte
	rs  gpio.Level
	rw  gpio.Level
	e   gpio.Level

	ddram     [ddramSize]byte
	addr      byte
	increment bool
	displayOn bool
	cursorOn  bool
	blinkOn   bool
	eightBit  bool
	twoLine   bool

	transfers []Transfer
}

// New returns a powered-up display of width columns and height rows with
// blank DDRAM and the display turned off.
func New(width, height int) *LCD {
	l := &LCD{
		width:     width,
		height:    height,
		increment: true,
		eightBit:  true,
	}
	l.blank()
	return l
}

// Pin is one emulated input of the controller.
type Pin struct {
	lcd   *LCD
	index int
}

// Out drives the pin. It never fails.
func (p Pin) Out(l gpio.Level) error {
	p.lcd.mu.Lock()
	defer p.lcd.mu.Unlock()
	p.lcd.drive(p.index, l)
	return nil
}

// DataBus returns D0 to D7 in bit order.
func (l *LCD) DataBus() [8]hd44780.Line {
	var bus [8]hd44780.Line
	for i := range bus {
		bus[i] = Pin{lcd: l, index: i}
	}
	return bus
}

func (l *LCD) RegisterSelect() Pin { return Pin{lcd: l, index: pinRegisterSelect} }
func (l *LCD) ReadWrite() Pin      { return Pin{lcd: l, index: pinReadWrite} }
func (l *LCD) Enable() Pin         { return Pin{lcd: l, index: pinEnable} }

func (l *LCD) drive(index int, level gpio.Level) {
	switch index {
	case pinRegisterSelect:
		l.rs = level
	case pinReadWrite:
		l.rw = level
	case pinEnable:
		falling := l.e == gpio.High && level == gpio.Low
		l.e = level
		if falling {
			l.latch()
		}
	default:
		if level {
			l.bus |= 1 << index
		} else {
			l.bus &^= 1 << index
		}
	}
}

func (l *LCD) latch() {
	t := Transfer{Data: bool(l.rs), Read: bool(l.rw), Value: l.bus}
	l.transfers = append(l.transfers, t)
	switch {
	case t.Read:
		// Reads return nothing on an emulated bus.
	case t.Data:
		l.ddram[l.addr&(ddramSize-1)] = t.Value
		l.addr = l.step(l.addr)
	default:
		l.execute(t.Value)
	}
}

func (l *LCD) execute(cmd byte) {
	switch {
	case cmd&0x80 != 0:
		l.addr = cmd & 0x7f
	case cmd&0x40 != 0:
		// CGRAM is not emulated.
	case cmd&0x20 != 0:
		l.eightBit = cmd&0x10 != 0
		l.twoLine = cmd&0x08 != 0
	case cmd&0x10 != 0:
		// Cursor and display shift.
	case cmd&0x08 != 0:
		l.displayOn = cmd&0x04 != 0
		l.cursorOn = cmd&0x02 != 0
		l.blinkOn = cmd&0x01 != 0
	case cmd&0x04 != 0:
		l.increment = cmd&0x02 != 0
	case cmd&0x02 != 0:
		l.addr = 0
	case cmd == 0x01:
		l.blank()
		l.addr = 0
		l.increment = true
	}
}

// step returns the address after a data write from a.
func (l *LCD) step(a byte) byte {
	if !l.twoLine {
		if l.increment {
			return (a + 1) % oneLineEnd
		}
		return (a + oneLineEnd - 1) % oneLineEnd
	}
	if l.increment {
		a++
		switch a {
		case lineOneEnd:
			return lineTwoStart
		case lineTwoEnd:
			return 0
		}
		return a
	}
	switch a {
	case 0:
		return lineTwoEnd - 1
	case lineTwoStart:
		return lineOneEnd - 1
	}
	return a - 1
}

func (l *LCD) blank() {
	for i := range l.ddram {
		l.ddram[i] = ' '
	}
}

func (l *LCD) rowBase(row int) int {
	base := 0
	if row%2 == 1 {
		base = lineTwoStart
	}
	if row >= 2 {
		base += l.width
	}
	return base
}

// Text returns the visible characters of row.
func (l *LCD) Text(row int) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.text(row)
}

func (l *LCD) text(row int) string {
	if row < 0 || row >= l.height {
		return ""
	}
	base := l.rowBase(row)
	return string(l.ddram[base : base+l.width])
}

// Transfers returns a copy of every latched bus cycle.
func (l *LCD) Transfers() []Transfer {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Transfer, len(l.transfers))
	copy(out, l.transfers)
	return out
}

// ResetTransfers forgets the recorded bus cycles.
func (l *LCD) ResetTransfers() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transfers = l.transfers[:0]
}

// Address returns the DDRAM address counter.
func (l *LCD) Address() byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addr
}

func (l *LCD) DisplayOn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.displayOn
}

func (l *LCD) CursorOn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursorOn
}

// TwoLine reports whether the last function set selected two-line mode.
func (l *LCD) TwoLine() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.twoLine
}

func (l *LCD) EightBit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.eightBit
}

func (l *LCD) Width() int  { return l.width }
func (l *LCD) Height() int { return l.height }
