// Package hd44780 drives an HD44780 compatible character LCD over an 8-bit
// parallel bus with bit-banged Enable, Read/Write and Register Select lines.
//
// The busy flag is never read back. Every transfer is timed with fixed
// delays long enough for the slowest instruction, so the RW line is held low
// for the whole life of the driver.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package hd44780

import (
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Line is a single output signal wired to the display.
//
// periph's gpio.PinOut satisfies it, and so does any small adapter over a
// TinyGo machine.Pin.
type Line interface {
	Out(l gpio.Level) error
}

// Error is a constant error value returned by the driver.
type Error string

func (e Error) Error() string { return string(e) }

// ErrOutOfRange is returned by SetCursorPosition for a row at or past the
// display height or a column past the display width.
const ErrOutOfRange Error = "hd44780: cursor position out of range"

// Instruction bytes.
const (
	cmdClear        byte = 0x01
	cmdHome         byte = 0x02
	cmdEntryMode    byte = 0x04
	cmdDisplay      byte = 0x08
	cmdFunctionSet  byte = 0x20
	cmdSetDDRAMAddr byte = 0x80

	entryIncrement byte = 0x02

	displayOn byte = 0x04
	cursorOn  byte = 0x02

	functionEightBit byte = 0x10
	functionTwoLine  byte = 0x08
)

const (
	powerOnDelay = 50 * time.Millisecond
	clearDelay   = 2 * time.Millisecond
)

// Config holds display geometry and bus timing.
type Config struct {
	// Width is the number of visible columns. Defaults to 16.
	Width uint8
	// Height is the number of rows, 1 to 4. Defaults to 2.
	Height uint8
	// PulseWidth is how long Enable is held high. Defaults to 2ms.
	PulseWidth time.Duration
	// Settle is the wait after Enable falls. Defaults to 2ms.
	Settle time.Duration
	Logger *slog.Logger
}

// Display is an HD44780 on an 8-bit bus. It owns its lines exclusively and
// is not safe for concurrent use.
type Display struct {
	dataBus        [8]Line
	enable         Line
	readWrite      Line
	registerSelect Line
	delay          Delayer

	width  uint8
	height uint8
	pulse  time.Duration
	settle time.Duration
	logger *slog.Logger
	faults uint32
}

// New returns a Display on the given lines. dataBus[i] carries bit i of every
// transferred byte. The display is unusable until Initialize is called.
func New(dataBus [8]Line, enable, readWrite, registerSelect Line, delay Delayer, cfg Config) *Display {
	if cfg.Width == 0 {
		cfg.Width = 16
	}
	if cfg.Height == 0 {
		cfg.Height = 2
	}
	if cfg.PulseWidth == 0 {
		cfg.PulseWidth = 2 * time.Millisecond
	}
	if cfg.Settle == 0 {
		cfg.Settle = 2 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if delay == nil {
		delay = BusyWait{}
	}
	return &Display{
		dataBus:        dataBus,
		enable:         enable,
		readWrite:      readWrite,
		registerSelect: registerSelect,
		delay:          delay,
		width:          cfg.Width,
		height:         cfg.Height,
		pulse:          cfg.PulseWidth,
		settle:         cfg.Settle,
		logger:         cfg.Logger,
	}
}

// Initialize runs the 8-bit power-on sequence: three function set wake-ups,
// the real function set, display off, clear, increment entry mode and
// finally display on with an underline cursor.
func (d *Display) Initialize() {
	d.set(d.registerSelect, gpio.Low)
	d.set(d.readWrite, gpio.Low)
	d.set(d.enable, gpio.Low)
	d.delay.Delay(powerOnDelay)

	function := cmdFunctionSet | functionEightBit
	if d.height > 1 {
		function |= functionTwoLine
	}

	sequence := [...]struct {
		cmd  byte
		wait time.Duration
	}{
		{cmdFunctionSet | functionEightBit, 5 * time.Millisecond},
		{cmdFunctionSet | functionEightBit, time.Millisecond},
		{cmdFunctionSet | functionEightBit, time.Millisecond},
		{function, time.Millisecond},
		{cmdDisplay, time.Millisecond},
		{cmdClear, clearDelay},
		{cmdEntryMode | entryIncrement, time.Millisecond},
		{cmdDisplay | displayOn | cursorOn, time.Millisecond},
	}
	for _, step := range sequence {
		d.command(step.cmd)
		d.delay.Delay(step.wait)
	}
	d.logger.Debug("hd44780:initialized",
		slog.Int("width", int(d.width)),
		slog.Int("height", int(d.height)),
	)
}

// SetCursorPosition moves the DDRAM address to row, column. column may equal
// the width, which parks the cursor just past the last visible cell.
func (d *Display) SetCursorPosition(row, column uint8) error {
	if row >= d.height || column > d.width {
		return ErrOutOfRange
	}
	d.command(cmdSetDDRAMAddr | (RowAddress(row, d.width) + column))
	return nil
}

// WriteString sends each byte of s as character data at the current address.
func (d *Display) WriteString(s string) {
	for i := 0; i < len(s); i++ {
		d.data(s[i])
	}
}

// WriteBytes sends each byte of b as character data at the current address.
func (d *Display) WriteBytes(b []byte) {
	for _, c := range b {
		d.data(c)
	}
}

// Clear blanks DDRAM and returns the cursor to 0,0.
func (d *Display) Clear() {
	d.command(cmdClear)
	d.delay.Delay(clearDelay)
}

// Home returns the cursor to 0,0 without touching DDRAM.
func (d *Display) Home() {
	d.command(cmdHome)
	d.delay.Delay(clearDelay)
}

func (d *Display) Width() uint8  { return d.width }
func (d *Display) Height() uint8 { return d.height }

// Faults returns how many line writes have failed since New.
func (d *Display) Faults() uint32 { return d.faults }

// RowAddress returns the DDRAM address of the first cell of row. Rows 2 and 3
// of four-line modules continue rows 0 and 1 after width cells.
func RowAddress(row, width uint8) byte {
	base := byte(0x00)
	if row%2 == 1 {
		base = 0x40
	}
	if row >= 2 {
		base += width
	}
	return base
}

func (d *Display) command(b byte) { d.send(b, gpio.Low) }

func (d *Display) data(b byte) { d.send(b, gpio.High) }

// send performs one bus transfer. The controller latches on the falling
// edge of Enable.
func (d *Display) send(b byte, rs gpio.Level) {
	for i, line := range d.dataBus {
		d.set(line, b&(1<<i) != 0)
	}
	d.set(d.registerSelect, rs)
	d.set(d.readWrite, gpio.Low)
	d.set(d.enable, gpio.High)
	d.delay.Delay(d.pulse)
	d.set(d.enable, gpio.Low)
	d.delay.Delay(d.settle)
}

func (d *Display) set(line Line, l gpio.Level) {
	if err := line.Out(l); err != nil {
		d.faults++
		d.logger.Debug("hd44780:line-write-failed", slog.Any("reason", err))
	}
}
