package hd44780_test

import (
	"errors"
	"testing"
	"time"

	"github.com/harveysanders/ropemeasure/hd44780"
	"github.com/harveysanders/ropemeasure/sim"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type delays struct {
	calls []time.Duration
}

func (d *delays) Delay(t time.Duration) { d.calls = append(d.calls, t) }

func (d *delays) total() time.Duration {
	var sum time.Duration
	for _, c := range d.calls {
		sum += c
	}
	return sum
}

func newDisplay(t *testing.T, width, height uint8) (*hd44780.Display, *sim.LCD, *delays) {
	t.Helper()
	lcd := sim.New(int(width), int(height))
	wait := &delays{}
	d := hd44780.New(lcd.DataBus(), lcd.Enable(), lcd.ReadWrite(), lcd.RegisterSelect(), wait, hd44780.Config{
		Width:  width,
		Height: height,
	})
	return d, lcd, wait
}

func commands(transfers []sim.Transfer) []byte {
	var out []byte
	for _, tr := range transfers {
		if !tr.Data {
			out = append(out, tr.Value)
		}
	}
	return out
}

func TestInitialize(t *testing.T) {
	d, lcd, wait := newDisplay(t, 16, 2)
	d.Initialize()

	want := []byte{0x30, 0x30, 0x30, 0x38, 0x08, 0x01, 0x06, 0x0E}
	got := commands(lcd.Transfers())
	if string(got) != string(want) {
		t.Fatalf("init commands = % x, want % x", got, want)
	}
	for _, tr := range lcd.Transfers() {
		if tr.Data || tr.Read {
			t.Errorf("unexpected transfer during init: %+v", tr)
		}
	}
	if !lcd.DisplayOn() || !lcd.CursorOn() || !lcd.TwoLine() || !lcd.EightBit() {
		t.Errorf("display state after init: on=%v cursor=%v twoLine=%v eightBit=%v",
			lcd.DisplayOn(), lcd.CursorOn(), lcd.TwoLine(), lcd.EightBit())
	}
	if wait.calls[0] < 15*time.Millisecond {
		t.Errorf("power-on wait = %v, want at least 15ms", wait.calls[0])
	}
	// 8 transfers of pulse and settle plus the power-on wait and 8 command waits.
	if len(wait.calls) != 1+8*2+8 {
		t.Errorf("got %d delays", len(wait.calls))
	}
	if wait.total() < 50*time.Millisecond+8*4*time.Millisecond {
		t.Errorf("init took only %v", wait.total())
	}
}

func TestInitializeSingleLine(t *testing.T) {
	d, lcd, _ := newDisplay(t, 16, 1)
	d.Initialize()
	got := commands(lcd.Transfers())
	if got[3] != 0x30 {
		t.Errorf("function set = %#x, want 0x30", got[3])
	}
	if lcd.TwoLine() {
		t.Error("display left in two-line mode")
	}
}

func TestSetCursorPosition(t *testing.T) {
	tests := []struct {
		row, col uint8
		wantCmd  byte
		wantErr  bool
	}{
		{0, 0, 0x80, false},
		{1, 0, 0xC0, false},
		{0, 5, 0x85, false},
		{1, 15, 0xCF, false},
		{0, 16, 0x90, false},
		{1, 16, 0xD0, false},
		{0, 17, 0, true},
		{2, 0, 0, true},
		{255, 255, 0, true},
	}

	for _, tt := range tests {
		d, lcd, _ := newDisplay(t, 16, 2)
		d.Initialize()
		lcd.ResetTransfers()

		err := d.SetCursorPosition(tt.row, tt.col)
		transfers := lcd.Transfers()
		if tt.wantErr {
			if !errors.Is(err, hd44780.ErrOutOfRange) {
				t.Errorf("SetCursorPosition(%d, %d) error = %v, want ErrOutOfRange", tt.row, tt.col, err)
			}
			if len(transfers) != 0 {
				t.Errorf("SetCursorPosition(%d, %d) sent %d transfers on error", tt.row, tt.col, len(transfers))
			}
			continue
		}
		if err != nil {
			t.Errorf("SetCursorPosition(%d, %d): %v", tt.row, tt.col, err)
			continue
		}
		if len(transfers) != 1 || transfers[0].Data || transfers[0].Value != tt.wantCmd {
			t.Errorf("SetCursorPosition(%d, %d) sent %+v, want command %#x", tt.row, tt.col, transfers, tt.wantCmd)
		}
	}
}

func TestSetCursorPositionFourLines(t *testing.T) {
	d, lcd, _ := newDisplay(t, 20, 4)
	d.Initialize()

	for row, want := range []byte{0x80, 0xC0, 0x94, 0xD4} {
		lcd.ResetTransfers()
		if err := d.SetCursorPosition(uint8(row), 0); err != nil {
			t.Fatal(err)
		}
		if got := lcd.Transfers()[0].Value; got != want {
			t.Errorf("row %d: command %#x, want %#x", row, got, want)
		}
	}
	if err := d.SetCursorPosition(4, 0); !errors.Is(err, hd44780.ErrOutOfRange) {
		t.Errorf("row 4: err = %v", err)
	}
}

func TestWriteString(t *testing.T) {
	d, lcd, _ := newDisplay(t, 16, 2)
	d.Initialize()

	if err := d.SetCursorPosition(1, 0); err != nil {
		t.Fatal(err)
	}
	lcd.ResetTransfers()
	d.WriteString("0.126 m")

	transfers := lcd.Transfers()
	if len(transfers) != len("0.126 m") {
		t.Fatalf("got %d transfers", len(transfers))
	}
	for i, tr := range transfers {
		if !tr.Data || tr.Read || tr.Value != "0.126 m"[i] {
			t.Errorf("transfer %d = %+v", i, tr)
		}
	}
	if got := lcd.Text(1); got != "0.126 m         " {
		t.Errorf("row 1 = %q", got)
	}
	if got := lcd.Text(0); got != "                " {
		t.Errorf("row 0 = %q", got)
	}
}

func TestWriteBytesAndEmpty(t *testing.T) {
	d, lcd, _ := newDisplay(t, 16, 2)
	d.Initialize()
	lcd.ResetTransfers()

	d.WriteString("")
	d.WriteBytes(nil)
	if n := len(lcd.Transfers()); n != 0 {
		t.Fatalf("empty writes sent %d transfers", n)
	}

	d.WriteBytes([]byte("Rope Measurer"))
	if got := lcd.Text(0); got != "Rope Measurer   " {
		t.Errorf("row 0 = %q", got)
	}
}

func TestWriteStringTimesEachByte(t *testing.T) {
	lcd := sim.New(16, 2)
	wait := &delays{}
	d := hd44780.New(lcd.DataBus(), lcd.Enable(), lcd.ReadWrite(), lcd.RegisterSelect(), wait, hd44780.Config{
		PulseWidth: 3 * time.Millisecond,
		Settle:     time.Millisecond,
	})
	d.WriteString("ab")
	want := []time.Duration{3 * time.Millisecond, time.Millisecond, 3 * time.Millisecond, time.Millisecond}
	if len(wait.calls) != len(want) {
		t.Fatalf("delays = %v, want %v", wait.calls, want)
	}
	for i := range want {
		if wait.calls[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, wait.calls[i], want[i])
		}
	}
}

func TestClear(t *testing.T) {
	d, lcd, _ := newDisplay(t, 16, 2)
	d.Initialize()
	d.WriteString("hello")
	d.Clear()
	if got := lcd.Text(0); got != "                " {
		t.Errorf("row 0 after Clear = %q", got)
	}
	if lcd.Address() != 0 {
		t.Errorf("address after Clear = %#x", lcd.Address())
	}
}

func TestBusLevels(t *testing.T) {
	var bus [8]hd44780.Line
	pins := make([]*gpiotest.Pin, 8)
	for i := range bus {
		pins[i] = &gpiotest.Pin{N: "D" + string(rune('0'+i))}
		bus[i] = pins[i]
	}
	e := &gpiotest.Pin{N: "E"}
	rw := &gpiotest.Pin{N: "RW", L: gpio.High}
	rs := &gpiotest.Pin{N: "RS"}
	d := hd44780.New(bus, e, rw, rs, hd44780.DelayFunc(func(time.Duration) {}), hd44780.Config{})

	d.WriteString("\xA5")
	for i, p := range pins {
		want := gpio.Level(0xA5&(1<<i) != 0)
		if p.Read() != want {
			t.Errorf("D%d = %v, want %v", i, p.Read(), want)
		}
	}
	if rs.Read() != gpio.High {
		t.Error("RS low after a data write")
	}
	if rw.Read() != gpio.Low {
		t.Error("RW high after a write")
	}
	if e.Read() != gpio.Low {
		t.Error("E left high")
	}

	if err := d.SetCursorPosition(1, 0); err != nil {
		t.Fatal(err)
	}
	if rs.Read() != gpio.Low {
		t.Error("RS high after a command")
	}
}

type brokenLine struct{ writes int }

func (b *brokenLine) Out(gpio.Level) error {
	b.writes++
	return errors.New("line stuck")
}

func TestLineErrorsAreSwallowed(t *testing.T) {
	lcd := sim.New(16, 2)
	bus := lcd.DataBus()
	broken := &brokenLine{}
	bus[3] = broken
	d := hd44780.New(bus, lcd.Enable(), lcd.ReadWrite(), lcd.RegisterSelect(), hd44780.DelayFunc(func(time.Duration) {}), hd44780.Config{})

	d.Initialize()
	if err := d.SetCursorPosition(0, 0); err != nil {
		t.Fatal(err)
	}
	d.WriteString("ok")

	if broken.writes == 0 {
		t.Fatal("broken line never written")
	}
	if d.Faults() != uint32(broken.writes) {
		t.Errorf("Faults() = %d, want %d", d.Faults(), broken.writes)
	}
	if n := len(lcd.Transfers()); n != 8+1+2 {
		t.Errorf("got %d transfers, want 11", n)
	}
}

func TestRowAddress(t *testing.T) {
	tests := []struct {
		row, width uint8
		want       byte
	}{
		{0, 16, 0x00},
		{1, 16, 0x40},
		{2, 16, 0x10},
		{3, 16, 0x50},
		{2, 20, 0x14},
		{3, 20, 0x54},
	}
	for _, tt := range tests {
		if got := hd44780.RowAddress(tt.row, tt.width); got != tt.want {
			t.Errorf("RowAddress(%d, %d) = %#x, want %#x", tt.row, tt.width, got, tt.want)
		}
	}
}
