//go:build tinygo

package main

import (
	"errors"
	"log/slog"
	"machine"

	"github.com/harveysanders/ropemeasure/hd44780"
	"github.com/harveysanders/ropemeasure/lcd"
	"periph.io/x/conn/v3/gpio"
	"tinygo.org/x/drivers/hd44780i2c"
)

const (
	lcdColumns = 16
	lcdRows    = 2
)

// lcdBus selects how the LCD is wired: "parallel" for the 8-bit bus on
// GP0-GP10 or "i2c" for a PCF8574 backpack on GP4/GP5. Set it with
// -ldflags="-X main.lcdBus=i2c".
var lcdBus = "parallel"

var (
	dataPins = [8]machine.Pin{
		machine.GP0, machine.GP1, machine.GP2, machine.GP3,
		machine.GP4, machine.GP5, machine.GP6, machine.GP7,
	}
	registerSelectPin = machine.GP8
	readWritePin      = machine.GP9
	enablePin         = machine.GP10
)

// pinLine drives a machine.Pin as an hd44780.Line.
type pinLine machine.Pin

func (p pinLine) Out(l gpio.Level) error {
	machine.Pin(p).Set(bool(l))
	return nil
}

func configureScreen(logger *slog.Logger) (lcd.Screen, int, int, error) {
	switch lcdBus {
	case "parallel":
		return configureParallel(logger), lcdRows, lcdColumns, nil
	case "i2c":
		s, err := configureI2C()
		return s, lcdRows, lcdColumns, err
	}
	return nil, 0, 0, errors.New("unknown LCD bus " + lcdBus)
}

func configureParallel(logger *slog.Logger) *hd44780.Display {
	var bus [8]hd44780.Line
	for i, p := range dataPins {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		bus[i] = pinLine(p)
	}
	for _, p := range []machine.Pin{registerSelectPin, readWritePin, enablePin} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}

	d := hd44780.New(bus, pinLine(enablePin), pinLine(readWritePin), pinLine(registerSelectPin), hd44780.BusyWait{}, hd44780.Config{
		Width:  lcdColumns,
		Height: lcdRows,
		Logger: logger,
	})
	d.Initialize()
	return d
}

// i2cScreen adapts a backpack LCD to lcd.Screen with the same cursor rules
// as the parallel driver.
type i2cScreen struct {
	dev hd44780i2c.Device
}

func (s *i2cScreen) SetCursorPosition(row, column uint8) error {
	if row >= lcdRows || column > lcdColumns {
		return hd44780.ErrOutOfRange
	}
	s.dev.SetCursor(column, row)
	return nil
}

func (s *i2cScreen) WriteBytes(b []byte) { s.dev.Print(b) }

// configureI2C sets up I2C0 and the backpack at the first of the common
// addresses (0x27, 0x3F) that answers.
func configureI2C() (*i2cScreen, error) {
	err := machine.I2C0.Configure(machine.I2CConfig{
		SDA: machine.GP4,
		SCL: machine.GP5,
	})
	if err != nil {
		return nil, errors.New("configure I2C: " + err.Error())
	}

	for _, a := range []uint8{0x27, 0x3F} {
		if err := machine.I2C0.Tx(uint16(a), nil, make([]byte, 1)); err != nil {
			continue
		}
		dev := hd44780i2c.New(machine.I2C0, a)
		if err := dev.Configure(hd44780i2c.Config{Width: lcdColumns, Height: lcdRows}); err != nil {
			return nil, errors.New("configure LCD: " + err.Error())
		}
		dev.ClearDisplay()
		return &i2cScreen{dev: dev}, nil
	}
	return nil, errors.New("LCD not found on addresses: 0x27, 0x3f")
}
