//go:build tinygo

// Command firmware measures rope on a Raspberry Pi Pico.
//
// A quadrature encoder on a measuring wheel drives GP14/GP15, the length is
// shown on an HD44780 LCD and a button on GP16 zeroes it. GP21 lights while
// the rope is pulled back.
//
//	tinygo flash -target=pico ./firmware
//
// Build with -tags wifi on a Pico W to publish readings over MQTT, see
// package wifi for the linker flags.
package main

import (
	"context"
	"log/slog"
	"machine"
	"time"

	"github.com/harveysanders/ropemeasure/lcd"
	"github.com/harveysanders/ropemeasure/meter"
	"github.com/harveysanders/ropemeasure/quadrature"
	"tinygo.org/x/drivers/encoders"
)

const (
	wheelRadius         = 0.01 // meters
	pulsesPerRevolution = 2048
	debounceWindow      = 50 * time.Millisecond
	publishInterval     = time.Second
)

// Pins.
const (
	encoderA     = machine.GP14
	encoderB     = machine.GP15
	resetButton  = machine.GP16
	directionLED = machine.GP21
)

func main() {
	logger := slog.New(slog.NewTextHandler(machine.Serial, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	screen, rows, columns, err := configureScreen(logger)
	if err != nil {
		printErrForever(logger, "configure LCD", slog.Any("reason", err))
	}
	panel := lcd.NewPanel(screen, rows, columns)

	enc := encoders.NewQuadratureViaInterrupt(encoderA, encoderB)
	if err := enc.Configure(encoders.QuadratureConfig{Precision: 1}); err != nil {
		printErrForever(logger, "configure encoder", slog.Any("reason", err))
	}

	var reset meter.ResetFlag
	debouncer := meter.Debouncer{Window: debounceWindow}
	resetButton.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	err = resetButton.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		if debouncer.Allow(time.Now()) {
			reset.Request()
		}
	})
	if err != nil {
		printErrForever(logger, "configure reset button", slog.Any("reason", err))
	}

	directionLED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	directionLED.Low()

	m := meter.New(meter.Config{
		Radius:              wheelRadius,
		PulsesPerRevolution: pulsesPerRevolution,
		CounterBits:         32,
		PublishInterval:     publishInterval,
	}, encoderCounter{enc}, panel, meter.Options{
		Reset: &reset,
		Indicator: meter.IndicatorFunc(func(d quadrature.Direction) {
			directionLED.Set(d == quadrature.CounterClockwise)
		}),
		Readings: startTelemetry(logger),
		Logger:   logger,
	})
	m.Run(context.Background())
}

// encoderCounter exposes the interrupt driven encoder as a 32-bit counter.
type encoderCounter struct {
	dev *encoders.QuadratureDevice
}

func (e encoderCounter) Count() uint32 { return uint32(e.dev.Position()) }

// printErrForever prints a message to serial @ 1hz. It
// blocks forever.
func printErrForever(logger *slog.Logger, msg string, args ...any) {
	for {
		logger.Error(msg, args...)
		time.Sleep(time.Second)
	}
}
