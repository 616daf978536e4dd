// Command ropesim runs the rope meter against an emulated LCD and a wheel
// turning at a fixed speed, and serves the screen over HTTP.
//
//	ropesim -addr :8080 -rpm 30
//
// GET /lcd.png renders the display, GET /reading returns the latest sample
// as JSON. POST /reset zeroes the length, POST /reverse flips the wheel and
// POST /pause stops or restarts it.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dikkadev/prettyslog"
	"github.com/harveysanders/ropemeasure/hd44780"
	"github.com/harveysanders/ropemeasure/lcd"
	"github.com/harveysanders/ropemeasure/meter"
	"github.com/harveysanders/ropemeasure/mqtt"
	"github.com/harveysanders/ropemeasure/quadrature"
	"github.com/harveysanders/ropemeasure/sim"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	rpm := flag.Float64("rpm", 30, "wheel speed in revolutions per minute")
	radius := flag.Float64("radius", 0.01, "wheel radius in meters")
	ppr := flag.Uint("ppr", 2048, "encoder counts per revolution")
	width := flag.Uint("width", 16, "LCD columns")
	height := flag.Uint("height", 2, "LCD rows")
	level := slog.LevelInfo
	flag.TextVar(&level, "level", level, "log level")
	flag.Parse()

	logger := slog.New(prettyslog.NewPrettyslogHandler("ropesim",
		prettyslog.WithLevel(level),
	))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	emu := sim.New(int(*width), int(*height))
	// The emulator latches instantly, no bus timing needed.
	display := hd44780.New(emu.DataBus(), emu.Enable(), emu.ReadWrite(), emu.RegisterSelect(),
		hd44780.DelayFunc(func(time.Duration) {}),
		hd44780.Config{Width: uint8(*width), Height: uint8(*height), Logger: logger},
	)
	display.Initialize()

	counter := &quadrature.Counter{}
	w := newWheel(counter)
	go w.turn(ctx, *rpm/60*float64(*ppr), time.Millisecond)

	readings := make(chan mqtt.Reading, 1)
	srv := &server{
		lcd:    emu,
		reset:  &meter.ResetFlag{},
		wheel:  w,
		logger: logger,
	}
	go srv.collect(ctx, readings)

	m := meter.New(meter.Config{
		Radius:              *radius,
		PulsesPerRevolution: uint32(*ppr),
		PublishInterval:     100 * time.Millisecond,
	}, counter, lcd.NewPanel(display, int(*height), int(*width)), meter.Options{
		Reset: srv.reset,
		Indicator: meter.IndicatorFunc(func(d quadrature.Direction) {
			logger.Info("wheel:direction", slog.String("direction", d.String()))
		}),
		Readings: []chan<- mqtt.Reading{readings},
		Logger:   logger,
	})
	go m.Run(ctx)

	httpServer := &http.Server{Addr: *addr, Handler: srv.routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("http:listening", slog.String("addr", *addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http:failed", slog.Any("reason", err))
		os.Exit(1)
	}
}
