// Command hostmeter runs the rope meter on a Linux single board computer,
// driving the LCD and reading the encoder through periph GPIO.
//
//	hostmeter -config ropemeasure.yaml
//
// Readings can be published over MQTT and mirrored to a serial port, see
// package config for the settings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/dikkadev/prettyslog"
	"github.com/harveysanders/ropemeasure/config"
	"github.com/harveysanders/ropemeasure/lcd"
	"github.com/harveysanders/ropemeasure/meter"
	"github.com/harveysanders/ropemeasure/mqtt"
	"github.com/harveysanders/ropemeasure/quadrature"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3"
)

func main() {
	configPath := flag.String("config", "ropemeasure.yaml", "path to the YAML config file")
	radius := flag.Float64("radius", 0, "wheel radius in meters, overrides the config file")
	broker := flag.String("mqtt", "", "MQTT broker host:port, overrides the config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *radius > 0 {
		cfg.Wheel.Radius = *radius
	}
	if *broker != "" {
		cfg.MQTT.Addr = *broker
	}

	logger := slog.New(prettyslog.NewPrettyslogHandler("ropemeasure",
		prettyslog.WithLevel(cfg.Level()),
	))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("hostmeter:failed", slog.Any("reason", err))
		os.Exit(1)
	}
}

// loadConfig falls back to the defaults when path does not exist.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph init: %w", err)
	}

	display, err := openDisplay(cfg.Display, logger)
	if err != nil {
		return err
	}
	display.Initialize()
	panel := lcd.NewPanel(display, int(cfg.Display.Height), int(cfg.Display.Width))

	a, err := inputPin(cfg.Encoder.A, gpio.BothEdges)
	if err != nil {
		return fmt.Errorf("encoder.a: %w", err)
	}
	b, err := inputPin(cfg.Encoder.B, gpio.BothEdges)
	if err != nil {
		return fmt.Errorf("encoder.b: %w", err)
	}
	counter := &quadrature.Counter{}
	go counter.Watch(ctx, a, b)

	reset := &meter.ResetFlag{}
	if cfg.Encoder.Reset != "" {
		button, err := inputPin(cfg.Encoder.Reset, gpio.FallingEdge)
		if err != nil {
			return fmt.Errorf("encoder.reset: %w", err)
		}
		go watchButton(ctx, button, &meter.Debouncer{Window: cfg.Encoder.Debounce}, reset)
	}

	var indicator meter.Indicator
	if cfg.Encoder.Direction != "" {
		led, err := outputPin(cfg.Encoder.Direction)
		if err != nil {
			return fmt.Errorf("encoder.direction: %w", err)
		}
		indicator = meter.IndicatorFunc(func(d quadrature.Direction) {
			if err := led.Out(d == quadrature.CounterClockwise); err != nil {
				logger.Debug("led:write-failed", slog.Any("reason", err))
			}
		})
	}

	var readings []chan<- mqtt.Reading
	if cfg.MQTT.Addr != "" {
		ch := make(chan mqtt.Reading, 16)
		readings = append(readings, ch)
		c := &mqtt.Client{
			ID:       cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			Timeout:  cfg.MQTT.Timeout,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Logger:   logger,
		}
		go c.Run(ctx, tcpDialer(cfg.MQTT.Addr), ch)
	}
	if cfg.Serial.Port != "" {
		ch := make(chan mqtt.Reading, 16)
		readings = append(readings, ch)
		go func() {
			if err := mirrorSerial(ctx, cfg.Serial, ch); err != nil {
				logger.Error("serial:mirror-failed", slog.Any("reason", err))
			}
		}()
	}

	m := meter.New(meter.Config{
		Radius:              cfg.Wheel.Radius,
		PulsesPerRevolution: cfg.Wheel.PulsesPerRevolution,
		CounterBits:         cfg.Wheel.CounterBits,
		Title:               cfg.Display.Title,
		PollInterval:        cfg.PollInterval,
		PublishInterval:     cfg.MQTT.PublishInterval,
	}, counter, panel, meter.Options{
		Reset:     reset,
		Indicator: indicator,
		Readings:  readings,
		Logger:    logger,
	})
	err = m.Run(ctx)
	logger.Info("hostmeter:stopped",
		slog.Float64("length", m.Length()),
		slog.Uint64("lcdFaults", uint64(display.Faults())),
		slog.Uint64("lostSteps", uint64(counter.Invalid())),
	)
	return err
}

func tcpDialer(addr string) mqtt.Dialer {
	return mqtt.DialFunc(func(ctx context.Context) (mqtt.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}

func watchButton(ctx context.Context, button gpio.PinIn, debouncer *meter.Debouncer, reset *meter.ResetFlag) {
	for ctx.Err() == nil {
		if button.WaitForEdge(edgeTimeout) && debouncer.Allow(now()) {
			reset.Request()
		}
	}
}
