package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harveysanders/ropemeasure/config"
	"github.com/harveysanders/ropemeasure/hd44780"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

const edgeTimeout = 100 * time.Millisecond

var now = time.Now

func outputPin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no GPIO pin named %q", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}

func inputPin(name string, edge gpio.Edge) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no GPIO pin named %q", name)
	}
	if err := p.In(gpio.PullUp, edge); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}

func openDisplay(cfg config.Display, logger *slog.Logger) (*hd44780.Display, error) {
	if len(cfg.Data) != 8 {
		return nil, errors.New("display.data must name the 8 data pins, D0 first")
	}
	var bus [8]hd44780.Line
	for i, name := range cfg.Data {
		p, err := outputPin(name)
		if err != nil {
			return nil, fmt.Errorf("display.data[%d]: %w", i, err)
		}
		bus[i] = p
	}
	enable, err := outputPin(cfg.Enable)
	if err != nil {
		return nil, fmt.Errorf("display.enable: %w", err)
	}
	readWrite, err := outputPin(cfg.ReadWrite)
	if err != nil {
		return nil, fmt.Errorf("display.readWrite: %w", err)
	}
	registerSelect, err := outputPin(cfg.RegisterSelect)
	if err != nil {
		return nil, fmt.Errorf("display.registerSelect: %w", err)
	}
	return hd44780.New(bus, enable, readWrite, registerSelect, hd44780.BusyWait{}, hd44780.Config{
		Width:      cfg.Width,
		Height:     cfg.Height,
		PulseWidth: cfg.PulseWidth,
		Settle:     cfg.Settle,
		Logger:     logger,
	}), nil
}
