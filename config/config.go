// Package config loads the host program settings from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Wheel struct {
	Radius              float64 `yaml:"radius"` // meters
	PulsesPerRevolution uint32  `yaml:"pulsesPerRevolution"`
	CounterBits         uint    `yaml:"counterBits"`
}

type Display struct {
	Width          uint8         `yaml:"width"`
	Height         uint8         `yaml:"height"`
	Title          string        `yaml:"title"`
	PulseWidth     time.Duration `yaml:"pulseWidth"`
	Settle         time.Duration `yaml:"settle"`
	Data           []string      `yaml:"data"` // D0 first
	Enable         string        `yaml:"enable"`
	ReadWrite      string        `yaml:"readWrite"`
	RegisterSelect string        `yaml:"registerSelect"`
}

type Encoder struct {
	A         string        `yaml:"a"`
	B         string        `yaml:"b"`
	Reset     string        `yaml:"reset"`
	Debounce  time.Duration `yaml:"debounce"`
	Direction string        `yaml:"direction"` // LED pin, optional
}

type MQTT struct {
	Addr            string        `yaml:"addr"` // host:port, empty disables publishing
	ClientID        string        `yaml:"clientID"`
	Topic           string        `yaml:"topic"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	Timeout         time.Duration `yaml:"timeout"`
	PublishInterval time.Duration `yaml:"publishInterval"`
}

type Serial struct {
	Port     string `yaml:"port"` // empty disables the mirror
	BaudRate int    `yaml:"baudRate"`
}

type Config struct {
	Wheel        Wheel         `yaml:"wheel"`
	Display      Display       `yaml:"display"`
	Encoder      Encoder       `yaml:"encoder"`
	PollInterval time.Duration `yaml:"pollInterval"`
	MQTT         MQTT          `yaml:"mqtt"`
	Serial       Serial        `yaml:"serial"`
	LogLevel     string        `yaml:"logLevel"`
}

// Default returns the settings of the reference build: a 10mm wheel on a
// 2048 pulse encoder and a 16x2 display.
func Default() Config {
	return Config{
		Wheel: Wheel{
			Radius:              0.01,
			PulsesPerRevolution: 2048,
			CounterBits:         32,
		},
		Display: Display{
			Width:      16,
			Height:     2,
			Title:      "Rope Measurer",
			PulseWidth: 2 * time.Millisecond,
			Settle:     2 * time.Millisecond,
		},
		Encoder: Encoder{
			Debounce: 50 * time.Millisecond,
		},
		PollInterval: 10 * time.Millisecond,
		MQTT: MQTT{
			ClientID:        "ropemeasure",
			Topic:           "ropemeasure/length",
			Timeout:         5 * time.Second,
			PublishInterval: time.Second,
		},
		Serial: Serial{
			BaudRate: 115200,
		},
		LogLevel: "info",
	}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Wheel.Radius <= 0 {
		errs = append(errs, fmt.Errorf("wheel.radius must be positive, got %v", c.Wheel.Radius))
	}
	if c.Wheel.PulsesPerRevolution == 0 {
		errs = append(errs, errors.New("wheel.pulsesPerRevolution must be positive"))
	}
	if c.Wheel.CounterBits < 8 || c.Wheel.CounterBits > 32 {
		errs = append(errs, fmt.Errorf("wheel.counterBits must be between 8 and 32, got %d", c.Wheel.CounterBits))
	}
	if c.Display.Width < 1 || c.Display.Width > 40 {
		errs = append(errs, fmt.Errorf("display.width must be between 1 and 40, got %d", c.Display.Width))
	}
	if c.Display.Height < 1 || c.Display.Height > 4 {
		errs = append(errs, fmt.Errorf("display.height must be between 1 and 4, got %d", c.Display.Height))
	}
	if n := len(c.Display.Data); n != 0 && n != 8 {
		errs = append(errs, fmt.Errorf("display.data needs 8 pins, got %d", n))
	}
	if c.Display.PulseWidth <= 0 || c.Display.Settle <= 0 {
		errs = append(errs, errors.New("display.pulseWidth and display.settle must be positive"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("pollInterval must be positive"))
	}
	if c.MQTT.Addr != "" && c.MQTT.Timeout <= 0 {
		errs = append(errs, errors.New("mqtt.timeout must be positive"))
	}
	if c.Serial.Port != "" && c.Serial.BaudRate <= 0 {
		errs = append(errs, errors.New("serial.baudRate must be positive"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the configured log level.
func (c Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("logLevel: %w", err)
	}
	return l, nil
}
