package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
wheel:
  radius: 0.025
  pulsesPerRevolution: 600
  counterBits: 16
display:
  width: 20
  height: 4
  pulseWidth: 1ms
  data: [GPIO5, GPIO6, GPIO13, GPIO19, GPIO26, GPIO12, GPIO16, GPIO20]
  enable: GPIO21
  readWrite: GPIO22
  registerSelect: GPIO27
encoder:
  a: GPIO17
  b: GPIO18
  reset: GPIO23
pollInterval: 20ms
mqtt:
  addr: broker.local:1883
logLevel: debug
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Wheel.Radius != 0.025 || cfg.Wheel.PulsesPerRevolution != 600 || cfg.Wheel.CounterBits != 16 {
		t.Errorf("wheel = %+v", cfg.Wheel)
	}
	if cfg.Display.Width != 20 || cfg.Display.Height != 4 || cfg.Display.PulseWidth != time.Millisecond {
		t.Errorf("display = %+v", cfg.Display)
	}
	if cfg.Display.Settle != 2*time.Millisecond {
		t.Errorf("settle default lost: %v", cfg.Display.Settle)
	}
	if len(cfg.Display.Data) != 8 || cfg.Display.Data[0] != "GPIO5" {
		t.Errorf("data pins = %v", cfg.Display.Data)
	}
	if cfg.Encoder.Debounce != 50*time.Millisecond {
		t.Errorf("debounce default lost: %v", cfg.Encoder.Debounce)
	}
	if cfg.PollInterval != 20*time.Millisecond {
		t.Errorf("pollInterval = %v", cfg.PollInterval)
	}
	if cfg.MQTT.Addr != "broker.local:1883" || cfg.MQTT.Topic != "ropemeasure/length" {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v", cfg.Level())
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"zero radius", "wheel: {radius: 0}", "wheel.radius"},
		{"zero ppr", "wheel: {pulsesPerRevolution: 0}", "pulsesPerRevolution"},
		{"narrow counter", "wheel: {counterBits: 4}", "counterBits"},
		{"tall display", "display: {height: 5}", "display.height"},
		{"short bus", "display: {data: [a, b, c, d]}", "8 pins"},
		{"bad level", "logLevel: loud", "logLevel"},
		{"unknown key", "wheels: {}", "wheels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meter.yaml")
	if err := os.WriteFile(path, []byte("wheel: {radius: 0.05}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Wheel.Radius != 0.05 {
		t.Errorf("radius = %v", cfg.Wheel.Radius)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}
