//go:build tinygo && wifi

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/harveysanders/ropemeasure/mqtt"
	"github.com/harveysanders/ropemeasure/wifi"
)

// startTelemetry joins WiFi in the background and publishes readings to the
// broker set at link time.
func startTelemetry(logger *slog.Logger) []chan<- mqtt.Reading {
	// Buffered so the meter never waits on the network.
	readings := make(chan mqtt.Reading, 10)
	go func() {
		stack, err := wifi.Up(wifi.Config{
			SSID:     wifi.SSID(),
			Password: wifi.Password(),
			Hostname: "ropemeasure",
			Logger:   logger,
		})
		if err != nil {
			logger.Error("wifi:up-failed", slog.Any("reason", err))
			return
		}

		c := mqtt.Client{
			ID:                "ropemeasure-pico",
			Logger:            logger,
			Timeout:           5 * time.Second,
			HeartbeatInterval: 30 * time.Second,
		}
		// 2030 = MTU - ethhdr - iphdr - tcphdr
		dialer := wifi.NewDialer(stack, wifi.Broker(), 2030)
		err = c.Run(context.Background(), dialer, readings)
		logger.Error("mqtt:stopped", slog.Any("reason", err))
	}()
	return []chan<- mqtt.Reading{readings}
}
