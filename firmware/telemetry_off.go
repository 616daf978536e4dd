//go:build tinygo && !wifi

package main

import (
	"log/slog"

	"github.com/harveysanders/ropemeasure/mqtt"
)

func startTelemetry(logger *slog.Logger) []chan<- mqtt.Reading {
	logger.Info("telemetry:disabled")
	return nil
}
