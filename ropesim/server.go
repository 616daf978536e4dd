package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/harveysanders/ropemeasure/meter"
	"github.com/harveysanders/ropemeasure/mqtt"
	"github.com/harveysanders/ropemeasure/sim"
)

// server exposes the simulated meter over HTTP.
type server struct {
	lcd    *sim.LCD
	reset  *meter.ResetFlag
	wheel  *wheel
	logger *slog.Logger

	mu      sync.Mutex
	reading mqtt.Reading
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /lcd.png", s.handleLCD)
	mux.HandleFunc("GET /reading", s.handleReading)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("POST /reverse", s.handleReverse)
	mux.HandleFunc("POST /pause", s.handlePause)
	return mux
}

// collect keeps the latest reading until ctx is done.
func (s *server) collect(ctx context.Context, readings <-chan mqtt.Reading) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-readings:
			s.mu.Lock()
			s.reading = r
			s.mu.Unlock()
		}
	}
}

func (s *server) handleLCD(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.lcd.EncodePNG(w); err != nil {
		s.logger.Error("http:lcd-encode-failed", slog.Any("reason", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (s *server) handleReading(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	reading := s.reading
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reading); err != nil {
		s.logger.Error("http:reading-encode-failed", slog.Any("reason", err))
	}
}

func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.reset.Request()
	s.logger.Info("http:reset-requested")
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleReverse(w http.ResponseWriter, r *http.Request) {
	reversed := !s.wheel.reverse.Load()
	s.wheel.reverse.Store(reversed)
	s.logger.Info("http:reverse", slog.Bool("reversed", reversed))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handlePause(w http.ResponseWriter, r *http.Request) {
	paused := !s.wheel.paused.Load()
	s.wheel.paused.Store(paused)
	s.logger.Info("http:pause", slog.Bool("paused", paused))
	w.WriteHeader(http.StatusNoContent)
}
