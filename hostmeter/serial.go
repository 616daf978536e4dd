package main

import (
	"context"
	"fmt"
	"io"

	"github.com/harveysanders/ropemeasure/config"
	"github.com/harveysanders/ropemeasure/length"
	"github.com/harveysanders/ropemeasure/mqtt"
	"go.bug.st/serial"
)

// mirrorSerial writes every reading to a serial port as a "0.126 m" line.
func mirrorSerial(ctx context.Context, cfg config.Serial, readings <-chan mqtt.Reading) error {
	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Port, err)
	}
	defer port.Close()
	return writeReadings(ctx, port, readings)
}

func writeReadings(ctx context.Context, w io.Writer, readings <-chan mqtt.Reading) error {
	buf := make([]byte, 0, 32)
	for {
		select {
		case <-ctx.Done():
			return nil
		case r := <-readings:
			buf = length.AppendMeters(buf[:0], r.Length)
			buf = append(buf, '\r', '\n')
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
	}
}
