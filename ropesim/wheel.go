package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/harveysanders/ropemeasure/quadrature"
	"periph.io/x/conn/v3/gpio"
)

// grayCode is one electrical cycle of the encoder, counting up.
var grayCode = [4][2]gpio.Level{
	{gpio.Low, gpio.Low},
	{gpio.High, gpio.Low},
	{gpio.High, gpio.High},
	{gpio.Low, gpio.High},
}

// wheel is a simulated measuring wheel feeding A/B levels to a counter.
type wheel struct {
	counter *quadrature.Counter
	phase   int
	carry   float64

	reverse atomic.Bool
	paused  atomic.Bool
}

func newWheel(counter *quadrature.Counter) *wheel {
	counter.Reset(grayCode[0][0], grayCode[0][1])
	return &wheel{counter: counter}
}

// advance moves the wheel n steps in the current direction.
func (w *wheel) advance(n int) {
	for range n {
		if w.reverse.Load() {
			w.phase = (w.phase + 3) % 4
		} else {
			w.phase = (w.phase + 1) % 4
		}
		lv := grayCode[w.phase]
		w.counter.Step(lv[0], lv[1])
	}
}

// turn advances the wheel at stepsPerSecond until ctx is done.
func (w *wheel) turn(ctx context.Context, stepsPerSecond float64, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.paused.Load() {
				continue
			}
			w.carry += stepsPerSecond * tick.Seconds()
			n := int(w.carry)
			w.carry -= float64(n)
			w.advance(n)
		}
	}
}
