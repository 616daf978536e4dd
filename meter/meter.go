// Package meter runs the measuring loop: it samples the encoder counter,
// accumulates the pulses into a length and keeps the display and telemetry
// up to date.
package meter

import (
	"context"
	"log/slog"
	"time"

	"github.com/harveysanders/ropemeasure/lcd"
	"github.com/harveysanders/ropemeasure/length"
	"github.com/harveysanders/ropemeasure/mqtt"
	"github.com/harveysanders/ropemeasure/quadrature"
)

// DefaultTitle is shown on the first row of the display.
const DefaultTitle = "Rope Measurer"

// Counter is a free running encoder pulse counter.
type Counter interface {
	Count() uint32
}

// Indicator shows the current direction of rotation, usually with an LED.
type Indicator interface {
	Indicate(d quadrature.Direction)
}

// IndicatorFunc adapts a function to the Indicator interface.
type IndicatorFunc func(d quadrature.Direction)

func (f IndicatorFunc) Indicate(d quadrature.Direction) { f(d) }

type Config struct {
	// Radius of the measuring wheel in meters.
	Radius              float64
	PulsesPerRevolution uint32
	// CounterBits is the width of the hardware counter. Defaults to 32.
	CounterBits uint
	Title       string
	// PollInterval defaults to 10ms.
	PollInterval time.Duration
	// PublishInterval is the minimum time between two readings sent on
	// Options.Readings. Zero sends on every change.
	PublishInterval time.Duration
}

// Options are the optional collaborators of a Meter.
type Options struct {
	Reset     *ResetFlag
	Indicator Indicator
	// Readings receive a sample on every published change. Sends never
	// block; a full channel drops the sample.
	Readings []chan<- mqtt.Reading
	Logger   *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Meter owns the length accumulator and the display for the lifetime of
// the loop. Only ResetFlag may be touched from other goroutines.
type Meter struct {
	cfg       Config
	counter   Counter
	panel     *lcd.Panel
	length    *length.Accumulator
	reset     *ResetFlag
	indicator Indicator
	readings  []chan<- mqtt.Reading
	logger    *slog.Logger
	now       func() time.Time

	lengthRow   int
	last        uint32
	direction   quadrature.Direction
	buf         []byte
	start       time.Time
	lastPublish time.Time
	pending     bool
	dropped     uint32
}

// New creates a Meter drawing on panel. Call Start, or Run, before Step.
func New(cfg Config, counter Counter, panel *lcd.Panel, opts Options) *Meter {
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}
	if opts.Reset == nil {
		opts.Reset = &ResetFlag{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Meter{
		cfg:       cfg,
		counter:   counter,
		panel:     panel,
		length:    length.New(cfg.Radius, cfg.PulsesPerRevolution),
		reset:     opts.Reset,
		indicator: opts.Indicator,
		readings:  opts.Readings,
		logger:    opts.Logger,
		now:       opts.Now,
		buf:       make([]byte, 0, 24),
	}
	if panel.Rows() > 1 {
		m.lengthRow = 1
	}
	return m
}

// Start takes the current counter value as the zero point and draws the
// whole screen.
func (m *Meter) Start() {
	m.start = m.now()
	m.last = m.counter.Count()
	m.panel.Invalidate()
	if m.lengthRow > 0 {
		if err := m.panel.SetLine(0, []byte(m.cfg.Title)); err != nil {
			m.logger.Warn("meter:display-failed", slog.Int("row", 0), slog.Any("reason", err))
		}
	}
	m.drawLength()
	m.logger.Info("meter:started",
		slog.Float64("radius", m.cfg.Radius),
		slog.Uint64("ppr", uint64(m.cfg.PulsesPerRevolution)),
	)
}

// Step runs one iteration of the loop and reports whether the length
// changed.
func (m *Meter) Step() bool {
	changed := false

	reset := m.reset.Take()
	if reset {
		m.length.Reset()
		m.last = m.counter.Count()
		changed = true
		m.logger.Info("meter:reset")
	}

	cur := m.counter.Count()
	if cur != m.last {
		delta := quadrature.Delta(m.last, cur, m.cfg.CounterBits)
		m.last = cur
		m.length.UpdateWithDifference(delta)
		if dir := quadrature.DirectionOf(delta); dir != quadrature.Idle && dir != m.direction {
			m.direction = dir
			if m.indicator != nil {
				m.indicator.Indicate(dir)
			}
		}
		changed = true
	}

	if changed {
		m.drawLength()
		m.pending = true
	}
	m.publish(reset)
	return changed
}

// Run calls Start and then Step every poll interval until ctx is done.
func (m *Meter) Run(ctx context.Context) error {
	m.Start()
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Step()
		}
	}
}

// Length returns the measured length in meters.
func (m *Meter) Length() float64 { return m.length.Length() }

// Position returns the accumulated pulse count.
func (m *Meter) Position() int64 { return m.length.Position() }

// Direction returns the direction of the last movement.
func (m *Meter) Direction() quadrature.Direction { return m.direction }

// Dropped returns how many readings were lost to full channels.
func (m *Meter) Dropped() uint32 { return m.dropped }

func (m *Meter) drawLength() {
	m.buf = length.AppendMeters(m.buf[:0], m.length.Length())
	if err := m.panel.SetLine(m.lengthRow, m.buf); err != nil {
		m.logger.Warn("meter:display-failed", slog.Int("row", m.lengthRow), slog.Any("reason", err))
	}
}

func (m *Meter) publish(force bool) {
	if !m.pending || len(m.readings) == 0 {
		return
	}
	now := m.now()
	if !force && now.Sub(m.lastPublish) < m.cfg.PublishInterval {
		return
	}
	m.lastPublish = now
	m.pending = false

	r := mqtt.Reading{
		Length:      m.length.Length(),
		Pulses:      m.length.Position(),
		Revolutions: m.length.Revolutions(),
		Direction:   m.direction.String(),
		Reset:       force,
		SinceBoot:   now.Sub(m.start),
	}
	for _, ch := range m.readings {
		select {
		case ch <- r:
		default:
			m.dropped++
		}
	}
}
