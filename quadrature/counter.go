package quadrature

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
)

const edgeTimeout = 100 * time.Millisecond

// Counter is a free running 32-bit software pulse counter, standing in for
// a hardware timer in encoder mode. Count may be called from any goroutine.
type Counter struct {
	mu    sync.Mutex
	dec   Decoder
	count atomic.Uint32
}

// Count returns the raw counter value. It wraps at 32 bits.
func (c *Counter) Count() uint32 {
	return c.count.Load()
}

// Reset seeds the decoder with the current channel levels.
func (c *Counter) Reset(a, b gpio.Level) {
	c.mu.Lock()
	c.dec.Reset(a, b)
	c.mu.Unlock()
}

// Step feeds the current channel levels to the decoder.
func (c *Counter) Step(a, b gpio.Level) {
	c.mu.Lock()
	d := c.dec.Update(a, b)
	c.mu.Unlock()
	if d != 0 {
		c.count.Add(uint32(int32(d)))
	}
}

// Invalid returns the number of lost steps.
func (c *Counter) Invalid() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dec.Invalid()
}

// Watch counts edges on a and b until ctx is done. Both pins must already be
// configured as inputs with edge detection on both edges.
func (c *Counter) Watch(ctx context.Context, a, b gpio.PinIn) {
	c.Reset(a.Read(), b.Read())

	var wg sync.WaitGroup
	for _, pin := range []gpio.PinIn{a, b} {
		wg.Add(1)
		go func(pin gpio.PinIn) {
			defer wg.Done()
			for ctx.Err() == nil {
				if !pin.WaitForEdge(edgeTimeout) {
					continue
				}
				c.mu.Lock()
				d := c.dec.Update(a.Read(), b.Read())
				c.mu.Unlock()
				if d != 0 {
					c.count.Add(uint32(int32(d)))
				}
			}
		}(pin)
	}
	wg.Wait()
}
