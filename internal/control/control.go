// Package control drives one frame per tick: evaluate the pattern at every
// layout position, then hand the colors to the LED driver.
package control

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coreman2200/arcpixel/internal/color"
	"github.com/coreman2200/arcpixel/internal/diagnostics"
	"github.com/coreman2200/arcpixel/internal/layout"
	"github.com/coreman2200/arcpixel/internal/led"
	"github.com/coreman2200/arcpixel/internal/pattern"
)

// ErrTickInProgress is returned when a tick starts before the previous one
// has finished.
var ErrTickInProgress = errors.New("tick in progress")

type Option func(*Control)

func WithBrightness(v float64) Option { return func(c *Control) { c.brightness = clampBrightness(v) } }

func WithCorrection(corr color.Correction) Option { return func(c *Control) { c.corr = corr } }

// Control owns the pixel buffer and the parameters applied at each tick.
type Control struct {
	layout *layout.Layout
	driver led.Driver
	pixels []color.Color

	mu         sync.RWMutex
	pattern    pattern.Pattern
	brightness float64
	corr       color.Correction

	busy atomic.Bool
}

func New(l *layout.Layout, p pattern.Pattern, d led.Driver, opts ...Option) (*Control, error) {
	const op = "control.New"
	if l == nil || p == nil || d == nil {
		return nil, diagnostics.Configf(op, "layout, pattern and driver are required")
	}
	if l.Len() != d.PixelCount() {
		return nil, diagnostics.Configf(op, "layout has %d pixels, driver %s has %d", l.Len(), d.Chip().Name, d.PixelCount())
	}
	c := &Control{
		layout:     l,
		driver:     d,
		pixels:     make([]color.Color, l.Len()),
		pattern:    p,
		brightness: 1,
		corr:       color.Identity,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Control) Layout() *layout.Layout { return c.layout }
func (c *Control) Driver() led.Driver     { return c.driver }

func (c *Control) Brightness() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.brightness
}

// SetBrightness clamps v to [0, 1]; NaN turns the output off.
func (c *Control) SetBrightness(v float64) {
	c.mu.Lock()
	c.brightness = clampBrightness(v)
	c.mu.Unlock()
}

func (c *Control) Correction() color.Correction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.corr
}

func (c *Control) SetCorrection(corr color.Correction) {
	c.mu.Lock()
	c.corr = corr
	c.mu.Unlock()
}

func (c *Control) Pattern() pattern.Pattern {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pattern
}

// SetPattern ignores nil.
func (c *Control) SetPattern(p pattern.Pattern) {
	if p == nil {
		return
	}
	c.mu.Lock()
	c.pattern = p
	c.mu.Unlock()
}

func clampBrightness(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// Pixels is the buffer filled by the last tick. Read it only between ticks.
func (c *Control) Pixels() []color.Color { return c.pixels }

func (c *Control) render(elapsed time.Duration) (float64, color.Correction) {
	c.mu.RLock()
	p, b, corr := c.pattern, c.brightness, c.corr
	c.mu.RUnlock()
	pattern.Fill(c.pixels, p, c.layout.Positions(), elapsed)
	return b, corr
}

// Tick renders the frame for elapsed and blocks until the driver has
// written it. Errors are returned as is; there are no retries.
func (c *Control) Tick(ctx context.Context, elapsed time.Duration) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrTickInProgress
	}
	defer c.busy.Store(false)
	b, corr := c.render(elapsed)
	return c.driver.Show(ctx, c.pixels, b, corr)
}

// TickAsync renders synchronously and writes in the background. The tick
// counts as in progress until the result is delivered on the channel.
func (c *Control) TickAsync(ctx context.Context, elapsed time.Duration) <-chan error {
	out := make(chan error, 1)
	if !c.busy.CompareAndSwap(false, true) {
		out <- ErrTickInProgress
		return out
	}
	b, corr := c.render(elapsed)
	res := c.driver.ShowAsync(ctx, c.pixels, b, corr)
	go func() {
		err := <-res
		c.busy.Store(false)
		out <- err
	}()
	return out
}
