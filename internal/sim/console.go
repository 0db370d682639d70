// Package sim implements LED drivers that render to a terminal or to
// websocket clients instead of hardware.
package sim

import (
	"context"
	"image"
	stdcolor "image/color"
	"sync"

	"periph.io/x/conn/v3/display"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/arcpixel/internal/color"
	"github.com/coreman2200/arcpixel/internal/diagnostics"
	"github.com/coreman2200/arcpixel/internal/led"
)

// Console draws each frame as one row of ANSI colored cells.
type Console struct {
	chip   led.Chip
	pixels int
	drawer display.Drawer

	mu     sync.Mutex
	img    *image.NRGBA
	closed bool
}

// NewConsole writes to the terminal through periph's screen device.
func NewConsole(chip led.Chip, pixels int) *Console {
	return NewConsoleDrawer(chip, pixels, screen.New(pixels))
}

// NewConsoleDrawer renders into any display.Drawer.
func NewConsoleDrawer(chip led.Chip, pixels int, d display.Drawer) *Console {
	return &Console{
		chip:   chip,
		pixels: pixels,
		drawer: d,
		img:    image.NewNRGBA(image.Rect(0, 0, pixels, 1)),
	}
}

func (c *Console) Chip() led.Chip  { return c.chip }
func (c *Console) PixelCount() int { return c.pixels }
func (c *Console) String() string  { return "console" }

// Image is the last frame drawn.
func (c *Console) Image() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.img
}

func (c *Console) Show(ctx context.Context, colors []color.Color, brightness float64, corr color.Correction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return diagnostics.ErrSimulationClosed
	}
	if len(colors) != c.pixels {
		return diagnostics.Encodingf("sim.Console", "got %d colors, console has %d", len(colors), c.pixels)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, col := range colors {
		r, g, b := color.Calibrate(col, brightness, corr).RGB255()
		c.img.SetNRGBA(i, 0, stdcolor.NRGBA{R: r, G: g, B: b, A: 0xFF})
	}
	if err := c.drawer.Draw(c.drawer.Bounds(), c.img, image.Point{}); err != nil {
		return diagnostics.Transport("sim.Console", err)
	}
	return nil
}

func (c *Console) ShowAsync(ctx context.Context, colors []color.Color, brightness float64, corr color.Correction) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- c.Show(ctx, colors, brightness, corr) }()
	return ch
}

func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.drawer.Halt()
}
