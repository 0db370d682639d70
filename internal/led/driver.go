package led

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcpixel/internal/color"
	"github.com/coreman2200/arcpixel/internal/diagnostics"
)

// Driver abstracts an LED output sink bound to one chip definition.
type Driver interface {
	Chip() Chip
	PixelCount() int
	// Show calibrates and encodes colors, then blocks until the frame is
	// written or the transport fails.
	Show(ctx context.Context, colors []color.Color, brightness float64, corr color.Correction) error
	// ShowAsync encodes synchronously and writes in the background. The
	// returned channel yields exactly one result.
	ShowAsync(ctx context.Context, colors []color.Color, brightness float64, corr color.Correction) <-chan error
	// Close releases resources.
	Close() error
}

// ByteSink is the transport of clocked chips.
type ByteSink interface {
	Send(ctx context.Context, p []byte) error
}

// PulseWriter is the transport of clockless chips: something able to emit a
// precisely timed pulse train.
type PulseWriter interface {
	SendPulses(ctx context.Context, p []Pulse) error
}

type options struct {
	bytes  []byte
	pulses []Pulse
}

type Option func(*options)

// WithBuffer supplies the clocked transmission buffer. Its capacity must be
// exactly FrameSize(chip, pixels).
func WithBuffer(b []byte) Option { return func(o *options) { o.bytes = b } }

// WithPulseBuffer supplies the clockless transmission buffer. Its capacity
// must be exactly FrameSize(chip, pixels).
func WithPulseBuffer(p []Pulse) Option { return func(o *options) { o.pulses = p } }

// frame is the state shared by both families. Each driver guards it with a
// lock held from encode until its write returns.
type frame struct {
	chip    Chip
	pixels  int
	idx     []int
	partial bool
}

func newFrame(op string, chip Chip, family Family, pixels int) (frame, error) {
	if err := chip.Validate(); err != nil {
		return frame{}, err
	}
	if chip.Family != family {
		return frame{}, diagnostics.Configf(op, "chip %s is %v", chip.Name, chip.Family)
	}
	if pixels < 0 {
		return frame{}, diagnostics.Configf(op, "negative pixel count %d", pixels)
	}
	return frame{chip: chip, pixels: pixels, idx: chip.channelIndex()}, nil
}

func (f *frame) check(colors []color.Color) error {
	if len(colors) != f.pixels {
		return diagnostics.Encodingf("led.Encode", "got %d colors, driver is configured for %d", len(colors), f.pixels)
	}
	return nil
}

// finish classifies a transport result and remembers cut-short frames.
// Clocked frames always open with the start marker; clockless drivers latch
// before the next frame when partial is set.
func (f *frame) finish(op string, err error) error {
	f.partial = err != nil
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return diagnostics.Transport(op, err)
}

func goAsync(write func() error) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- write() }()
	return ch
}

func failed(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	return ch
}

// ClockedDriver frames pixels for a two-wire chip and sends the bytes to a
// ByteSink.
type ClockedDriver struct {
	frame
	mu   sync.Mutex
	sink ByteSink
	buf  []byte
}

func NewClocked(chip Chip, pixels int, sink ByteSink, opts ...Option) (*ClockedDriver, error) {
	const op = "led.NewClocked"
	f, err := newFrame(op, chip, Clocked, pixels)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, diagnostics.Configf(op, "nil byte sink")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	size := FrameSize(chip, pixels)
	buf := o.bytes
	if buf == nil {
		buf = make([]byte, size)
	} else if cap(buf) != size {
		return nil, diagnostics.Configf(op, "buffer capacity %d, %s with %d pixels needs %d", cap(buf), chip.Name, pixels, size)
	}
	return &ClockedDriver{frame: f, sink: sink, buf: buf[:size]}, nil
}

func (d *ClockedDriver) Chip() Chip      { return d.chip }
func (d *ClockedDriver) PixelCount() int { return d.pixels }
func (d *ClockedDriver) FrameSize() int  { return len(d.buf) }

// Encode returns the driver's own buffer holding the frame. It stays valid
// until the next Encode.
func (d *ClockedDriver) Encode(colors []color.Color, brightness float64, corr color.Correction) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.encode(colors, brightness, corr)
}

func (d *ClockedDriver) encode(colors []color.Color, brightness float64, corr color.Correction) ([]byte, error) {
	if err := d.check(colors); err != nil {
		return nil, err
	}
	encodeClocked(d.buf, d.chip, d.idx, colors, brightness, corr)
	return d.buf, nil
}

// Write sends a complete frame from its first byte.
func (d *ClockedDriver) Write(ctx context.Context, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(ctx, p)
}

func (d *ClockedDriver) write(ctx context.Context, p []byte) error {
	if len(p) != len(d.buf) {
		return diagnostics.Encodingf("led.Write", "frame is %d bytes, expected %d", len(p), len(d.buf))
	}
	return d.finish("led.Write("+d.chip.Name+")", d.sink.Send(ctx, p))
}

func (d *ClockedDriver) WriteAsync(ctx context.Context, p []byte) <-chan error {
	d.mu.Lock()
	return goAsync(func() error {
		defer d.mu.Unlock()
		return d.write(ctx, p)
	})
}

func (d *ClockedDriver) Show(ctx context.Context, colors []color.Color, brightness float64, corr color.Correction) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, err := d.encode(colors, brightness, corr)
	if err != nil {
		return err
	}
	return d.write(ctx, buf)
}

func (d *ClockedDriver) ShowAsync(ctx context.Context, colors []color.Color, brightness float64, corr color.Correction) <-chan error {
	d.mu.Lock()
	buf, err := d.encode(colors, brightness, corr)
	if err != nil {
		d.mu.Unlock()
		return failed(err)
	}
	return goAsync(func() error {
		defer d.mu.Unlock()
		return d.write(ctx, buf)
	})
}

func (d *ClockedDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return closeTransport(d.sink)
}

// ClocklessDriver turns pixels into a pulse train for a one-wire chip.
type ClocklessDriver struct {
	frame
	mu    sync.Mutex
	out   PulseWriter
	buf   []Pulse
	latch []Pulse
}

func NewClockless(chip Chip, pixels int, out PulseWriter, opts ...Option) (*ClocklessDriver, error) {
	const op = "led.NewClockless"
	f, err := newFrame(op, chip, Clockless, pixels)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, diagnostics.Configf(op, "nil pulse writer")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	size := FrameSize(chip, pixels)
	buf := o.pulses
	if buf == nil {
		buf = make([]Pulse, size)
	} else if cap(buf) != size {
		return nil, diagnostics.Configf(op, "buffer capacity %d, %s with %d pixels needs %d", cap(buf), chip.Name, pixels, size)
	}
	return &ClocklessDriver{
		frame: f,
		out:   out,
		buf:   buf[:size],
		latch: []Pulse{{Low: chip.Timing.Reset}},
	}, nil
}

func (d *ClocklessDriver) Chip() Chip      { return d.chip }
func (d *ClocklessDriver) PixelCount() int { return d.pixels }
func (d *ClocklessDriver) FrameSize() int  { return len(d.buf) }

func (d *ClocklessDriver) Encode(colors []color.Color, brightness float64, corr color.Correction) ([]Pulse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.encode(colors, brightness, corr)
}

func (d *ClocklessDriver) encode(colors []color.Color, brightness float64, corr color.Correction) ([]Pulse, error) {
	if err := d.check(colors); err != nil {
		return nil, err
	}
	encodeClockless(d.buf, d.chip, d.idx, colors, brightness, corr)
	return d.buf, nil
}

func (d *ClocklessDriver) Write(ctx context.Context, p []Pulse) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(ctx, p)
}

func (d *ClocklessDriver) write(ctx context.Context, p []Pulse) error {
	if len(p) != len(d.buf) {
		return diagnostics.Encodingf("led.Write", "frame is %d pulses, expected %d", len(p), len(d.buf))
	}
	op := "led.Write(" + d.chip.Name + ")"
	if d.partial {
		// chips still holding the cut frame would shift the new one onto it
		log.Debug().Str("chip", d.chip.Name).Dur("reset", d.chip.Timing.Reset).Msg("latching after a cut frame")
		if err := d.out.SendPulses(ctx, d.latch); err != nil {
			return d.finish(op, err)
		}
	}
	return d.finish(op, d.out.SendPulses(ctx, p))
}

func (d *ClocklessDriver) WriteAsync(ctx context.Context, p []Pulse) <-chan error {
	d.mu.Lock()
	return goAsync(func() error {
		defer d.mu.Unlock()
		return d.write(ctx, p)
	})
}

func (d *ClocklessDriver) Show(ctx context.Context, colors []color.Color, brightness float64, corr color.Correction) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, err := d.encode(colors, brightness, corr)
	if err != nil {
		return err
	}
	return d.write(ctx, buf)
}

func (d *ClocklessDriver) ShowAsync(ctx context.Context, colors []color.Color, brightness float64, corr color.Correction) <-chan error {
	d.mu.Lock()
	buf, err := d.encode(colors, brightness, corr)
	if err != nil {
		d.mu.Unlock()
		return failed(err)
	}
	return goAsync(func() error {
		defer d.mu.Unlock()
		return d.write(ctx, buf)
	})
}

func (d *ClocklessDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return closeTransport(d.out)
}

func closeTransport(t any) error {
	if c, ok := t.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Open builds the driver matching the chip's family.
func Open(chip Chip, pixels int, sink ByteSink, pulses PulseWriter) (Driver, error) {
	if chip.Family == Clockless {
		d, err := NewClockless(chip, pixels, pulses)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	d, err := NewClocked(chip, pixels, sink)
	if err != nil {
		return nil, err
	}
	return d, nil
}
