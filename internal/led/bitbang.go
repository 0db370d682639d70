package led

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Delay waits for roughly d. Tests swap in a no-op.
type Delay func(d time.Duration)

// SpinDelay busy-waits, which keeps sub-microsecond edges closer to d than
// time.Sleep can.
func SpinDelay(d time.Duration) {
	if d <= 0 {
		return
	}
	end := time.Now().Add(d)
	for time.Now().Before(end) {
	}
}

// BitBangSink clocks bytes out on two GPIO lines, most significant bit
// first, data sampled on the rising clock edge.
type BitBangSink struct {
	data, clock gpio.PinOut
	half        time.Duration
	delay       Delay
}

func NewBitBangSink(data, clock gpio.PinOut, half time.Duration, delay Delay) (*BitBangSink, error) {
	if data == nil || clock == nil {
		return nil, fmt.Errorf("bitbang: data and clock pins are required")
	}
	if delay == nil {
		delay = SpinDelay
	}
	if err := clock.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("bitbang clock %s: %w", clock, err)
	}
	return &BitBangSink{data: data, clock: clock, half: half, delay: delay}, nil
}

// OpenBitBang looks both pins up in the periph registry.
func OpenBitBang(data, clock string, half time.Duration) (*BitBangSink, error) {
	d := gpioreg.ByName(data)
	if d == nil {
		return nil, fmt.Errorf("bitbang: no data pin %q", data)
	}
	c := gpioreg.ByName(clock)
	if c == nil {
		return nil, fmt.Errorf("bitbang: no clock pin %q", clock)
	}
	return NewBitBangSink(d, c, half, nil)
}

func (s *BitBangSink) String() string { return fmt.Sprintf("bitbang:%s/%s", s.data, s.clock) }

// Send checks ctx between bytes.
func (s *BitBangSink) Send(ctx context.Context, p []byte) error {
	for i, b := range p {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("bitbang write stopped at %d of %d bytes: %w", i, len(p), err)
		}
		for bit := 7; bit >= 0; bit-- {
			if err := s.data.Out(gpio.Level(b&(1<<bit) != 0)); err != nil {
				return fmt.Errorf("bitbang data: %w", err)
			}
			s.delay(s.half)
			if err := s.clock.Out(gpio.High); err != nil {
				return fmt.Errorf("bitbang clock: %w", err)
			}
			s.delay(s.half)
			if err := s.clock.Out(gpio.Low); err != nil {
				return fmt.Errorf("bitbang clock: %w", err)
			}
		}
	}
	return nil
}

// DelayPulser drives a one-wire chip from a single GPIO line. Without a
// real-time kernel the edges jitter; prefer SPIPulser or NRZPulser.
type DelayPulser struct {
	pin   gpio.PinOut
	delay Delay
}

func NewDelayPulser(pin gpio.PinOut, delay Delay) (*DelayPulser, error) {
	if pin == nil {
		return nil, fmt.Errorf("delay pulser: pin is required")
	}
	if delay == nil {
		delay = SpinDelay
	}
	return &DelayPulser{pin: pin, delay: delay}, nil
}

// OpenDelayPulser looks the pin up in the periph registry.
func OpenDelayPulser(name string) (*DelayPulser, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("delay pulser: no pin %q", name)
	}
	return NewDelayPulser(p, nil)
}

// SendPulses never stops mid-pulse; ctx is checked every 8 pulses.
func (d *DelayPulser) SendPulses(ctx context.Context, p []Pulse) error {
	for i, pl := range p {
		if i%8 == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("pulse write stopped at %d of %d: %w", i, len(p), err)
			}
		}
		if pl.High > 0 {
			if err := d.pin.Out(gpio.High); err != nil {
				return fmt.Errorf("pulse out: %w", err)
			}
			d.delay(pl.High)
		}
		if err := d.pin.Out(gpio.Low); err != nil {
			return fmt.Errorf("pulse out: %w", err)
		}
		d.delay(pl.Low)
	}
	return nil
}
