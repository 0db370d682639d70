package led

import (
	"context"
	"fmt"
	"strings"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"

	"github.com/coreman2200/arcpixel/internal/diagnostics"
)

// SPIPulser renders pulses as SPI bit cells: every high and low period is
// rounded to a whole number of cells of one clock period. At 2.4MHz a
// WS2812 zero is 100 and a one is 110. Every transfer opens with LeadBytes
// of low cells, since MOSI may idle high while the bus is set up.
type SPIPulser struct {
	sink   *SPISink
	period time.Duration
	buf    []byte
}

// NewSPIPulser checks the chip timing can be met at f and sizes the output
// buffer for pixels LEDs.
func NewSPIPulser(p spi.Port, f physic.Frequency, chip Chip, pixels int) (*SPIPulser, error) {
	period, err := cellPeriod(chip, f)
	if err != nil {
		return nil, err
	}
	sink, err := NewSPISink(p, f)
	if err != nil {
		return nil, err
	}
	return newSPIPulser(sink, period, chip, pixels), nil
}

// OpenSPIPulser opens the port by name and owns it.
func OpenSPIPulser(name string, f physic.Frequency, chip Chip, pixels int) (*SPIPulser, error) {
	period, err := cellPeriod(chip, f)
	if err != nil {
		return nil, err
	}
	sink, err := OpenSPI(name, f)
	if err != nil {
		return nil, err
	}
	return newSPIPulser(sink, period, chip, pixels), nil
}

// LeadBytes is the low pad in front of every SPIPulser transfer.
const LeadBytes = 3

func newSPIPulser(sink *SPISink, period time.Duration, chip Chip, pixels int) *SPIPulser {
	t := chip.Timing
	bitCells := max(cells(t.T0H, period)+cells(t.T0L, period), cells(t.T1H, period)+cells(t.T1L, period))
	total := pixels*chip.Channels()*8*bitCells + resetCells(t.Reset, period)
	return &SPIPulser{sink: sink, period: period, buf: make([]byte, LeadBytes+(total+7)/8)}
}

func cellPeriod(chip Chip, f physic.Frequency) (time.Duration, error) {
	const op = "led.NewSPIPulser"
	if chip.Family != Clockless {
		return 0, diagnostics.Configf(op, "chip %s is not clockless", chip.Name)
	}
	if f <= 0 {
		return 0, diagnostics.Configf(op, "invalid frequency %s", f)
	}
	period := f.Period()
	if period <= 0 {
		return 0, diagnostics.Configf(op, "frequency %s is too high", f)
	}
	t := chip.Timing
	for _, d := range []time.Duration{t.T0H, t.T0L, t.T1H, t.T1L} {
		n := cells(d, period)
		got := time.Duration(n) * period
		if n == 0 || absDuration(got-d) > t.Tolerance {
			return 0, diagnostics.Configf(op, "%s: %v is %v at %s, tolerance %v", chip.Name, d, got, f, t.Tolerance)
		}
	}
	if cells(t.T0H, period) >= cells(t.T1H, period) {
		return 0, diagnostics.Configf(op, "%s: zero and one are indistinguishable at %s", chip.Name, f)
	}
	return period, nil
}

// CheckSPIPulser reports whether chip timing can be met with SPI cells at f.
func CheckSPIPulser(chip Chip, f physic.Frequency) error {
	_, err := cellPeriod(chip, f)
	return err
}

var pulserFrequencies = []physic.Frequency{
	2400 * physic.KiloHertz,
	3333 * physic.KiloHertz,
	4 * physic.MegaHertz,
	5 * physic.MegaHertz,
}

// PulserFrequency is the slowest common SPI clock that meets chip timing.
// WS2812 gets 2.4MHz and SK6812 3.333MHz.
func PulserFrequency(chip Chip) (physic.Frequency, error) {
	for _, f := range pulserFrequencies {
		if CheckSPIPulser(chip, f) == nil {
			return f, nil
		}
	}
	return 0, diagnostics.Configf("led.PulserFrequency", "no SPI clock meets %s timing", chip.Name)
}

func cells(d, period time.Duration) int {
	return int((d + period/2) / period)
}

func resetCells(d, period time.Duration) int {
	return int((d + period - 1) / period)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Render packs p into the internal buffer and returns the used prefix.
// Pulses without a high period are resets and round up.
func (s *SPIPulser) Render(p []Pulse) ([]byte, error) {
	bit := LeadBytes * 8
	put := func(n int, high bool) error {
		if bit+n > len(s.buf)*8 {
			return diagnostics.Encodingf("led.SPIPulser", "pulse train exceeds %d bytes", len(s.buf))
		}
		for i := 0; i < n; i++ {
			mask := byte(0x80) >> (bit % 8)
			if high {
				s.buf[bit/8] |= mask
			} else {
				s.buf[bit/8] &^= mask
			}
			bit++
		}
		return nil
	}
	for _, pl := range p {
		if err := put(cells(pl.High, s.period), true); err != nil {
			return nil, err
		}
		n := cells(pl.Low, s.period)
		if pl.High == 0 {
			n = resetCells(pl.Low, s.period)
		}
		if err := put(n, false); err != nil {
			return nil, err
		}
	}
	used := (bit + 7) / 8
	if bit%8 != 0 {
		s.buf[used-1] &^= 0xFF >> (bit % 8)
	}
	return s.buf[:used], nil
}

func (s *SPIPulser) SendPulses(ctx context.Context, p []Pulse) error {
	b, err := s.Render(p)
	if err != nil {
		return err
	}
	return s.sink.Send(ctx, b)
}

func (s *SPIPulser) Close() error { return s.sink.Close() }

// NRZFrequency is the only SPI clock nrzled accepts.
const NRZFrequency = 2500 * physic.KiloHertz

// NRZPulser hands the pulse train to periph's nrzled driver, which
// regenerates the waveform itself. Pulses are folded back into bytes by
// comparing each high period to the midpoint of the chip's two symbols,
// then reordered to the RGB input nrzled expects. nrzled always emits GRB,
// so only three-channel GRB chips are accepted.
type NRZPulser struct {
	dev       *nrzled.Dev
	port      spi.PortCloser
	threshold time.Duration
	rgbIndex  [3]int
	buf       []byte
	wait      func(ctx context.Context, d time.Duration) error
}

// CheckNRZ reports whether nrzled can drive chip at f.
func CheckNRZ(chip Chip, f physic.Frequency) error {
	const op = "led.NewNRZPulser"
	if chip.Family != Clockless {
		return diagnostics.Configf(op, "chip %s is not clockless", chip.Name)
	}
	if chip.Order != "GRB" {
		return diagnostics.Configf(op, "nrzled only emits GRB, chip %s is %s", chip.Name, chip.Order)
	}
	if f != NRZFrequency {
		return diagnostics.Configf(op, "nrzled runs at %s, got %s", NRZFrequency, f)
	}
	return nil
}

func NewNRZPulser(p spi.Port, f physic.Frequency, chip Chip, pixels int) (*NRZPulser, error) {
	if err := CheckNRZ(chip, f); err != nil {
		return nil, err
	}
	dev, err := nrzled.NewSPI(p, &nrzled.Opts{NumPixels: pixels, Channels: 3, Freq: f})
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	return newNRZPulser(dev, chip, pixels), nil
}

func newNRZPulser(dev *nrzled.Dev, chip Chip, pixels int) *NRZPulser {
	n := &NRZPulser{
		dev:       dev,
		threshold: (chip.Timing.T0H + chip.Timing.T1H) / 2,
		buf:       make([]byte, pixels*3),
		wait:      waitLow,
	}
	for i := 0; i < 3; i++ {
		n.rgbIndex[i] = strings.IndexByte("RGB", chip.Order[i])
	}
	return n
}

// waitLow holds the line idle for d. nrzled leaves MOSI low after a frame.
func waitLow(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func OpenNRZPulser(name string, f physic.Frequency, chip Chip, pixels int) (*NRZPulser, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", name, err)
	}
	n, err := NewNRZPulser(p, f, chip, pixels)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	n.port = p
	return n, nil
}

// Pack folds data pulses into RGB bytes, most significant bit first.
func (n *NRZPulser) Pack(p []Pulse) ([]byte, error) {
	bit := 0
	for _, pl := range p {
		if pl.High == 0 {
			continue
		}
		if bit/8 >= len(n.buf) {
			return nil, diagnostics.Encodingf("led.NRZPulser", "pulse train exceeds %d bytes", len(n.buf))
		}
		wire := bit / 8
		i := wire - wire%3 + n.rgbIndex[wire%3]
		mask := byte(0x80) >> (bit % 8)
		if pl.High >= n.threshold {
			n.buf[i] |= mask
		} else {
			n.buf[i] &^= mask
		}
		bit++
	}
	if bit != len(n.buf)*8 {
		return nil, diagnostics.Encodingf("led.NRZPulser", "got %d data bits, expected %d", bit, len(n.buf)*8)
	}
	return n.buf, nil
}

// SendPulses writes one frame. A train of resets only, as sent to latch
// after a cut frame, holds the line low for its duration instead.
func (n *NRZPulser) SendPulses(ctx context.Context, p []Pulse) error {
	if low, ok := resetOnly(p); ok {
		return n.wait(ctx, low)
	}
	b, err := n.Pack(p)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.dev.Write(b); err != nil {
		return fmt.Errorf("nrzled write: %w", err)
	}
	return nil
}

func resetOnly(p []Pulse) (time.Duration, bool) {
	var low time.Duration
	for _, pl := range p {
		if pl.High != 0 {
			return 0, false
		}
		low += pl.Low
	}
	return low, len(p) > 0
}

func (n *NRZPulser) Close() error {
	err := n.dev.Halt()
	if n.port != nil {
		if cerr := n.port.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
