package led

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.bug.st/serial"

	"github.com/coreman2200/arcpixel/internal/diagnostics"
)

// BridgeHeader prefixes each frame for microcontroller pixel bridges that
// resync on a magic sequence.
var BridgeHeader = []byte{0x2A, 0xEE, 0x02}

// StreamSink writes frames to any io.Writer, optionally prefixed by a header.
type StreamSink struct {
	w      io.Writer
	header []byte
	chunk  int
}

func NewStreamSink(w io.Writer, header []byte) *StreamSink {
	return &StreamSink{w: w, header: header, chunk: DefaultChunk}
}

// Send writes the header and then p in chunks, checking ctx between writes.
func (s *StreamSink) Send(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.header) > 0 {
		if _, err := s.w.Write(s.header); err != nil {
			return fmt.Errorf("stream header: %w", err)
		}
	}
	for off := 0; off < len(p); off += s.chunk {
		if off > 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("stream write stopped at %d of %d bytes: %w", off, len(p), err)
			}
		}
		end := min(off+s.chunk, len(p))
		if _, err := s.w.Write(p[off:end]); err != nil {
			return fmt.Errorf("stream write: %w", err)
		}
	}
	return nil
}

func (s *StreamSink) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// DefaultBaud is the link speed of the stock bridge firmware.
const DefaultBaud = 115200

// PortOptions describes the serial link to a pixel bridge. Zero fields take
// the 8N1 defaults at DefaultBaud.
type PortOptions struct {
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
	// Framed prefixes every frame with BridgeHeader.
	Framed bool `yaml:"framed"`
}

var parities = map[string]serial.Parity{
	"":      serial.NoParity,
	"n":     serial.NoParity,
	"none":  serial.NoParity,
	"e":     serial.EvenParity,
	"even":  serial.EvenParity,
	"o":     serial.OddParity,
	"odd":   serial.OddParity,
	"m":     serial.MarkParity,
	"mark":  serial.MarkParity,
	"s":     serial.SpaceParity,
	"space": serial.SpaceParity,
}

var stopBits = map[int]serial.StopBits{
	0: serial.OneStopBit,
	1: serial.OneStopBit,
	2: serial.TwoStopBits,
}

// SerialMode checks the options and converts them for serial.Open.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	const op = "serial port"
	mode := &serial.Mode{BaudRate: o.BaudRate, DataBits: o.DataBits}
	if mode.BaudRate <= 0 {
		mode.BaudRate = DefaultBaud
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}
	if mode.DataBits < 5 || mode.DataBits > 8 {
		return nil, diagnostics.Configf(op, "%d data bits, want 5 to 8", o.DataBits)
	}
	sb, ok := stopBits[o.StopBits]
	if !ok {
		return nil, diagnostics.Configf(op, "%d stop bits, want 1 or 2", o.StopBits)
	}
	mode.StopBits = sb
	par, ok := parities[strings.ToLower(strings.TrimSpace(o.Parity))]
	if !ok {
		return nil, diagnostics.Configf(op, "unknown parity %q", o.Parity)
	}
	mode.Parity = par
	return mode, nil
}

// OpenSerial opens a serial pixel bridge at path.
func OpenSerial(path string, opts PortOptions) (*StreamSink, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, fmt.Errorf("serial %s: %w", path, err)
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("serial %s: %w", path, err)
	}
	var header []byte
	if opts.Framed {
		header = BridgeHeader
	}
	return NewStreamSink(port, header), nil
}
