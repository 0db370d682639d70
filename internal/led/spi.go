package led

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// DefaultChunk matches the default spidev bufsiz.
const DefaultChunk = 4096

// SPISink writes clocked frames over a SPI bus (MOSI = data, SCLK = clock).
type SPISink struct {
	conn  spi.Conn
	port  spi.PortCloser
	chunk int
}

// NewSPISink connects to p in mode 0 with 8-bit words. The caller keeps
// ownership of p.
func NewSPISink(p spi.Port, f physic.Frequency) (*SPISink, error) {
	c, err := p.Connect(f, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("spi connect %s: %w", p, err)
	}
	chunk := DefaultChunk
	if l, ok := c.(conn.Limits); ok && l.MaxTxSize() > 0 {
		chunk = l.MaxTxSize()
	}
	return &SPISink{conn: c, chunk: chunk}, nil
}

// OpenSPI opens a port by name from the periph registry; "" picks the first.
func OpenSPI(name string, f physic.Frequency) (*SPISink, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", name, err)
	}
	s, err := NewSPISink(p, f)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	s.port = p
	return s, nil
}

// SetChunk caps the bytes per transaction.
func (s *SPISink) SetChunk(n int) {
	if n > 0 {
		s.chunk = n
	}
}

func (s *SPISink) String() string { return "spi:" + s.conn.String() }

// Send transmits p in chunks and stops between chunks once ctx is done.
func (s *SPISink) Send(ctx context.Context, p []byte) error {
	for off := 0; off < len(p); off += s.chunk {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("spi write stopped at %d of %d bytes: %w", off, len(p), err)
		}
		end := min(off+s.chunk, len(p))
		if err := s.conn.Tx(p[off:end], nil); err != nil {
			return fmt.Errorf("spi tx: %w", err)
		}
	}
	return nil
}

func (s *SPISink) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}
