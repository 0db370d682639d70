package led

import (
	"fmt"
	"strings"
	"time"

	"github.com/coreman2200/arcpixel/internal/diagnostics"
)

// Family separates two-wire (data + clock) chips from one-wire pulse-timed
// chips. It decides the transmission unit and the framing rules.
type Family int

const (
	Clocked Family = iota
	Clockless
)

func (f Family) String() string {
	switch f {
	case Clocked:
		return "clocked"
	case Clockless:
		return "clockless"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// Word selects the per-pixel record layout of a clocked chip.
type Word int

const (
	WordNone Word = iota
	// WordAPA102 is 0xE0|31 then three color bytes, brightness folded into the color.
	WordAPA102
	// WordAPA102HD carries brightness in the 5-bit global field and keeps
	// 16-bit channel precision by shifting it into the color bytes.
	WordAPA102HD
	// WordLPD8806 is three 7-bit channels, each with the high bit set.
	WordLPD8806
)

// Timing holds the pulse widths of a clockless chip. A bit is one high
// period followed by one low period; the frame ends with a low period of at
// least Reset.
type Timing struct {
	T0H, T0L  time.Duration
	T1H, T1L  time.Duration
	Reset     time.Duration
	Tolerance time.Duration
}

func (t Timing) Cycle() time.Duration {
	return max(t.T0H+t.T0L, t.T1H+t.T1L)
}

// Pulse returns the symbol for one bit.
func (t Timing) Pulse(bit bool) Pulse {
	if bit {
		return Pulse{High: t.T1H, Low: t.T1L}
	}
	return Pulse{High: t.T0H, Low: t.T0L}
}

// Chip is an LED definition: wire channel order, framing and chip constants.
type Chip struct {
	Name   string
	Family Family
	// Order is the wire channel order using R, G, B and W, e.g. "GRB".
	Order string

	Word       Word
	StartBytes int
	WordBytes  int

	Timing Timing
}

var (
	APA102 = Chip{
		Name:       "apa102",
		Family:     Clocked,
		Order:      "BGR",
		Word:       WordAPA102,
		StartBytes: 4,
		WordBytes:  4,
	}
	APA102HD = Chip{
		Name:       "apa102hd",
		Family:     Clocked,
		Order:      "BGR",
		Word:       WordAPA102HD,
		StartBytes: 4,
		WordBytes:  4,
	}
	LPD8806 = Chip{
		Name:       "lpd8806",
		Family:     Clocked,
		Order:      "GRB",
		Word:       WordLPD8806,
		StartBytes: 4,
		WordBytes:  3,
	}
	WS2812 = Chip{
		Name:   "ws2812",
		Family: Clockless,
		Order:  "GRB",
		Timing: Timing{
			T0H: 400 * time.Nanosecond, T0L: 850 * time.Nanosecond,
			T1H: 800 * time.Nanosecond, T1L: 450 * time.Nanosecond,
			Reset:     50 * time.Microsecond,
			Tolerance: 150 * time.Nanosecond,
		},
	}
	SK6812 = Chip{
		Name:   "sk6812",
		Family: Clockless,
		Order:  "GRBW",
		Timing: Timing{
			T0H: 300 * time.Nanosecond, T0L: 900 * time.Nanosecond,
			T1H: 600 * time.Nanosecond, T1L: 600 * time.Nanosecond,
			Reset:     80 * time.Microsecond,
			Tolerance: 150 * time.Nanosecond,
		},
	}
)

var chips = []Chip{APA102, APA102HD, LPD8806, WS2812, SK6812}

// ChipByName looks up a built-in chip. An order of "" keeps the chip's
// default wire order.
func ChipByName(name, order string) (Chip, error) {
	for _, c := range chips {
		if strings.EqualFold(c.Name, name) {
			if order != "" {
				c.Order = strings.ToUpper(order)
			}
			return c, c.Validate()
		}
	}
	return Chip{}, diagnostics.Configf("led.ChipByName", "unknown chip %q", name)
}

func ChipNames() []string {
	out := make([]string, len(chips))
	for i, c := range chips {
		out[i] = c.Name
	}
	return out
}

func (c Chip) Channels() int { return len(c.Order) }

// WordWidth is the number of transmission units one pixel occupies: bytes
// for clocked chips, pulses for clockless chips.
func (c Chip) WordWidth() int {
	if c.Family == Clockless {
		return c.Channels() * 8
	}
	return c.WordBytes
}

// EndBytes is the clock flush after the last pixel. Each pixel delays the
// data by half a clock edge, so n pixels need (n-1)/2 extra edges: one zero
// byte per 16 pixels.
func (c Chip) EndBytes(pixels int) int {
	if c.Family != Clocked || pixels <= 1 {
		return 0
	}
	return (pixels - 1 + 15) / 16
}

// Overhead is the fixed framing around the pixel words: start and end
// markers for clocked chips, one reset pulse for clockless chips.
func (c Chip) Overhead(pixels int) int {
	if c.Family == Clockless {
		return 1
	}
	return c.StartBytes + c.EndBytes(pixels)
}

// FrameSize is the exact transmission buffer length for pixels LEDs.
func FrameSize(c Chip, pixels int) int {
	return c.Overhead(pixels) + pixels*c.WordWidth()
}

// Validate checks the definition is usable before any buffer is sized from it.
func (c Chip) Validate() error {
	op := "led.Chip(" + c.Name + ")"
	if err := validateOrder(c.Order); err != nil {
		return diagnostics.Configf(op, "%v", err)
	}
	switch c.Family {
	case Clocked:
		switch c.Word {
		case WordAPA102, WordAPA102HD:
			if c.WordBytes != 1+c.Channels() || c.Channels() != 3 {
				return diagnostics.Configf(op, "apa102 words are 4 bytes with 3 channels")
			}
		case WordLPD8806:
			if c.WordBytes != c.Channels() || c.Channels() != 3 {
				return diagnostics.Configf(op, "lpd8806 words are 3 bytes with 3 channels")
			}
		default:
			return diagnostics.Configf(op, "clocked chip without a word layout")
		}
		if c.StartBytes < 0 {
			return diagnostics.Configf(op, "negative start marker")
		}
	case Clockless:
		t := c.Timing
		if t.T0H <= 0 || t.T0L <= 0 || t.T1H <= 0 || t.T1L <= 0 || t.Reset <= 0 {
			return diagnostics.Configf(op, "incomplete timing %+v", t)
		}
		if t.T0H >= t.T1H {
			return diagnostics.Configf(op, "T0H %v must be shorter than T1H %v", t.T0H, t.T1H)
		}
	default:
		return diagnostics.Configf(op, "unknown family %v", c.Family)
	}
	return nil
}

func validateOrder(order string) error {
	if len(order) != 3 && len(order) != 4 {
		return fmt.Errorf("channel order %q must have 3 or 4 channels", order)
	}
	seen := map[rune]bool{}
	for _, r := range order {
		if !strings.ContainsRune("RGBW", r) {
			return fmt.Errorf("channel order %q: unknown channel %q", order, r)
		}
		if seen[r] {
			return fmt.Errorf("channel order %q repeats %q", order, r)
		}
		seen[r] = true
	}
	if len(order) == 4 && !seen['W'] {
		return fmt.Errorf("channel order %q: four channels need W", order)
	}
	if len(order) == 3 && seen['W'] {
		return fmt.Errorf("channel order %q: W needs four channels", order)
	}
	return nil
}

// channelIndex maps wire positions to indices into [R, G, B, W].
func (c Chip) channelIndex() []int {
	idx := make([]int, len(c.Order))
	for i, r := range c.Order {
		idx[i] = strings.IndexRune("RGBW", r)
	}
	return idx
}
