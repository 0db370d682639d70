package led

import (
	"time"

	"github.com/coreman2200/arcpixel/internal/color"
)

// Pulse is one clockless transmission unit: the line is held high for High
// then low for Low. A data bit and the final reset are both pulses.
type Pulse struct {
	High, Low time.Duration
}

func (p Pulse) Duration() time.Duration { return p.High + p.Low }

// wireChannels calibrates c and lays its channels out in wire order.
func wireChannels(dst []float64, idx []int, c color.Color, brightness float64, corr color.Correction) {
	cal := color.Calibrate(c, brightness, corr)
	var ch [4]float64
	if len(idx) == 4 {
		w := cal.ToRGBW()
		ch = [4]float64{w.R, w.G, w.B, w.W}
	} else {
		ch = [4]float64{cal.R, cal.G, cal.B}
	}
	for i, j := range idx {
		dst[i] = ch[j]
	}
}

// encodeClocked writes the whole frame into buf, which is exactly
// FrameSize(chip, len(colors)) long.
func encodeClocked(buf []byte, chip Chip, idx []int, colors []color.Color, brightness float64, corr color.Correction) {
	off := 0
	for ; off < chip.StartBytes; off++ {
		buf[off] = 0
	}
	var ch [4]float64
	for _, c := range colors {
		w := buf[off : off+chip.WordBytes]
		switch chip.Word {
		case WordAPA102:
			wireChannels(ch[:len(idx)], idx, c, brightness, corr)
			w[0] = 0xE0 | 0x1F
			for i := range idx {
				w[1+i] = color.Quantize(ch[i])
			}
		case WordAPA102HD:
			// brightness goes to the global field, not the channels
			wireChannels(ch[:len(idx)], idx, c, 1, corr)
			var c16 [3]uint16
			for i := range c16 {
				c16[i] = color.Quantize16(ch[i])
			}
			var b5 uint8
			c16, b5 = fiveBitBitshift(c16, color.Quantize(brightness))
			w[0] = 0xE0 | (b5 & 0x1F)
			for i := range c16 {
				w[1+i] = map16To8(c16[i])
			}
		case WordLPD8806:
			wireChannels(ch[:len(idx)], idx, c, brightness, corr)
			for i := range idx {
				w[i] = 0x80 | color.Quantize(ch[i])>>1
			}
		}
		off += chip.WordBytes
	}
	for ; off < len(buf); off++ {
		buf[off] = 0
	}
}

// encodeClockless writes one pulse per bit, most significant bit first,
// channels in wire order, then the reset pulse.
func encodeClockless(buf []Pulse, chip Chip, idx []int, colors []color.Color, brightness float64, corr color.Correction) {
	t := chip.Timing
	one, zero := t.Pulse(true), t.Pulse(false)
	off := 0
	var ch [4]float64
	for _, c := range colors {
		wireChannels(ch[:len(idx)], idx, c, brightness, corr)
		for i := range idx {
			v := color.Quantize(ch[i])
			for bit := 7; bit >= 0; bit-- {
				if v&(1<<bit) != 0 {
					buf[off] = one
				} else {
					buf[off] = zero
				}
				off++
			}
		}
	}
	buf[off] = Pulse{Low: t.Reset}
}

// fiveBitBitshift trades the 8-bit global brightness for extra precision
// in the 16-bit channels, leaving a 5-bit driver current value.
func fiveBitBitshift(c [3]uint16, brightness uint8) ([3]uint16, uint8) {
	if brightness == 0 {
		return [3]uint16{}, 0
	}
	if c[0] == 0 && c[1] == 0 && c[2] == 0 {
		return c, min(brightness, 31)
	}

	v5 := uint8(0b00010000)
	bitshifter8(&v5, &brightness, 4)

	maxc := max(c[0], c[1], c[2])
	shifts := bitshifter16(&v5, &maxc, 4, 2)
	if shifts > 0 {
		for i := range c {
			c[i] <<= shifts
		}
	}
	if brightness != 0xff {
		for i := range c {
			c[i] = scale16By8(c[i], brightness)
		}
	}
	if v5 > 1 {
		v5 |= v5 - 1
	}
	return c, v5
}

func bitshifter8(src, dst *uint8, maxShifts int) int {
	s, d := *src, *dst
	if d == 0 || s == 0 {
		return 0
	}
	shifts := 0
	for ; shifts < maxShifts; shifts++ {
		if s <= 1 || d&0x80 != 0 {
			break
		}
		d <<= 1
		s >>= 1
	}
	*src, *dst = s, d
	return shifts
}

func bitshifter16(src *uint8, dst *uint16, maxShifts int, steps uint) int {
	s, d := *src, *dst
	if d == 0 || s == 0 {
		return 0
	}
	overflow := uint16(0x8000)
	for i := uint(1); i < steps; i++ {
		overflow = overflow>>1 | 0x8000
	}
	shifts := 0
	for ; shifts < maxShifts; shifts++ {
		if s&1 != 0 || d&overflow != 0 {
			break
		}
		d <<= steps
		s >>= 1
	}
	*src, *dst = s, d
	return shifts
}

func scale16By8(v uint16, scale uint8) uint16 {
	return uint16(uint32(v) * (uint32(scale) + 1) >> 8)
}

func map16To8(v uint16) uint8 {
	switch {
	case v == 0:
		return 0
	case v >= 0xff00:
		return 0xff
	}
	return uint8((v + 128) >> 8)
}
