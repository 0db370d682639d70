// Package color holds pixel colors, conversions between color spaces and the
// calibration applied before a frame is encoded for the wire.
package color

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a linear RGB intensity triple, each channel nominally in [0,1].
type Color struct{ R, G, B float64 }

// RGBW carries a dedicated white channel for four-channel chips.
type RGBW struct{ R, G, B, W float64 }

var (
	Black = Color{}
	White = Color{1, 1, 1}
	Red   = Color{R: 1}
	Green = Color{G: 1}
	Blue  = Color{B: 1}
)

func RGB(r, g, b float64) Color { return Color{R: r, G: g, B: b} }

// RGB8 builds a Color from 8-bit channel values.
func RGB8(r, g, b uint8) Color {
	return Color{float64(r) / 255, float64(g) / 255, float64(b) / 255}
}

func fromColorful(c colorful.Color) Color { return Color{R: c.R, G: c.G, B: c.B} }

func (c Color) colorful() colorful.Color { return colorful.Color{R: c.R, G: c.G, B: c.B} }

// Channels returns the channels in R, G, B order.
func (c Color) Channels() [3]float64 { return [3]float64{c.R, c.G, c.B} }

func (c Color) Clamped() Color {
	return Color{clamp01(c.R), clamp01(c.G), clamp01(c.B)}
}

// HSV returns hue in degrees [0,360), saturation and value in [0,1].
func (c Color) HSV() (h, s, v float64) { return c.colorful().Hsv() }

// FromHSV wraps the hue into [0,360) before converting.
func FromHSV(h, s, v float64) Color { return fromColorful(colorful.Hsv(wrapHue(h), s, v)) }

func (c Color) HSL() (h, s, l float64) { return c.colorful().Hsl() }

func FromHSL(h, s, l float64) Color { return fromColorful(colorful.Hsl(wrapHue(h), s, l)) }

// OkLab returns perceptual lightness and the a, b opponent axes.
func (c Color) OkLab() (l, a, b float64) { return colorful.LinearRgb(c.R, c.G, c.B).OkLab() }

func FromOkLab(l, a, b float64) Color { return fromLinear(colorful.OkLab(l, a, b)) }

// OkLch is OkLab in polar form with hue in degrees.
func (c Color) OkLch() (l, ch, h float64) { return colorful.LinearRgb(c.R, c.G, c.B).OkLch() }

func FromOkLch(l, c, h float64) Color { return fromLinear(colorful.OkLch(l, c, wrapHue(h))) }

// FromOkhsv takes hue in turns. Value is OkLab lightness and chroma reaches
// 0.4 at full saturation; the result is clamped into gamut.
func FromOkhsv(h, s, v float64) Color {
	s, v = clamp01(s), clamp01(v)
	return FromOkLch(v, 0.4*s*v, h*360).Clamped()
}

func fromLinear(c colorful.Color) Color {
	r, g, b := c.LinearRgb()
	return Color{R: r, G: g, B: b}
}

func (c Color) Hex() string { return c.Clamped().colorful().Hex() }

func ParseHex(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Black, err
	}
	return fromColorful(c), nil
}

// RGB255 quantizes to 8-bit channels, rounding to nearest.
func (c Color) RGB255() (r, g, b uint8) {
	return Quantize(c.R), Quantize(c.G), Quantize(c.B)
}

// ToRGBW moves the common component of the three channels into white.
func (c Color) ToRGBW() RGBW {
	w := math.Min(c.R, math.Min(c.G, c.B))
	if w < 0 {
		w = 0
	}
	return RGBW{R: c.R - w, G: c.G - w, B: c.B - w, W: w}
}

func (c RGBW) ToRGB() Color { return Color{c.R + c.W, c.G + c.W, c.B + c.W} }

// Quantize maps a normalized channel to 8 bits.
func Quantize(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

// Quantize16 maps a normalized channel to 16 bits.
func Quantize16(v float64) uint16 {
	return uint16(math.Round(clamp01(v) * 65535))
}

func wrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
