package color

import "math"

// Correction is a fixed per-LED calibration: a multiplicative scale per
// channel (R, G, B) and a gamma exponent applied to each raw channel.
type Correction struct {
	Scale [3]float64
	Gamma float64
}

var Identity = Correction{Scale: [3]float64{1, 1, 1}, Gamma: 1}

// Typical white-balance scales for common LED packages.
var (
	TypicalSMD5050  = Correction{Scale: [3]float64{1, 0.69, 0.94}, Gamma: 1}
	TypicalLEDStrip = Correction{Scale: [3]float64{1, 0.69, 0.94}, Gamma: 1}
	Typical8mmPixel = Correction{Scale: [3]float64{1, 0.88, 0.94}, Gamma: 1}
	TypicalPixel    = Typical8mmPixel
)

func (c Correction) WithGamma(g float64) Correction {
	c.Gamma = g
	return c
}

// IsIdentity reports whether Calibrate with this correction only applies brightness.
func (c Correction) IsIdentity() bool { return c == Identity }

// Calibrate applies correction then brightness:
// out = clamp(scale * raw^gamma * brightness, 0, 1), clamped once at the end.
func Calibrate(c Color, brightness float64, corr Correction) Color {
	return Color{
		R: calibrate(c.R, corr.Scale[0], corr.Gamma, brightness),
		G: calibrate(c.G, corr.Scale[1], corr.Gamma, brightness),
		B: calibrate(c.B, corr.Scale[2], corr.Gamma, brightness),
	}
}

func calibrate(raw, scale, gamma, brightness float64) float64 {
	if raw <= 0 || brightness <= 0 {
		return 0
	}
	return clamp01(scale * math.Pow(raw, gamma) * brightness)
}

// FromTemperature derives channel scales from the white point of a black body
// at the given color temperature in kelvin. Valid range is 1000K to 40000K.
func FromTemperature(kelvin, gamma float64) Correction {
	t := math.Max(1000, math.Min(40000, kelvin)) / 100

	var r, g, b float64
	if t <= 66 {
		r = 255
		g = 99.4708025861*math.Log(t) - 161.1195681661
	} else {
		r = 329.698727446 * math.Pow(t-60, -0.1332047592)
		g = 288.1221695283 * math.Pow(t-60, -0.0755148492)
	}
	switch {
	case t >= 66:
		b = 255
	case t <= 19:
		b = 0
	default:
		b = 138.5177312231*math.Log(t-10) - 305.0447927307
	}
	return Correction{
		Scale: [3]float64{clamp01(r / 255), clamp01(g / 255), clamp01(b / 255)},
		Gamma: gamma,
	}
}
