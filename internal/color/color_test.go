package color

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roundTripTolerance = 1e-9

// the published OkLab and sRGB matrices are inverses to about seven digits
const okTolerance = 1e-5

func randomColors(n int) []Color {
	rnd := rand.New(rand.NewSource(42))
	out := make([]Color, n)
	for i := range out {
		out[i] = Color{rnd.Float64(), rnd.Float64(), rnd.Float64()}
	}
	// corners and greys hit the undefined-hue branches
	out = append(out, Black, White, Red, Green, Blue, Color{0.5, 0.5, 0.5}, Color{1, 1, 0})
	return out
}

func TestHSVRoundTrip(t *testing.T) {
	for _, c := range randomColors(1000) {
		h, s, v := c.HSV()
		got := FromHSV(h, s, v)
		assert.InDelta(t, c.R, got.R, roundTripTolerance, "%v -> (%v,%v,%v)", c, h, s, v)
		assert.InDelta(t, c.G, got.G, roundTripTolerance)
		assert.InDelta(t, c.B, got.B, roundTripTolerance)
	}
}

func TestHSLRoundTrip(t *testing.T) {
	for _, c := range randomColors(1000) {
		h, s, l := c.HSL()
		got := FromHSL(h, s, l)
		assert.InDelta(t, c.R, got.R, roundTripTolerance)
		assert.InDelta(t, c.G, got.G, roundTripTolerance)
		assert.InDelta(t, c.B, got.B, roundTripTolerance)
	}
}

func TestOkLabRoundTrip(t *testing.T) {
	for _, c := range randomColors(1000) {
		l, a, b := c.OkLab()
		got := FromOkLab(l, a, b)
		assert.InDelta(t, c.R, got.R, okTolerance, "%v -> (%v,%v,%v)", c, l, a, b)
		assert.InDelta(t, c.G, got.G, okTolerance)
		assert.InDelta(t, c.B, got.B, okTolerance)

		l, ch, h := c.OkLch()
		got = FromOkLch(l, ch, h)
		assert.InDelta(t, c.R, got.R, okTolerance)
		assert.InDelta(t, c.G, got.G, okTolerance)
		assert.InDelta(t, c.B, got.B, okTolerance)
	}
}

func TestFromOkhsv(t *testing.T) {
	assert.Equal(t, Black, FromOkhsv(0.3, 1, 0))
	w := FromOkhsv(0.7, 0, 1)
	assert.InDelta(t, 1, w.R, 1e-3)
	assert.InDelta(t, 1, w.G, 1e-3)
	assert.InDelta(t, 1, w.B, 1e-3)
	assert.Equal(t, FromOkhsv(0.25, 1, 0.8), FromOkhsv(1.25, 1, 0.8))

	l, _, _ := FromOkhsv(0.1, 0.5, 0.6).OkLab()
	assert.InDelta(t, 0.6, l, 1e-4)
}

func TestFromHSVWrapsHue(t *testing.T) {
	assert.Equal(t, FromHSV(0, 1, 1), FromHSV(360, 1, 1))
	assert.Equal(t, FromHSV(120, 1, 1), FromHSV(-240, 1, 1))
	assert.Equal(t, Red, FromHSV(720, 1, 1))
}

func TestHex(t *testing.T) {
	c, err := ParseHex("#ff8000")
	require.NoError(t, err)
	r, g, b := c.RGB255()
	assert.Equal(t, []uint8{0xff, 0x80, 0x00}, []uint8{r, g, b})
	assert.Equal(t, "#ff8000", c.Hex())

	_, err = ParseHex("nope")
	assert.Error(t, err)
}

func TestRGBW(t *testing.T) {
	w := Color{0.8, 0.5, 0.3}.ToRGBW()
	assert.InDelta(t, 0.3, w.W, 1e-12)
	assert.InDelta(t, 0.5, w.R, 1e-12)
	assert.InDelta(t, 0.2, w.G, 1e-12)
	assert.InDelta(t, 0.0, w.B, 1e-12)

	back := w.ToRGB()
	assert.InDelta(t, 0.8, back.R, 1e-12)
	assert.InDelta(t, 0.5, back.G, 1e-12)
	assert.InDelta(t, 0.3, back.B, 1e-12)
}

func TestQuantize(t *testing.T) {
	assert.Equal(t, uint8(0), Quantize(-0.3))
	assert.Equal(t, uint8(128), Quantize(0.5))
	assert.Equal(t, uint8(255), Quantize(1))
	assert.Equal(t, uint8(255), Quantize(7))
	assert.Equal(t, uint16(65535), Quantize16(1))
	assert.Equal(t, uint16(0), Quantize16(0))
}

func TestCalibrateBrightnessZero(t *testing.T) {
	corr := Correction{Scale: [3]float64{1.4, 0.7, 2}, Gamma: 2.2}
	for _, c := range randomColors(200) {
		assert.Equal(t, Black, Calibrate(c, 0, corr))
		assert.Equal(t, Black, Calibrate(c, 0, Identity))
	}
}

func TestCalibrateIdentityIsNoop(t *testing.T) {
	for _, c := range randomColors(1000) {
		assert.Equal(t, c, Calibrate(c, 1, Identity))
	}
}

func TestCalibrateOrder(t *testing.T) {
	// scale and gamma first, brightness next, one clamp at the end
	corr := Correction{Scale: [3]float64{2, 2, 2}, Gamma: 2}
	got := Calibrate(Color{0.8, 0.8, 0.8}, 0.5, corr)
	assert.InDelta(t, 0.64, got.R, 1e-12)

	// 2 * 0.8 * 0.5 = 0.8; clamping before brightness would give 0.5
	got = Calibrate(Color{0.8, 0, 0}, 0.5, Correction{Scale: [3]float64{2, 1, 1}, Gamma: 1})
	assert.InDelta(t, 0.8, got.R, 1e-12)

	got = Calibrate(White, 1, Correction{Scale: [3]float64{3, 1, 1}, Gamma: 1})
	assert.Equal(t, White, got)
}

func TestFromTemperature(t *testing.T) {
	daylight := FromTemperature(6600, 1)
	for _, s := range daylight.Scale {
		assert.InDelta(t, 1, s, 0.01)
	}

	warm := FromTemperature(2700, 2.2)
	assert.Equal(t, 1.0, warm.Scale[0])
	assert.Less(t, warm.Scale[2], warm.Scale[1])
	assert.Less(t, warm.Scale[1], 1.0)
	assert.Equal(t, 2.2, warm.Gamma)

	candle := FromTemperature(1500, 1)
	assert.Equal(t, 0.0, candle.Scale[2])
}

func TestGradient(t *testing.T) {
	g := NewGradient(Stop{Blue, 1}, Stop{Red, 0})
	assert.Equal(t, Red, g.At(0))
	assert.Equal(t, Red, g.At(-1))
	assert.Equal(t, Blue, g.At(1))
	assert.Equal(t, Blue, g.At(2))

	mid := g.At(0.5)
	assert.Greater(t, mid.R, 0.0)
	assert.Greater(t, mid.B, 0.0)

	assert.Equal(t, Black, Gradient{}.At(0.3))
	assert.Len(t, HueWheel(), 7)
	assert.Equal(t, HueWheel().At(0), HueWheel().At(1))
}
