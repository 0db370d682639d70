package pattern

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/arcpixel/internal/color"
	"github.com/coreman2200/arcpixel/internal/diagnostics"
	"github.com/coreman2200/arcpixel/internal/layout"
)

func samplePositions(t *testing.T) []layout.Position {
	t.Helper()
	l, err := layout.New(16*16+30, layout.Square(16, 16, true), layout.Ring(layout.Position{Z: 0.5}, 0.8, 30))
	require.NoError(t, err)
	return l.Positions()
}

func TestDeterminism(t *testing.T) {
	patterns := []Pattern{
		Solid{Color: color.RGB(0.1, 0.2, 0.3)},
		NewRainbow(DefaultRainbowParams),
		NewNoise(DefaultNoiseParams),
		NewNoise(NoiseParams{PositionScale: 2, TimeScale: 3, Seed: 99}),
		NewNoise(NoiseParams{PositionScale: 0.5, TimeScale: 0.75, Okhsv: true}),
	}
	times := []time.Duration{0, 16 * time.Millisecond, 3 * time.Second, 90 * time.Minute}
	for _, pat := range patterns {
		t.Run(pat.Name(), func(t *testing.T) {
			for _, p := range samplePositions(t) {
				for _, e := range times {
					a := pat.Evaluate(p, e)
					b := pat.Evaluate(p, e)
					assert.Equal(t, math.Float64bits(a.R), math.Float64bits(b.R))
					assert.Equal(t, math.Float64bits(a.G), math.Float64bits(b.G))
					assert.Equal(t, math.Float64bits(a.B), math.Float64bits(b.B))
				}
			}
		})
	}

	// separate instances with the same params agree too
	a, b := NewNoise(DefaultNoiseParams), NewNoise(DefaultNoiseParams)
	p := layout.Position{X: 0.3, Y: -0.7, Z: 0.1}
	assert.Equal(t, a.Evaluate(p, time.Second), b.Evaluate(p, time.Second))
}

func TestRainbowHue(t *testing.T) {
	r := NewRainbow(RainbowParams{PositionScale: 1, TimeScale: 0.25})

	// origin at t=0 is hue 0
	assert.Equal(t, color.Red, r.Evaluate(layout.Position{}, 0))

	// one second at 0.25 cycles/s is a quarter turn
	h, s, v := r.Evaluate(layout.Position{}, time.Second).HSV()
	assert.InDelta(t, 90, h, 1e-9)
	assert.Equal(t, 1.0, s)
	assert.Equal(t, 1.0, v)

	// x+y+z = 1 with the 0.5 factor is half a turn
	h, _, _ = r.Evaluate(layout.Position{X: 0.5, Y: 0.25, Z: 0.25}, 0).HSV()
	assert.InDelta(t, 180, h, 1e-9)

	// wraps after a full cycle, including negative offsets
	assert.Equal(t, r.Evaluate(layout.Position{}, 0), r.Evaluate(layout.Position{}, 4*time.Second))
	h, _, _ = r.Evaluate(layout.Position{X: -0.5}, 0).HSV()
	assert.InDelta(t, 270, h, 1e-9)
}

func TestNoiseStaysOnGradient(t *testing.T) {
	g := color.NewGradient(color.Stop{Col: color.Black, Pos: 0}, color.Stop{Col: color.White, Pos: 1})
	n := NewNoise(NoiseParams{PositionScale: 1, TimeScale: 1, Gradient: g})

	varied := false
	first := n.Sample(layout.Position{}, 0)
	for i, p := range samplePositions(t) {
		v := n.Sample(p, time.Duration(i)*time.Millisecond)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
		if v != first {
			varied = true
		}
		c := n.Evaluate(p, time.Duration(i)*time.Millisecond)
		assert.Equal(t, c, c.Clamped())
	}
	assert.True(t, varied, "noise should vary across the layout")

	assert.Len(t, NewNoise(NoiseParams{}).Params().Gradient, 7)
}

func TestNoiseOkhsv(t *testing.T) {
	n := NewNoise(NoiseParams{PositionScale: 1, TimeScale: 1, Okhsv: true})
	separate := false
	for i, p := range samplePositions(t) {
		e := time.Duration(i) * 10 * time.Millisecond
		h, v := n.Sample(p, e), n.Value(p, e)
		assert.GreaterOrEqual(t, v, 0.5)
		assert.LessOrEqual(t, v, 1.0)
		assert.Equal(t, color.FromOkhsv(h, 1, v), n.Evaluate(p, e))
		if v != 0.75+0.25*(2*h-1) {
			separate = true
		}
	}
	assert.True(t, separate, "hue and value should come from different fields")
}

func TestFill(t *testing.T) {
	pos := samplePositions(t)
	dst := make([]color.Color, len(pos))
	Fill(dst, Solid{Color: color.Blue}, pos, time.Second)
	for _, c := range dst {
		assert.Equal(t, color.Blue, c)
	}
}

func TestRegistry(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"noise", "rainbow", "solid"}, r.List())

	p, err := r.Get("solid", "")
	require.NoError(t, err)
	assert.Equal(t, Solid{Color: color.White}, p)

	p, err = r.Get("rainbow", "fast")
	require.NoError(t, err)
	assert.Equal(t, 1.5, p.(*Rainbow).Params.TimeScale)

	for _, preset := range r.Presets("noise") {
		p, err := r.Get("noise", preset)
		require.NoError(t, err, preset)
		assert.Equal(t, "noise", p.Name())
	}

	_, err = r.Get("plasma", "")
	assert.ErrorIs(t, err, diagnostics.ErrConfiguration)
	_, err = r.Get("rainbow", "sideways")
	assert.ErrorIs(t, err, diagnostics.ErrConfiguration)

	r.Register(Entry{Name: "broken"})
	assert.NotContains(t, r.List(), "broken")
}
