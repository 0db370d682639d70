package pattern

import (
	"time"

	"github.com/ojrac/opensimplex-go"

	"github.com/coreman2200/arcpixel/internal/color"
	"github.com/coreman2200/arcpixel/internal/layout"
)

type NoiseParams struct {
	PositionScale float64        `yaml:"position_scale"`
	TimeScale     float64        `yaml:"time_scale"`
	Seed          int64          `yaml:"seed"`
	Gradient      color.Gradient `yaml:"-"`
	// Okhsv takes hue from the noise field and value from a second field
	// seeded Seed+1, instead of mapping one field through Gradient.
	Okhsv bool `yaml:"okhsv"`
}

var DefaultNoiseParams = NoiseParams{PositionScale: 0.5, TimeScale: 0.75}

// Noise samples 4D OpenSimplex noise at (position*PositionScale,
// elapsed*TimeScale) and maps the value through Gradient, or to an Okhsv
// color when Params.Okhsv is set.
type Noise struct {
	params NoiseParams
	noise  opensimplex.Noise
	value  opensimplex.Noise
}

func NewNoise(p NoiseParams) *Noise {
	if len(p.Gradient) == 0 {
		p.Gradient = color.HueWheel()
	}
	return &Noise{
		params: p,
		noise:  opensimplex.NewNormalized(p.Seed),
		value:  opensimplex.NewNormalized(p.Seed + 1),
	}
}

func (*Noise) Name() string { return "noise" }

func (n *Noise) Params() NoiseParams { return n.params }

// Sample returns the raw normalized noise value in [0,1].
func (n *Noise) Sample(p layout.Position, elapsed time.Duration) float64 {
	return n.sample(n.noise, p, elapsed)
}

func (n *Noise) sample(field opensimplex.Noise, p layout.Position, elapsed time.Duration) float64 {
	s := n.params.PositionScale
	v := field.Eval4(p.X*s, p.Y*s, p.Z*s, elapsed.Seconds()*n.params.TimeScale)
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Value is the Okhsv value at p: the second field mapped from [-1,1] to
// 0.75 +/- 0.25.
func (n *Noise) Value(p layout.Position, elapsed time.Duration) float64 {
	signed := 2*n.sample(n.value, p, elapsed) - 1
	return 0.75 + 0.25*signed
}

func (n *Noise) Evaluate(p layout.Position, elapsed time.Duration) color.Color {
	if n.params.Okhsv {
		return color.FromOkhsv(n.Sample(p, elapsed), 1, n.Value(p, elapsed))
	}
	return n.params.Gradient.At(n.Sample(p, elapsed))
}
