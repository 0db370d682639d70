package pattern

import (
	"math"
	"time"

	"github.com/coreman2200/arcpixel/internal/color"
	"github.com/coreman2200/arcpixel/internal/layout"
)

type RainbowParams struct {
	// PositionScale stretches the rainbow across the layout.
	PositionScale float64 `yaml:"position_scale"`
	// TimeScale is hue cycles per second.
	TimeScale float64 `yaml:"time_scale"`
}

var DefaultRainbowParams = RainbowParams{PositionScale: 1, TimeScale: 0.3}

// Rainbow sweeps a fully saturated hue along the sum of the position axes.
type Rainbow struct{ Params RainbowParams }

func NewRainbow(p RainbowParams) *Rainbow { return &Rainbow{Params: p} }

func (*Rainbow) Name() string { return "rainbow" }

func (r *Rainbow) Evaluate(p layout.Position, elapsed time.Duration) color.Color {
	offset := p.Sum() * 0.5 * r.Params.PositionScale
	hue := offset + elapsed.Seconds()*r.Params.TimeScale
	hue -= math.Floor(hue)
	return color.FromHSV(hue*360, 1, 1)
}
