package pattern

import (
	"sort"

	"github.com/coreman2200/arcpixel/internal/color"
	"github.com/coreman2200/arcpixel/internal/diagnostics"
)

// Entry describes a registered pattern and its named presets. New receives
// one of Presets; an empty preset means the first one.
type Entry struct {
	Name    string
	Presets []string
	New     func(preset string) (Pattern, error)
}

type Registry struct{ m map[string]Entry }

func NewRegistry() *Registry { return &Registry{m: map[string]Entry{}} }

func (r *Registry) Register(e Entry) {
	if e.Name == "" || e.New == nil {
		return
	}
	r.m[e.Name] = e
}

// Get builds the named pattern with a preset applied.
func (r *Registry) Get(name, preset string) (Pattern, error) {
	e, ok := r.m[name]
	if !ok {
		return nil, diagnostics.Configf("pattern.Get", "unknown pattern %q", name)
	}
	if preset == "" && len(e.Presets) > 0 {
		preset = e.Presets[0]
	}
	return e.New(preset)
}

func (r *Registry) Presets(name string) []string { return r.m[name].Presets }

func (r *Registry) List() []string {
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var (
	solidPresets = map[string]color.Color{
		"white": color.White,
		"red":   color.Red,
		"green": color.Green,
		"blue":  color.Blue,
		"warm":  color.RGB8(255, 147, 41),
	}
	rainbowPresets = map[string]RainbowParams{
		"default": DefaultRainbowParams,
		"slow":    {PositionScale: 1, TimeScale: 0.05},
		"fast":    {PositionScale: 1, TimeScale: 1.5},
		"wide":    {PositionScale: 0.25, TimeScale: 0.3},
	}
	noisePresets = map[string]func() NoiseParams{
		"default": func() NoiseParams { return DefaultNoiseParams },
		"okhsv": func() NoiseParams {
			p := DefaultNoiseParams
			p.Okhsv = true
			return p
		},
		"ember": func() NoiseParams {
			p := NoiseParams{PositionScale: 0.8, TimeScale: 0.4}
			p.Gradient = color.NewGradient(
				color.Stop{Col: color.Black, Pos: 0},
				color.Stop{Col: color.FromHSV(0, 1, 0.6), Pos: 0.4},
				color.Stop{Col: color.FromHSV(28, 1, 1), Pos: 0.8},
				color.Stop{Col: color.FromHSV(50, 0.6, 1), Pos: 1},
			)
			return p
		},
		"ocean": func() NoiseParams {
			p := NoiseParams{PositionScale: 0.4, TimeScale: 0.25}
			p.Gradient = color.NewGradient(
				color.Stop{Col: color.FromHSV(234, 1, 0.3), Pos: 0},
				color.Stop{Col: color.FromHSV(200, 1, 0.8), Pos: 0.5},
				color.Stop{Col: color.FromHSV(170, 0.5, 1), Pos: 1},
			)
			return p
		},
	}
)

// Default holds the built-in patterns.
func Default() *Registry {
	r := NewRegistry()
	r.Register(Entry{
		Name:    "solid",
		Presets: []string{"white", "red", "green", "blue", "warm"},
		New: func(preset string) (Pattern, error) {
			c, ok := solidPresets[preset]
			if !ok {
				return nil, unknownPreset("solid", preset)
			}
			return Solid{Color: c}, nil
		},
	})
	r.Register(Entry{
		Name:    "rainbow",
		Presets: []string{"default", "slow", "fast", "wide"},
		New: func(preset string) (Pattern, error) {
			p, ok := rainbowPresets[preset]
			if !ok {
				return nil, unknownPreset("rainbow", preset)
			}
			return NewRainbow(p), nil
		},
	})
	r.Register(Entry{
		Name:    "noise",
		Presets: []string{"default", "okhsv", "ember", "ocean"},
		New: func(preset string) (Pattern, error) {
			p, ok := noisePresets[preset]
			if !ok {
				return nil, unknownPreset("noise", preset)
			}
			return NewNoise(p()), nil
		},
	})
	return r
}

func unknownPreset(name, preset string) error {
	return diagnostics.Configf("pattern.Get", "pattern %q has no preset %q", name, preset)
}
