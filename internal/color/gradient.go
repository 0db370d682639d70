package color

import "sort"

type Stop struct {
	Col Color
	Pos float64
}

// Gradient maps [0,1] to colors through stops blended in HCL. Stops must be
// sorted by Pos; use NewGradient to sort them.
type Gradient []Stop

func NewGradient(stops ...Stop) Gradient {
	g := append(Gradient(nil), stops...)
	sort.SliceStable(g, func(i, j int) bool { return g[i].Pos < g[j].Pos })
	return g
}

// HueWheel is a six stop gradient going once around the hue circle.
func HueWheel() Gradient {
	g := make(Gradient, 0, 7)
	for i := 0; i <= 6; i++ {
		g = append(g, Stop{Col: FromHSV(float64(i)*60, 1, 1), Pos: float64(i) / 6})
	}
	return g
}

func (g Gradient) At(t float64) Color {
	switch len(g) {
	case 0:
		return Black
	case 1:
		return g[0].Col
	}
	if t <= g[0].Pos {
		return g[0].Col
	}
	if last := g[len(g)-1]; t >= last.Pos {
		return last.Col
	}
	for i := 0; i < len(g)-1; i++ {
		c1, c2 := g[i], g[i+1]
		if c1.Pos <= t && t <= c2.Pos {
			span := c2.Pos - c1.Pos
			if span <= 0 {
				return c2.Col
			}
			u := (t - c1.Pos) / span
			return fromColorful(c1.Col.colorful().BlendHcl(c2.Col.colorful(), u).Clamped())
		}
	}
	return g[len(g)-1].Col
}

// Blend linearly interpolates two colors in RGB.
func Blend(a, b Color, t float64) Color {
	return fromColorful(a.colorful().BlendRgb(b.colorful(), t))
}
