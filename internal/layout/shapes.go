package layout

import "math"

type Points []Position

func (p Points) Count() int                       { return len(p) }
func (p Points) Append(dst []Position) []Position { return append(dst, p...) }

// Line spaces Pixels positions evenly from Start to End inclusive.
type Line struct {
	Start, End Position
	Pixels     int
}

// Strip is the one dimensional layout: a line across [-1,1] on X.
func Strip(pixels int) Line {
	return Line{Start: Position{X: -1}, End: Position{X: 1}, Pixels: pixels}
}

func (l Line) Count() int { return l.Pixels }

func (l Line) Append(dst []Position) []Position {
	step := l.End.Sub(l.Start).Scale(1 / float64(steps(l.Pixels)))
	for i := 0; i < l.Pixels; i++ {
		dst = append(dst, l.Start.Add(step.Scale(float64(i))))
	}
	return dst
}

// Grid is a rectangle of Cols x Rows pixels starting at the Start corner and
// spanning the Horizontal and Vertical edge vectors. Rows are emitted in
// order; with Serpentine set every odd row runs backwards, matching a strip
// folded back and forth instead of wired with return traces.
type Grid struct {
	Start      Position
	Horizontal Position
	Vertical   Position
	Cols, Rows int
	Serpentine bool
}

// Square is the common 2D panel: a Cols x Rows grid covering [-1,1]^2.
func Square(cols, rows int, serpentine bool) Grid {
	return Grid{
		Start:      Position{X: -1, Y: -1},
		Horizontal: Position{X: 2},
		Vertical:   Position{Y: 2},
		Cols:       cols,
		Rows:       rows,
		Serpentine: serpentine,
	}
}

func (g Grid) Count() int {
	if g.Cols <= 0 || g.Rows <= 0 {
		return 0
	}
	return g.Cols * g.Rows
}

func (g Grid) Append(dst []Position) []Position {
	if g.Count() == 0 {
		return dst
	}
	hstep := g.Horizontal.Scale(1 / float64(steps(g.Cols)))
	vstep := g.Vertical.Scale(1 / float64(steps(g.Rows)))
	for r := 0; r < g.Rows; r++ {
		row := g.Start.Add(vstep.Scale(float64(r)))
		for c := 0; c < g.Cols; c++ {
			cc := c
			if g.Serpentine && r%2 == 1 {
				cc = g.Cols - 1 - c
			}
			dst = append(dst, row.Add(hstep.Scale(float64(cc))))
		}
	}
	return dst
}

// Arc places Pixels positions on a circle of Radius around Center, from
// angle From to angle To in radians, both ends included. U and V span the
// circle's plane and default to the X and Y axes.
type Arc struct {
	Center   Position
	Radius   float64
	From, To float64
	Pixels   int
	U, V     Position
}

// Ring is a full circle that does not repeat its first pixel.
func Ring(center Position, radius float64, pixels int) Arc {
	span := 2 * math.Pi
	if pixels > 0 {
		span -= 2 * math.Pi / float64(pixels)
	}
	return Arc{Center: center, Radius: radius, To: span, Pixels: pixels}
}

func (a Arc) Count() int { return a.Pixels }

func (a Arc) Append(dst []Position) []Position {
	u, v := a.U, a.V
	if u.IsZero() && v.IsZero() {
		u, v = Position{X: 1}, Position{Y: 1}
	}
	u, v = u.Scale(a.Radius), v.Scale(a.Radius)
	denom := float64(steps(a.Pixels))
	for i := 0; i < a.Pixels; i++ {
		theta := a.From + float64(i)/denom*(a.To-a.From)
		dst = append(dst, a.Center.Add(u.Scale(math.Cos(theta))).Add(v.Scale(math.Sin(theta))))
	}
	return dst
}

func steps(n int) int {
	if n > 1 {
		return n - 1
	}
	return 1
}
