package layout

import (
	"math"

	"github.com/coreman2200/arcpixel/internal/diagnostics"
)

// Position is a layout-local coordinate, conventionally within [-1,1] per axis.
// One and two dimensional layouts leave the unused axes at zero.
type Position struct{ X, Y, Z float64 }

func (p Position) Add(q Position) Position  { return Position{p.X + q.X, p.Y + q.Y, p.Z + q.Z} }
func (p Position) Sub(q Position) Position  { return Position{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }
func (p Position) Scale(k float64) Position { return Position{p.X * k, p.Y * k, p.Z * k} }
func (p Position) Sum() float64             { return p.X + p.Y + p.Z }
func (p Position) IsZero() bool             { return p == Position{} }

func (p Position) Dist(q Position) float64 {
	d := p.Sub(q)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

func (p Position) Min(q Position) Position {
	return Position{math.Min(p.X, q.X), math.Min(p.Y, q.Y), math.Min(p.Z, q.Z)}
}

func (p Position) Max(q Position) Position {
	return Position{math.Max(p.X, q.X), math.Max(p.Y, q.Y), math.Max(p.Z, q.Z)}
}

// Shape generates a fixed number of positions in wiring order.
type Shape interface {
	Count() int
	Append(dst []Position) []Position
}

// Layout is the ordered, fixed-length list of pixel positions. Index i is LED i
// on the wire for every other stage of the pipeline.
type Layout struct {
	positions []Position
	min, max  Position
}

// New concatenates the shapes in order and checks the result against the
// declared pixel count.
func New(pixels int, shapes ...Shape) (*Layout, error) {
	if pixels < 0 {
		return nil, diagnostics.Configf("layout.New", "negative pixel count %d", pixels)
	}
	declared := 0
	for i, s := range shapes {
		if s == nil {
			return nil, diagnostics.Configf("layout.New", "shape %d is nil", i)
		}
		if s.Count() < 0 {
			return nil, diagnostics.Configf("layout.New", "shape %d (%T) has negative size", i, s)
		}
		declared += s.Count()
	}
	if declared != pixels {
		return nil, diagnostics.Configf("layout.New", "declared %d pixels, shapes produce %d", pixels, declared)
	}

	l := &Layout{positions: make([]Position, 0, pixels)}
	for i, s := range shapes {
		before := len(l.positions)
		l.positions = s.Append(l.positions)
		if got := len(l.positions) - before; got != s.Count() {
			return nil, diagnostics.Configf("layout.New", "shape %d (%T) generated %d positions, expected %d", i, s, got, s.Count())
		}
	}
	for i, p := range l.positions {
		if math.IsNaN(p.Sum()) || math.IsInf(p.Sum(), 0) {
			return nil, diagnostics.Configf("layout.New", "position %d is not finite", i)
		}
		if i == 0 {
			l.min, l.max = p, p
			continue
		}
		l.min, l.max = l.min.Min(p), l.max.Max(p)
	}
	return l, nil
}

// MustNew panics on error. For fixed layouts known at compile time.
func MustNew(pixels int, shapes ...Shape) *Layout {
	l, err := New(pixels, shapes...)
	if err != nil {
		panic(err)
	}
	return l
}

func (l *Layout) Len() int { return len(l.positions) }

func (l *Layout) At(i int) Position { return l.positions[i] }

// Positions exposes the backing slice; callers must not modify it.
func (l *Layout) Positions() []Position { return l.positions }

// Bounds returns the component-wise min and max corners.
func (l *Layout) Bounds() (min, max Position) { return l.min, l.max }
