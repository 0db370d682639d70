package layout

type Dim struct{ X, Y, Z int }

func (d Dim) Count() int {
	if d.X <= 0 || d.Y <= 0 || d.Z <= 0 {
		return 0
	}
	return d.X * d.Y * d.Z
}

type Serpentine struct {
	XFlipEveryRow   bool
	YFlipEveryPanel bool
}

// Volume is a cube of stacked panels: X LEDs per row, Y rows per panel, Z
// panels. Positions span Min..Max (default [-1,1]^3) and are emitted in wire
// order, so position i is the LED at Index(x, y, z) == i.
type Volume struct {
	Dim      Dim
	Order    Serpentine
	Min, Max Position
}

func (v Volume) Count() int { return v.Dim.Count() }

// Index maps x,y,z -> linear LED index (0..N-1)
func (v Volume) Index(x, y, z int) int {
	yy := y
	if v.Order.YFlipEveryPanel && z%2 == 1 {
		yy = v.Dim.Y - 1 - y
	}
	xx := x
	if v.Order.XFlipEveryRow && yy%2 == 1 {
		xx = v.Dim.X - 1 - x
	}
	perPanel := v.Dim.X * v.Dim.Y
	return z*perPanel + yy*v.Dim.X + xx
}

// Coord is the lattice position of a given LED index, the inverse of Index.
func (v Volume) Coord(i int) (x, y, z int) {
	perPanel := v.Dim.X * v.Dim.Y
	z = i / perPanel
	yy := (i % perPanel) / v.Dim.X
	xx := i % v.Dim.X
	x = xx
	if v.Order.XFlipEveryRow && yy%2 == 1 {
		x = v.Dim.X - 1 - xx
	}
	y = yy
	if v.Order.YFlipEveryPanel && z%2 == 1 {
		y = v.Dim.Y - 1 - yy
	}
	return x, y, z
}

func (v Volume) Append(dst []Position) []Position {
	lo, hi := v.Min, v.Max
	if lo.IsZero() && hi.IsZero() {
		lo, hi = Position{-1, -1, -1}, Position{1, 1, 1}
	}
	span := hi.Sub(lo)
	for i := 0; i < v.Count(); i++ {
		x, y, z := v.Coord(i)
		dst = append(dst, Position{
			X: lo.X + span.X*float64(x)/float64(steps(v.Dim.X)),
			Y: lo.Y + span.Y*float64(y)/float64(steps(v.Dim.Y)),
			Z: lo.Z + span.Z*float64(z)/float64(steps(v.Dim.Z)),
		})
	}
	return dst
}
