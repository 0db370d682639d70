package layout

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/arcpixel/internal/diagnostics"
)

func TestShapeCountsMatchDeclared(t *testing.T) {
	tests := []struct {
		name   string
		pixels int
		shapes []Shape
	}{
		{"empty", 0, nil},
		{"points", 3, []Shape{Points{{X: 0}, {X: 1}, {Y: 1}}}},
		{"strip", 60, []Shape{Strip(60)}},
		{"single pixel line", 1, []Shape{Line{End: Position{X: 1}, Pixels: 1}}},
		{"grid", 16 * 16, []Shape{Square(16, 16, true)}},
		{"arc", 24, []Shape{Ring(Position{}, 1, 24)}},
		{"volume", 5 * 26 * 5, []Shape{Volume{Dim: Dim{5, 26, 5}, Order: Serpentine{true, true}}}},
		{"concatenated", 8 + 12 + 4, []Shape{Strip(8), Square(4, 3, false), Points{{}, {}, {}, {}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.pixels, tt.shapes...)
			require.NoError(t, err)
			assert.Equal(t, tt.pixels, l.Len())
			assert.Len(t, l.Positions(), tt.pixels)
		})
	}
}

func TestCountMismatchIsConfigError(t *testing.T) {
	_, err := New(5, Square(2, 2, false))
	require.Error(t, err)
	assert.ErrorIs(t, err, diagnostics.ErrConfiguration)

	_, err = New(-1)
	assert.ErrorIs(t, err, diagnostics.ErrConfiguration)

	_, err = New(1, nil)
	assert.ErrorIs(t, err, diagnostics.ErrConfiguration)

	_, err = New(2, liar{})
	assert.ErrorIs(t, err, diagnostics.ErrConfiguration)

	assert.Panics(t, func() { MustNew(3, Strip(2)) })
}

// liar reports more positions than it produces.
type liar struct{}

func (liar) Count() int                       { return 2 }
func (liar) Append(dst []Position) []Position { return append(dst, Position{}) }

func TestGridSerpentineOrder(t *testing.T) {
	g := Grid{Horizontal: Position{X: 2}, Vertical: Position{Y: 1}, Cols: 3, Rows: 2, Serpentine: true}
	l, err := New(6, g)
	require.NoError(t, err)

	idx := make([]int, 0, l.Len())
	for _, p := range l.Positions() {
		idx = append(idx, int(p.Y)*3+int(p.X))
	}
	assert.Equal(t, []int{0, 1, 2, 5, 4, 3}, idx)

	g.Serpentine = false
	l, err = New(6, g)
	require.NoError(t, err)
	idx = idx[:0]
	for _, p := range l.Positions() {
		idx = append(idx, int(p.Y)*3+int(p.X))
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, idx)
}

func TestLinePositions(t *testing.T) {
	l, err := New(4, Line{Start: Position{X: 0}, End: Position{X: 3, Y: 6}, Pixels: 4})
	require.NoError(t, err)
	want := []Position{{0, 0, 0}, {1, 2, 0}, {2, 4, 0}, {3, 6, 0}}
	if diff := cmp.Diff(want, l.Positions()); diff != "" {
		t.Fatalf("positions mismatch (-want +got):\n%s", diff)
	}

	lo, hi := l.Bounds()
	assert.Equal(t, Position{}, lo)
	assert.Equal(t, Position{3, 6, 0}, hi)
}

func TestGenerateIsRestartable(t *testing.T) {
	shapes := []Shape{Square(5, 4, true), Ring(Position{X: 2}, 0.5, 12)}
	a, err := New(32, shapes...)
	require.NoError(t, err)
	b, err := New(32, shapes...)
	require.NoError(t, err)
	if diff := cmp.Diff(a.Positions(), b.Positions()); diff != "" {
		t.Fatalf("second generation differs:\n%s", diff)
	}
}

func TestArc(t *testing.T) {
	a := Arc{Center: Position{X: 1, Y: 1}, Radius: 2, From: 0, To: math.Pi, Pixels: 3}
	l, err := New(3, a)
	require.NoError(t, err)

	for _, p := range l.Positions() {
		assert.InDelta(t, 2, p.Dist(a.Center), 1e-12)
	}
	assert.InDelta(t, 3, l.At(0).X, 1e-12)
	assert.InDelta(t, 1, l.At(1).X, 1e-12)
	assert.InDelta(t, 3, l.At(1).Y, 1e-12)
	assert.InDelta(t, -1, l.At(2).X, 1e-12)

	// custom plane: the circle lies in XZ
	xz := Arc{Radius: 1, To: math.Pi / 2, Pixels: 2, U: Position{X: 1}, V: Position{Z: 1}}
	l, err = New(2, xz)
	require.NoError(t, err)
	assert.InDelta(t, 1, l.At(1).Z, 1e-12)
	assert.InDelta(t, 0, l.At(1).Y, 1e-12)
}

func TestVolumeIndexMatchesPositions(t *testing.T) {
	v := Volume{Dim: Dim{X: 3, Y: 4, Z: 3}, Order: Serpentine{XFlipEveryRow: true, YFlipEveryPanel: true}}
	seen := make(map[int]bool)
	for z := 0; z < v.Dim.Z; z++ {
		for y := 0; y < v.Dim.Y; y++ {
			for x := 0; x < v.Dim.X; x++ {
				i := v.Index(x, y, z)
				require.False(t, seen[i], "index %d repeated", i)
				seen[i] = true
				gx, gy, gz := v.Coord(i)
				assert.Equal(t, []int{x, y, z}, []int{gx, gy, gz})
			}
		}
	}
	assert.Len(t, seen, v.Count())

	l, err := New(v.Count(), v)
	require.NoError(t, err)
	// second row of the first panel runs backwards along X
	assert.Equal(t, Position{X: 1, Y: -1 + 2.0/3, Z: -1}, l.At(3))
	assert.Equal(t, Position{X: -1, Y: -1 + 2.0/3, Z: -1}, l.At(5))

	// consecutive LEDs stay physically adjacent along a serpentine run
	for i := 1; i < l.Len(); i++ {
		assert.LessOrEqual(t, l.At(i).Dist(l.At(i-1)), 1.0+1e-9, "gap between LED %d and %d", i-1, i)
	}
}
