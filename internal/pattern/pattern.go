// Package pattern synthesizes pixel colors from a position and the time
// elapsed since the animation started.
package pattern

import (
	"time"

	"github.com/coreman2200/arcpixel/internal/color"
	"github.com/coreman2200/arcpixel/internal/layout"
)

// Pattern is evaluated once per layout position per tick. Evaluate must be a
// pure function of its arguments and the pattern's parameter value: two calls
// with the same inputs return identical colors.
type Pattern interface {
	Name() string
	Evaluate(p layout.Position, elapsed time.Duration) color.Color
}

// Fill evaluates pat for every position into dst, in layout order.
func Fill(dst []color.Color, pat Pattern, positions []layout.Position, elapsed time.Duration) {
	for i, p := range positions {
		dst[i] = pat.Evaluate(p, elapsed)
	}
}

// Solid returns the same color everywhere.
type Solid struct{ Color color.Color }

func (Solid) Name() string { return "solid" }

func (s Solid) Evaluate(layout.Position, time.Duration) color.Color { return s.Color }
