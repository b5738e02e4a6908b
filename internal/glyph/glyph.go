// Package glyph describes which fields of a record form a plotted primitive
// and how that primitive covers pixels.
package glyph

import (
	"math"

	"github.com/banshee-data/pixelgrid/internal/axis"
	"github.com/banshee-data/pixelgrid/internal/schema"
)

// EmitFunc receives every pixel a glyph covers together with the row that
// produced it.
type EmitFunc func(row, px, py int)

// Glyph is a geometric primitive bound to coordinate fields.
type Glyph interface {
	// Validate fails with schema.ErrMismatch when rec lacks a required
	// field or a field has an unusable type.
	Validate(rec schema.Record) error
	// Columns names the coordinate fields in x, y order.
	Columns() []string
	// Rasterize walks coordinate columns of equal length and calls emit for
	// every covered pixel.
	Rasterize(xs, ys []float64, xp, yp axis.Projection, emit EmitFunc)
	String() string
}

// Point places each row on the pixel holding (X, Y).
type Point struct {
	X, Y string
}

func (p Point) Validate(rec schema.Record) error {
	return rec.RequireNumeric(p.X, p.Y)
}

func (p Point) Columns() []string { return []string{p.X, p.Y} }

func (p Point) String() string { return "Point(" + p.X + ", " + p.Y + ")" }

func (p Point) Rasterize(xs, ys []float64, xp, yp axis.Projection, emit EmitFunc) {
	n := min(len(xs), len(ys))
	for i := 0; i < n; i++ {
		px, ok := xp.Pixel(xs[i])
		if !ok {
			continue
		}
		py, ok := yp.Pixel(ys[i])
		if !ok {
			continue
		}
		emit(i, px, py)
	}
}

// Line connects consecutive rows with straight segments. Rows with a NaN
// coordinate break the line.
type Line struct {
	X, Y string
}

func (l Line) Validate(rec schema.Record) error {
	return rec.RequireNumeric(l.X, l.Y)
}

func (l Line) Columns() []string { return []string{l.X, l.Y} }

func (l Line) String() string { return "Line(" + l.X + ", " + l.Y + ")" }

func (l Line) Rasterize(xs, ys []float64, xp, yp axis.Projection, emit EmitFunc) {
	n := min(len(xs), len(ys))
	// Shared vertices are emitted once: a segment that starts where the
	// previous one ended skips its first pixel.
	lastX, lastY := -1, -1
	for i := 0; i+1 < n; i++ {
		x0, y0 := xp.Position(xs[i]), yp.Position(ys[i])
		x1, y1 := xp.Position(xs[i+1]), yp.Position(ys[i+1])
		if !finite(x0, y0, x1, y1) {
			lastX, lastY = -1, -1
			continue
		}
		x0, y0, x1, y1, ok := clip(x0, y0, x1, y1, float64(xp.N), float64(yp.N))
		if !ok {
			lastX, lastY = -1, -1
			continue
		}
		// Clipped endpoints lie in the pixel box; an endpoint on its edge
		// belongs to the edge pixel.
		ix0, iy0 := snap(x0, xp.N), snap(y0, yp.N)
		ix1, iy1 := snap(x1, xp.N), snap(y1, yp.N)
		skipFirst := ix0 == lastX && iy0 == lastY
		bresenham(ix0, iy0, ix1, iy1, func(px, py int) {
			if skipFirst {
				skipFirst = false
				return
			}
			if px < 0 || py < 0 || px >= xp.N || py >= yp.N {
				return
			}
			emit(i, px, py)
		})
		lastX, lastY = ix1, iy1
	}
}

func snap(v float64, n int) int {
	return max(0, min(n-1, int(math.Round(v))))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// clip trims the segment to the pixel box [-0.5, w-0.5] x [-0.5, h-0.5]
// using Liang-Barsky.
func clip(x0, y0, x1, y1, w, h float64) (float64, float64, float64, float64, bool) {
	const lo = -0.5
	xmax, ymax := w-0.5, h-0.5
	dx, dy := x1-x0, y1-y0
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, x0 - lo},
		{dx, xmax - x0},
		{-dy, y0 - lo},
		{dy, ymax - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			if r > t0 {
				t0 = r
			}
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			if r < t1 {
				t1 = r
			}
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

func bresenham(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
