package raster

import (
	"fmt"
	"math"

	"github.com/banshee-data/pixelgrid/internal/axis"
	"github.com/banshee-data/pixelgrid/internal/glyph"
	"github.com/banshee-data/pixelgrid/internal/grid"
	"github.com/banshee-data/pixelgrid/internal/reduction"
	"gonum.org/v1/gonum/floats"
)

// Columns are the float64 columns a backend extracted for one request.
// Value is nil when the summary aggregates no field.
type Columns struct {
	X     []float64
	Y     []float64
	Value []float64
}

// Len is the number of rows.
func (c Columns) Len() int { return min(len(c.X), len(c.Y)) }

// Bounds returns the finite extent of vs usable under a. Log axes ignore
// non-positive values. ok is false when nothing usable remains.
func Bounds(vs []float64, a axis.Axis) (r axis.Range, ok bool) {
	usable := make([]float64, 0, len(vs))
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if a == axis.Log && v <= 0 {
			continue
		}
		usable = append(usable, v)
	}
	if len(usable) == 0 {
		return axis.Range{}, false
	}
	return axis.Range{Start: floats.Min(usable), End: floats.Max(usable)}, true
}

// Union widens r to include o.
func Union(r, o axis.Range) axis.Range {
	return axis.Range{Start: math.Min(r.Start, o.Start), End: math.Max(r.End, o.End)}
}

// ResolveProjections derives the projections for cv, computing data bounds
// across all parts only for dimensions without a configured range.
func ResolveProjections(cv *Canvas, parts ...Columns) (xp, yp axis.Projection, err error) {
	var bx, by axis.Range
	if !cv.HasXRange() {
		var ok bool
		if bx, ok = partBounds(parts, cv.XAxis(), func(c Columns) []float64 { return c.X }); !ok {
			return xp, yp, fmt.Errorf("x: %w: no finite values", axis.ErrDegenerateRange)
		}
	}
	if !cv.HasYRange() {
		var ok bool
		if by, ok = partBounds(parts, cv.YAxis(), func(c Columns) []float64 { return c.Y }); !ok {
			return xp, yp, fmt.Errorf("y: %w: no finite values", axis.ErrDegenerateRange)
		}
	}
	return cv.Projections(bx, by)
}

func partBounds(parts []Columns, a axis.Axis, pick func(Columns) []float64) (r axis.Range, found bool) {
	for _, p := range parts {
		b, ok := Bounds(pick(p), a)
		if !ok {
			continue
		}
		if found {
			r = Union(r, b)
		} else {
			r, found = b, true
		}
	}
	return r, found
}

// Accumulate rasterizes cols with g and feeds every covered pixel to acc.
func Accumulate(acc reduction.Accumulator, g glyph.Glyph, xp, yp axis.Projection, cols Columns) {
	n := cols.Len()
	g.Rasterize(cols.X[:n], cols.Y[:n], xp, yp, func(row, px, py int) {
		v := 0.0
		if cols.Value != nil {
			v = cols.Value[row]
		}
		acc.Add(px, py, v)
	})
}

// Aggregate is the single-pass kernel shared by in-memory backends.
func Aggregate(cv *Canvas, g glyph.Glyph, s reduction.Summary, cols Columns) (*grid.Grid, error) {
	xp, yp, err := ResolveProjections(cv, cols)
	if err != nil {
		return nil, err
	}
	acc := s.NewAccumulator(xp.N, yp.N)
	Accumulate(acc, g, xp, yp, cols)
	tracef("aggregated %d rows with %s", cols.Len(), s)
	return grid.New(acc.Result(), xp, yp, s.String()), nil
}
