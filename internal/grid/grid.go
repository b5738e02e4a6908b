// Package grid holds the aggregated output of a rasterization request.
package grid

import (
	"encoding/json"
	"math"

	"github.com/banshee-data/pixelgrid/internal/axis"
	"gonum.org/v1/gonum/mat"
)

// Grid is a Width x Height raster of aggregated values. Values is indexed
// (row=py, col=px); XIndex and YIndex hold the data-space coordinate of
// every pixel center.
type Grid struct {
	Width     int
	Height    int
	XAxis     axis.Axis
	YAxis     axis.Axis
	XIndex    []float64
	YIndex    []float64
	Reduction string
	Values    *mat.Dense
}

// New builds a Grid from a result matrix and the projections that produced
// it.
func New(values *mat.Dense, xp, yp axis.Projection, reduction string) *Grid {
	return &Grid{
		Width:     xp.N,
		Height:    yp.N,
		XAxis:     xp.Axis,
		YAxis:     yp.Axis,
		XIndex:    xp.Index(),
		YIndex:    yp.Index(),
		Reduction: reduction,
		Values:    values,
	}
}

// At returns the value at pixel (px, py).
func (g *Grid) At(px, py int) float64 {
	return g.Values.At(py, px)
}

// Dims, Z, X and Y implement gonum.org/v1/plot/plotter.GridXYZ.
func (g *Grid) Dims() (c, r int)   { return g.Width, g.Height }
func (g *Grid) Z(c, r int) float64 { return g.Values.At(r, c) }
func (g *Grid) X(c int) float64    { return g.XIndex[c] }
func (g *Grid) Y(r int) float64    { return g.YIndex[r] }

// Extent returns the smallest and largest finite values. ok is false when
// every cell is NaN.
func (g *Grid) Extent() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range g.Values.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		ok = true
	}
	return lo, hi, ok
}

// Total sums every finite cell.
func (g *Grid) Total() float64 {
	var sum float64
	for _, v := range g.Values.RawMatrix().Data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			sum += v
		}
	}
	return sum
}

type gridJSON struct {
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	XAxis     axis.Axis    `json:"x_axis"`
	YAxis     axis.Axis    `json:"y_axis"`
	XIndex    []float64    `json:"x_index"`
	YIndex    []float64    `json:"y_index"`
	Reduction string       `json:"reduction"`
	Values    [][]*float64 `json:"values"`
}

// MarshalJSON writes values row by row (py outer); NaN cells become null.
func (g *Grid) MarshalJSON() ([]byte, error) {
	out := gridJSON{
		Width:     g.Width,
		Height:    g.Height,
		XAxis:     g.XAxis,
		YAxis:     g.YAxis,
		XIndex:    g.XIndex,
		YIndex:    g.YIndex,
		Reduction: g.Reduction,
		Values:    make([][]*float64, g.Height),
	}
	for r := 0; r < g.Height; r++ {
		row := make([]*float64, g.Width)
		for c := 0; c < g.Width; c++ {
			v := g.Values.At(r, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			row[c] = &v
		}
		out.Values[r] = row
	}
	return json.Marshal(out)
}
