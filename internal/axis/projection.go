package axis

import "math"

// Range is a closed data-space interval. Start may exceed End, which flips
// the pixel direction.
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Width returns End - Start in data space.
func (r Range) Width() float64 { return r.End - r.Start }

// Projection maps data-space values of one dimension onto N pixels.
type Projection struct {
	Axis  Axis
	Range Range
	S     float64
	T     float64
	N     int
}

// Project returns the continuous pixel coordinate of x.
func (p Projection) Project(x float64) float64 {
	return p.Axis.Mapper(x)*p.S + p.T
}

// Position returns the continuous pixel coordinate of x for binning and
// clipping. It equals Project when N > 1. A single pixel has no scale, so
// there the range maps onto [-0.5, 0.5] around pixel 0.
func (p Projection) Position(x float64) float64 {
	if p.N != 1 {
		return p.Project(x)
	}
	lo, hi := p.Axis.Mapper(p.Range.Start), p.Axis.Mapper(p.Range.End)
	return (p.Axis.Mapper(x)-lo)/(hi-lo) - 0.5
}

// Pixel returns the pixel bin holding x, rounding to the nearest pixel
// center. ok is false when x falls outside the grid or maps to NaN.
func (p Projection) Pixel(x float64) (px int, ok bool) {
	if p.N == 1 {
		v := p.Position(x)
		return 0, v >= -0.5 && v <= 0.5
	}
	v := math.Round(p.Project(x))
	if math.IsNaN(v) || v < 0 || v > float64(p.N-1) {
		return 0, false
	}
	return int(v), true
}

// Index returns the data-space coordinates of every pixel center.
func (p Projection) Index() []float64 {
	if p.N == 1 {
		// A single pixel has no scale; its center is the range midpoint.
		mid := (p.Axis.Mapper(p.Range.Start) + p.Axis.Mapper(p.Range.End)) / 2
		return []float64{p.Axis.InverseMapper(mid)}
	}
	return p.Axis.ComputeIndex(p.N, p.S, p.T)
}
