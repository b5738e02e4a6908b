package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/banshee-data/pixelgrid/internal/axis"
	"github.com/banshee-data/pixelgrid/internal/grid"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot margins in pixels around the heatmap for axes and title.
const (
	marginX = 120
	marginY = 100
	// vgimg draws PNGs at 96 dpi; vg lengths are in points.
	pixelsToPoints = 72.0 / 96.0
)

// plotGrid presents a grid to gonum/plot. Log axes are drawn in mapped
// (log10) coordinates so cell edges stay evenly spaced, and logColor maps
// values through log10 before coloring.
type plotGrid struct {
	*grid.Grid
	logColor bool
}

func (p plotGrid) X(c int) float64 { return p.XAxis.Mapper(p.Grid.X(c)) }
func (p plotGrid) Y(r int) float64 { return p.YAxis.Mapper(p.Grid.Y(r)) }

func (p plotGrid) Z(c, r int) float64 {
	v := p.Grid.Z(c, r)
	if !p.logColor {
		return v
	}
	if v <= 0 {
		return math.NaN()
	}
	return math.Log10(v)
}

func axisLabel(name string, a axis.Axis) string {
	if a == axis.Log {
		return "log10 " + name
	}
	return name
}

// NewPlot builds the heatmap plot of g with one cell per pixel.
func NewPlot(g *grid.Grid, o Options) (*plot.Plot, error) {
	lo, hi, ok := g.Extent()
	if !ok {
		return nil, fmt.Errorf("grid %s has no finite values", g.Reduction)
	}

	data := plotGrid{Grid: g, logColor: o.LogColor}
	if o.LogColor {
		if hi <= 0 {
			return nil, fmt.Errorf("grid %s has no positive values for log color", g.Reduction)
		}
		lo, hi = math.Inf(1), math.Log10(hi)
		c, r := g.Dims()
		for i := 0; i < c; i++ {
			for j := 0; j < r; j++ {
				if z := data.Z(i, j); !math.IsNaN(z) {
					lo = math.Min(lo, z)
				}
			}
		}
	}

	p := plot.New()
	p.Title.Text = o.Title
	if p.Title.Text == "" {
		p.Title.Text = g.Reduction
	}
	p.X.Label.Text = axisLabel("x", g.XAxis)
	p.Y.Label.Text = axisLabel("y", g.YAxis)

	h := plotter.NewHeatMap(data, palette.Heat(o.levels(), 1))
	if lo == hi {
		hi = lo + 1
	}
	h.Min, h.Max = lo, hi
	h.NaN = color.Transparent
	p.Add(h)
	return p, nil
}

// WritePNG draws g as a PNG heatmap.
func WritePNG(w io.Writer, g *grid.Grid, o Options) error {
	p, err := NewPlot(g, o)
	if err != nil {
		return err
	}
	width := vg.Length(float64(g.Width+marginX) * pixelsToPoints)
	height := vg.Length(float64(g.Height+marginY) * pixelsToPoints)
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
