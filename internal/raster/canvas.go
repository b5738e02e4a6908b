package raster

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/pixelgrid/internal/axis"
	"github.com/banshee-data/pixelgrid/internal/glyph"
	"github.com/banshee-data/pixelgrid/internal/grid"
	"github.com/banshee-data/pixelgrid/internal/reduction"
)

// DefaultPlotSize is the width and height used when Options leaves them 0.
const DefaultPlotSize = 600

// ErrInvalidCanvas is returned for a negative plot width or height.
var ErrInvalidCanvas = errors.New("invalid canvas")

// Options configures a Canvas. Zero values select the defaults: 600x600
// pixels, ranges derived from the data and linear axes.
type Options struct {
	PlotWidth  int
	PlotHeight int
	XRange     *axis.Range
	YRange     *axis.Range
	XAxisType  string
	YAxisType  string
}

// Canvas is the immutable target of a rasterization request: output
// resolution, optional data ranges and one axis policy per dimension.
type Canvas struct {
	plotWidth  int
	plotHeight int
	xRange     *axis.Range
	yRange     *axis.Range
	xAxis      axis.Axis
	yAxis      axis.Axis
}

// NewCanvas validates opts and resolves the axis policies by name.
func NewCanvas(opts Options) (*Canvas, error) {
	c := &Canvas{
		plotWidth:  opts.PlotWidth,
		plotHeight: opts.PlotHeight,
		xRange:     copyRange(opts.XRange),
		yRange:     copyRange(opts.YRange),
	}
	if c.plotWidth == 0 {
		c.plotWidth = DefaultPlotSize
	}
	if c.plotHeight == 0 {
		c.plotHeight = DefaultPlotSize
	}
	if c.plotWidth < 0 || c.plotHeight < 0 {
		return nil, fmt.Errorf("%w: plot size %dx%d must be positive", ErrInvalidCanvas, opts.PlotWidth, opts.PlotHeight)
	}

	var err error
	if c.xAxis, err = parseAxis(opts.XAxisType); err != nil {
		return nil, fmt.Errorf("x axis: %w", err)
	}
	if c.yAxis, err = parseAxis(opts.YAxisType); err != nil {
		return nil, fmt.Errorf("y axis: %w", err)
	}
	return c, nil
}

// MustCanvas is NewCanvas for fixed options known to be valid.
func MustCanvas(opts Options) *Canvas {
	c, err := NewCanvas(opts)
	if err != nil {
		panic(err)
	}
	return c
}

func parseAxis(name string) (axis.Axis, error) {
	if name == "" {
		return axis.Linear, nil
	}
	return axis.Parse(name)
}

func copyRange(r *axis.Range) *axis.Range {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

func (c *Canvas) PlotWidth() int    { return c.plotWidth }
func (c *Canvas) PlotHeight() int   { return c.plotHeight }
func (c *Canvas) XAxis() axis.Axis  { return c.xAxis }
func (c *Canvas) YAxis() axis.Axis  { return c.yAxis }
func (c *Canvas) HasXRange() bool   { return c.xRange != nil }
func (c *Canvas) HasYRange() bool   { return c.yRange != nil }
func (c *Canvas) NeedsBounds() bool { return c.xRange == nil || c.yRange == nil }

func (c *Canvas) String() string {
	return fmt.Sprintf("Canvas(%dx%d, x=%s, y=%s)", c.plotWidth, c.plotHeight, c.xAxis, c.yAxis)
}

// XRange returns the configured x range; ok is false when it is unset.
func (c *Canvas) XRange() (r axis.Range, ok bool) {
	if c.xRange == nil {
		return axis.Range{}, false
	}
	return *c.xRange, true
}

// YRange returns the configured y range; ok is false when it is unset.
func (c *Canvas) YRange() (r axis.Range, ok bool) {
	if c.yRange == nil {
		return axis.Range{}, false
	}
	return *c.yRange, true
}

// Projections resolves the pixel mapping for both dimensions. Configured
// ranges take precedence; dataX and dataY are used only where a range is
// unset.
func (c *Canvas) Projections(dataX, dataY axis.Range) (xp, yp axis.Projection, err error) {
	xr, yr := dataX, dataY
	if c.xRange != nil {
		xr = *c.xRange
	}
	if c.yRange != nil {
		yr = *c.yRange
	}
	if xp, err = c.xAxis.Project(xr, c.plotWidth); err != nil {
		return xp, yp, fmt.Errorf("x: %w", err)
	}
	if yp, err = c.yAxis.Project(yr, c.plotHeight); err != nil {
		return xp, yp, fmt.Errorf("y: %w", err)
	}
	return xp, yp, nil
}

// Points aggregates each row of source at its (x, y) pixel.
func (c *Canvas) Points(ctx context.Context, source any, x, y string, agg reduction.Summary) (*grid.Grid, error) {
	return Bypixel(ctx, source, c, glyph.Point{X: x, Y: y}, agg)
}

// Lines aggregates the pixels crossed by segments joining consecutive rows.
func (c *Canvas) Lines(ctx context.Context, source any, x, y string, agg reduction.Summary) (*grid.Grid, error) {
	return Bypixel(ctx, source, c, glyph.Line{X: x, Y: y}, agg)
}
