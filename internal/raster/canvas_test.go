package raster

import (
	"testing"

	"github.com/banshee-data/pixelgrid/internal/axis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCanvasDefaults(t *testing.T) {
	c, err := NewCanvas(Options{})
	require.NoError(t, err)

	assert.Equal(t, 600, c.PlotWidth())
	assert.Equal(t, 600, c.PlotHeight())
	assert.Equal(t, axis.Linear, c.XAxis())
	assert.Equal(t, axis.Linear, c.YAxis())
	assert.False(t, c.HasXRange())
	assert.False(t, c.HasYRange())
	assert.True(t, c.NeedsBounds())

	_, ok := c.XRange()
	assert.False(t, ok)
}

func TestNewCanvasOptions(t *testing.T) {
	xr := &axis.Range{Start: 1, End: 100}
	c, err := NewCanvas(Options{
		PlotWidth:  800,
		PlotHeight: 300,
		XRange:     xr,
		YRange:     &axis.Range{Start: -1, End: 1},
		XAxisType:  "log",
		YAxisType:  "linear",
	})
	require.NoError(t, err)

	assert.Equal(t, 800, c.PlotWidth())
	assert.Equal(t, 300, c.PlotHeight())
	assert.Equal(t, axis.Log, c.XAxis())
	assert.Equal(t, axis.Linear, c.YAxis())
	assert.False(t, c.NeedsBounds())

	// The canvas keeps its own copy of the ranges.
	xr.End = 5
	got, ok := c.XRange()
	require.True(t, ok)
	assert.Equal(t, axis.Range{Start: 1, End: 100}, got)

	assert.Equal(t, "Canvas(800x300, x=log, y=linear)", c.String())
}

func TestNewCanvasUnknownAxis(t *testing.T) {
	_, err := NewCanvas(Options{XAxisType: "bogus"})
	require.Error(t, err)
	assert.ErrorIs(t, err, axis.ErrUnknownAxis)

	_, err = NewCanvas(Options{YAxisType: "polar"})
	assert.ErrorIs(t, err, axis.ErrUnknownAxis)
}

func TestNewCanvasInvalidSize(t *testing.T) {
	_, err := NewCanvas(Options{PlotWidth: -1})
	assert.ErrorIs(t, err, ErrInvalidCanvas)

	_, err = NewCanvas(Options{PlotHeight: -20})
	assert.ErrorIs(t, err, ErrInvalidCanvas)
}

func TestMustCanvasPanics(t *testing.T) {
	assert.Panics(t, func() { MustCanvas(Options{XAxisType: "bogus"}) })
	assert.NotPanics(t, func() { MustCanvas(Options{}) })
}

func TestCanvasProjections(t *testing.T) {
	c := MustCanvas(Options{
		PlotWidth:  10,
		PlotHeight: 10,
		XRange:     &axis.Range{Start: 0, End: 9},
	})

	// The configured x range wins; y comes from the data bounds.
	xp, yp, err := c.Projections(axis.Range{Start: 100, End: 200}, axis.Range{Start: 0, End: 18})
	require.NoError(t, err)
	assert.Equal(t, 1.0, xp.S)
	assert.Equal(t, 0.0, xp.T)
	assert.Equal(t, 0.5, yp.S)
	assert.Equal(t, 10, yp.N)

	_, _, err = c.Projections(axis.Range{}, axis.Range{Start: 3, End: 3})
	assert.ErrorIs(t, err, axis.ErrDegenerateRange)
}

func TestCanvasEndToEndIndex(t *testing.T) {
	c := MustCanvas(Options{
		PlotWidth:  10,
		PlotHeight: 10,
		XRange:     &axis.Range{Start: 0, End: 9},
		YRange:     &axis.Range{Start: 0, End: 9},
	})
	s, tr, err := c.XAxis().ScaleAndTranslation(axis.Range{Start: 0, End: 9}, c.PlotWidth())
	require.NoError(t, err)
	assert.Equal(t, 1.0, s)
	assert.Equal(t, 0.0, tr)
	assert.Equal(t,
		[]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		c.XAxis().ComputeIndex(c.PlotWidth(), s, tr))
}
