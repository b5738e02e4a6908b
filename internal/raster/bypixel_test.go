package raster

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/banshee-data/pixelgrid/internal/axis"
	"github.com/banshee-data/pixelgrid/internal/dispatch"
	"github.com/banshee-data/pixelgrid/internal/glyph"
	"github.com/banshee-data/pixelgrid/internal/grid"
	"github.com/banshee-data/pixelgrid/internal/reduction"
	"github.com/banshee-data/pixelgrid/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTable is a minimal tabular source whose columns are float64.
type fakeTable struct {
	cols map[string][]float64
	kind dispatch.Kind
}

func (f *fakeTable) Schema() (schema.Schema, error) {
	var fields []schema.Field
	for _, name := range []string{"x", "y", "v"} {
		if _, ok := f.cols[name]; ok {
			fields = append(fields, schema.Field{Name: name, Type: schema.Float64})
		}
	}
	return schema.Table(fields...), nil
}

// Lineage lets tests place fakeTable under an abstract kind.
func (f *fakeTable) Lineage() []dispatch.Kind {
	if f.kind == "" {
		return nil
	}
	return []dispatch.Kind{dispatch.KindOf(f), f.kind}
}

type scalarSource struct{}

func (scalarSource) Schema() (schema.Schema, error) {
	return schema.Schema{Shape: schema.Scalar, Rows: -1}, nil
}

type unregistered struct{}

func (unregistered) Schema() (schema.Schema, error) {
	return schema.Table(schema.Field{Name: "x", Type: schema.Float64}, schema.Field{Name: "y", Type: schema.Float64}), nil
}

type undiscoverable struct{}

// spy records calls and otherwise behaves as the shared kernel.
type spy struct {
	calls int
}

func (s *spy) pipeline(ctx context.Context, source any, sch schema.Schema, cv *Canvas, g glyph.Glyph, sum reduction.Summary) (*grid.Grid, error) {
	s.calls++
	f := source.(*fakeTable)
	cols := Columns{X: f.cols[g.Columns()[0]], Y: f.cols[g.Columns()[1]]}
	if c := sum.Column(); c != "" {
		cols.Value = f.cols[c]
	}
	return Aggregate(cv, g, sum, cols)
}

func register(t *testing.T, k dispatch.Kind, p Pipeline) {
	t.Helper()
	Register(k, p)
	t.Cleanup(func() { Pipelines.Unregister(k) })
}

func TestBypixelRejectsNonTabular(t *testing.T) {
	sp := &spy{}
	register(t, dispatch.KindFor[scalarSource](), sp.pipeline)

	cv := MustCanvas(Options{PlotWidth: 4, PlotHeight: 4})
	_, err := Bypixel(context.Background(), scalarSource{}, cv, glyph.Point{X: "x", Y: "y"}, reduction.Count{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotTabular)
	assert.Zero(t, sp.calls)
}

func TestBypixelSchemaMismatchNeverDispatches(t *testing.T) {
	sp := &spy{}
	register(t, "test-mismatch", sp.pipeline)

	src := &fakeTable{kind: "test-mismatch", cols: map[string][]float64{
		"y": {1, 2},
		"v": {1, 2},
	}}
	cv := MustCanvas(Options{PlotWidth: 4, PlotHeight: 4})

	_, err := cv.Points(context.Background(), src, "x", "y", reduction.Count{})
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrMismatch)
	assert.Zero(t, sp.calls)

	src.cols["x"] = []float64{1, 2}
	_, err = cv.Points(context.Background(), src, "x", "y", reduction.Sum{Field: "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrMismatch)
	assert.Zero(t, sp.calls)
}

func TestBypixelUnknownSource(t *testing.T) {
	cv := MustCanvas(Options{})
	_, err := Bypixel(context.Background(), undiscoverable{}, cv, glyph.Point{X: "x", Y: "y"}, reduction.Count{})
	assert.ErrorIs(t, err, schema.ErrUnknownSource)
}

func TestBypixelDispatchMiss(t *testing.T) {
	cv := MustCanvas(Options{PlotWidth: 2, PlotHeight: 2})
	_, err := cv.Points(context.Background(), unregistered{}, "x", "y", reduction.Count{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dispatch.ErrNoImplementation))
}

func TestBypixelBaseKindServesDerived(t *testing.T) {
	sp := &spy{}
	register(t, "test-columnar", sp.pipeline)

	src := &fakeTable{kind: "test-columnar", cols: map[string][]float64{
		"x": {0, 1, 1, 9, math.NaN()},
		"y": {0, 1, 1, 9, 3},
	}}
	cv := MustCanvas(Options{
		PlotWidth:  10,
		PlotHeight: 10,
		XRange:     &axis.Range{Start: 0, End: 9},
		YRange:     &axis.Range{Start: 0, End: 9},
	})

	g, err := cv.Points(context.Background(), src, "x", "y", reduction.Count{})
	require.NoError(t, err)
	assert.Equal(t, 1, sp.calls)

	assert.Equal(t, 10, g.Width)
	assert.Equal(t, 10, g.Height)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, g.XIndex)
	assert.Equal(t, 1.0, g.At(0, 0))
	assert.Equal(t, 2.0, g.At(1, 1))
	assert.Equal(t, 1.0, g.At(9, 9))
	assert.Equal(t, 4.0, g.Total())
	assert.Equal(t, "count()", g.Reduction)
}

func TestBypixelDerivesRangesFromData(t *testing.T) {
	sp := &spy{}
	register(t, "test-bounds", sp.pipeline)

	src := &fakeTable{kind: "test-bounds", cols: map[string][]float64{
		"x": {10, 20, 30},
		"y": {1, 10, 100},
		"v": {1, 2, 3},
	}}
	cv := MustCanvas(Options{PlotWidth: 3, PlotHeight: 3, YAxisType: "log"})

	g, err := cv.Lines(context.Background(), src, "x", "y", reduction.Max{Field: "v"})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10, 20, 30}, g.XIndex, 1e-9)
	assert.InDeltaSlice(t, []float64{1, 10, 100}, g.YIndex, 1e-9)
	assert.Equal(t, axis.Log, g.YAxis)
	// Segment 0 covers (0,0)-(1,1) with v=1; segment 1 covers (2,2) with v=2.
	assert.Equal(t, 1.0, g.At(0, 0))
	assert.Equal(t, 1.0, g.At(1, 1))
	assert.Equal(t, 2.0, g.At(2, 2))
	assert.True(t, math.IsNaN(g.At(2, 0)))
}

func TestBypixelDegenerateData(t *testing.T) {
	sp := &spy{}
	register(t, "test-degenerate", sp.pipeline)

	src := &fakeTable{kind: "test-degenerate", cols: map[string][]float64{
		"x": {5, 5, 5},
		"y": {1, 2, 3},
	}}
	cv := MustCanvas(Options{PlotWidth: 3, PlotHeight: 3})
	_, err := cv.Points(context.Background(), src, "x", "y", reduction.Count{})
	require.Error(t, err)
	assert.ErrorIs(t, err, axis.ErrDegenerateRange)
	assert.Equal(t, 1, sp.calls)
}

func TestBypixelLogging(t *testing.T) {
	var ops, diag bytes.Buffer
	SetLogWriters(&ops, &diag, nil)
	t.Cleanup(func() { SetLogWriters(nil, nil, nil) })

	sp := &spy{}
	register(t, "test-logging", sp.pipeline)
	src := &fakeTable{kind: "test-logging", cols: map[string][]float64{"x": {1, 1}, "y": {1, 2}}}
	cv := MustCanvas(Options{PlotWidth: 2, PlotHeight: 2})

	_, err := cv.Points(context.Background(), src, "x", "y", reduction.Count{})
	require.Error(t, err)
	assert.Contains(t, diag.String(), "Point(x, y)")
	assert.Contains(t, ops.String(), "failed")
}

func TestBounds(t *testing.T) {
	r, ok := Bounds([]float64{3, math.NaN(), -2, math.Inf(1), 7}, axis.Linear)
	require.True(t, ok)
	assert.Equal(t, axis.Range{Start: -2, End: 7}, r)

	r, ok = Bounds([]float64{-5, 0, 2, 50}, axis.Log)
	require.True(t, ok)
	assert.Equal(t, axis.Range{Start: 2, End: 50}, r)

	_, ok = Bounds([]float64{math.NaN()}, axis.Linear)
	assert.False(t, ok)

	assert.Equal(t, axis.Range{Start: -1, End: 9}, Union(axis.Range{Start: 0, End: 9}, axis.Range{Start: -1, End: 3}))
}
