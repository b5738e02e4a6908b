package memory

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/banshee-data/pixelgrid/internal/axis"
	"github.com/banshee-data/pixelgrid/internal/dispatch"
	"github.com/banshee-data/pixelgrid/internal/glyph"
	"github.com/banshee-data/pixelgrid/internal/grid"
	"github.com/banshee-data/pixelgrid/internal/raster"
	"github.com/banshee-data/pixelgrid/internal/reduction"
	"github.com/banshee-data/pixelgrid/internal/schema"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame() *Frame {
	return NewFrame().
		MustAdd("x", []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 9, math.NaN()}).
		MustAdd("y", []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 0, 4}).
		MustAdd("v", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}).
		MustAdd("label", []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"})
}

func squareCanvas(n int) *raster.Canvas {
	return raster.MustCanvas(raster.Options{
		PlotWidth:  n,
		PlotHeight: n,
		XRange:     &axis.Range{Start: 0, End: 9},
		YRange:     &axis.Range{Start: 0, End: 9},
	})
}

func values(g *grid.Grid) []float64 {
	return append([]float64(nil), g.Values.RawMatrix().Data...)
}

func TestFrameSchema(t *testing.T) {
	f := sampleFrame()
	require.NoError(t, f.Add("when", make([]time.Time, 12)))

	s, err := f.Schema()
	require.NoError(t, err)
	assert.True(t, s.IsTabular())
	assert.Equal(t, int64(12), s.Rows)
	assert.Equal(t, "{x: float64, y: int64, v: float64, label: string, when: datetime}", s.Measure.String())
	assert.Equal(t, []string{"x", "y", "v", "label", "when"}, f.Names())
}

func TestFrameAddRejects(t *testing.T) {
	f := NewFrame().MustAdd("x", []float64{1, 2})
	assert.Error(t, f.Add("y", []float64{1}))
	assert.Error(t, f.Add("z", []float32{1, 2}))
	assert.NoError(t, f.Add("x", []int{3, 4, 5}), "sole column may be replaced with any length")
	assert.Equal(t, 3, f.Len())
}

func TestFrameLineage(t *testing.T) {
	f := NewFrame()
	assert.Equal(t, []dispatch.Kind{"*memory.Frame", Columnar}, f.Lineage())

	_, kind, err := raster.Pipelines.Resolve(f)
	require.NoError(t, err)
	assert.Equal(t, Columnar, kind)
}

func TestFrameFloat64s(t *testing.T) {
	f := sampleFrame()
	ys, err := f.Float64s("y")
	require.NoError(t, err)
	assert.Equal(t, 9.0, ys[9])

	_, err = f.Float64s("label")
	assert.ErrorIs(t, err, schema.ErrMismatch)
	_, err = f.Float64s("nope")
	assert.ErrorIs(t, err, schema.ErrMismatch)
}

func TestFramePoints(t *testing.T) {
	g, err := squareCanvas(10).Points(context.Background(), sampleFrame(), "x", "y", reduction.Count{})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		assert.Equal(t, 1.0, g.At(i, i), "diagonal pixel %d", i)
	}
	assert.Equal(t, 1.0, g.At(9, 0))
	assert.Equal(t, 11.0, g.Total())
}

func TestFrameNonNumericCoordinate(t *testing.T) {
	_, err := squareCanvas(10).Points(context.Background(), sampleFrame(), "label", "y", reduction.Count{})
	assert.ErrorIs(t, err, schema.ErrMismatch)
}

func TestFrameCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := squareCanvas(10).Points(ctx, sampleFrame(), "x", "y", reduction.Count{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplit(t *testing.T) {
	p, err := Split(sampleFrame(), 5)
	require.NoError(t, err)
	require.Len(t, p.Parts, 4)
	assert.Equal(t, 3, p.Parts[0].Len())
	assert.Equal(t, 3, p.Parts[3].Len())

	s, err := p.Schema()
	require.NoError(t, err)
	assert.Equal(t, int64(12), s.Rows)

	empty, err := Split(NewFrame(), 3)
	require.NoError(t, err)
	assert.Len(t, empty.Parts, 1)
}

func TestPartitionedSchemaMismatch(t *testing.T) {
	p := &Partitioned{Parts: []*Frame{
		NewFrame().MustAdd("x", []float64{1}),
		NewFrame().MustAdd("x", []string{"a"}),
	}}
	_, err := p.Schema()
	assert.ErrorIs(t, err, schema.ErrMismatch)
}

func TestPartitionedMatchesFrame(t *testing.T) {
	summaries := []reduction.Summary{
		reduction.Count{},
		reduction.Any{},
		reduction.Sum{Field: "v"},
		reduction.Mean{Field: "v"},
		reduction.Min{Field: "v"},
		reduction.Max{Field: "v"},
	}
	canvases := map[string]*raster.Canvas{
		"fixed":   squareCanvas(5),
		"bounded": raster.MustCanvas(raster.Options{PlotWidth: 7, PlotHeight: 4}),
	}
	for cname, cv := range canvases {
		for _, s := range summaries {
			t.Run(cname+"/"+s.String(), func(t *testing.T) {
				f := sampleFrame()
				want, err := cv.Points(context.Background(), f, "x", "y", s)
				require.NoError(t, err)

				p, err := Split(f, 4)
				require.NoError(t, err)
				p.Workers = 2
				got, err := cv.Points(context.Background(), p, "x", "y", s)
				require.NoError(t, err)

				if diff := cmp.Diff(values(want), values(got), cmpopts.EquateNaNs(), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
					t.Errorf("partitioned grid differs (-frame +partitioned):\n%s", diff)
				}
				assert.Equal(t, want.XIndex, got.XIndex)
				assert.Equal(t, want.YIndex, got.YIndex)
			})
		}
	}
}

func TestPartitionedCanceled(t *testing.T) {
	p, err := Split(sampleFrame(), 3)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = raster.MustCanvas(raster.Options{PlotWidth: 4, PlotHeight: 4}).Points(ctx, p, "x", "y", reduction.Count{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPartitionedAllNaNPartition(t *testing.T) {
	p := &Partitioned{Parts: []*Frame{
		NewFrame().MustAdd("x", []float64{math.NaN()}).MustAdd("y", []float64{math.NaN()}),
		NewFrame().MustAdd("x", []float64{0, 4}).MustAdd("y", []float64{0, 4}),
	}}
	g, err := raster.MustCanvas(raster.Options{PlotWidth: 5, PlotHeight: 5}).Points(context.Background(), p, "x", "y", reduction.Count{})
	require.NoError(t, err)
	assert.Equal(t, 2.0, g.Total())
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, g.XIndex)
}

func TestSinglePixelCanvasHonorsRanges(t *testing.T) {
	f := NewFrame().
		MustAdd("x", []float64{5, 1e6, -1e6, 9}).
		MustAdd("y", []float64{5, 5, 5, 10})
	cv := squareCanvas(1)

	g, err := cv.Points(context.Background(), f, "x", "y", reduction.Count{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, g.At(0, 0))
	assert.Equal(t, []float64{4.5}, g.XIndex)

	p, err := Split(f, 2)
	require.NoError(t, err)
	g, err = cv.Points(context.Background(), p, "x", "y", reduction.Count{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, g.At(0, 0))

	path := NewFrame().
		MustAdd("x", []float64{5, 1e6, 2e6}).
		MustAdd("y", []float64{5, 5, 5})
	g, err = cv.Lines(context.Background(), path, "x", "y", reduction.Count{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, g.At(0, 0), "segment beyond the range adds nothing")
}

// impostor claims the partitioned kind without being one.
type impostor struct{}

func (impostor) Lineage() []dispatch.Kind {
	return []dispatch.Kind{"memory.impostor", dispatch.KindFor[*Partitioned]()}
}

func TestPartitionedPipelineRejectsForeignSource(t *testing.T) {
	var sch schema.Schema
	_, err := raster.Dispatch(context.Background(), impostor{}, sch, squareCanvas(4), glyph.Point{X: "x", Y: "y"}, reduction.Count{})
	assert.ErrorIs(t, err, dispatch.ErrNoImplementation)
}
