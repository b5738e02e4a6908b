package glyph

import (
	"math"
	"testing"

	"github.com/banshee-data/pixelgrid/internal/axis"
	"github.com/banshee-data/pixelgrid/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hit struct{ row, px, py int }

func collect(g Glyph, xs, ys []float64, xp, yp axis.Projection) []hit {
	var hits []hit
	g.Rasterize(xs, ys, xp, yp, func(row, px, py int) {
		hits = append(hits, hit{row, px, py})
	})
	return hits
}

func proj(t *testing.T, a axis.Axis, lo, hi float64, n int) axis.Projection {
	t.Helper()
	p, err := a.Project(axis.Range{Start: lo, End: hi}, n)
	require.NoError(t, err)
	return p
}

func TestValidate(t *testing.T) {
	rec := schema.NewRecord(
		schema.Field{Name: "x", Type: schema.Float64},
		schema.Field{Name: "y", Type: schema.Int64},
		schema.Field{Name: "name", Type: schema.String},
	)
	for _, g := range []Glyph{Point{"x", "y"}, Line{"x", "y"}} {
		t.Run(g.String(), func(t *testing.T) {
			assert.NoError(t, g.Validate(rec))
		})
	}

	tests := []struct {
		name string
		g    Glyph
	}{
		{"missing x", Point{X: "lon", Y: "y"}},
		{"missing y", Line{X: "x", Y: "lat"}},
		{"string field", Point{X: "x", Y: "name"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.g.Validate(rec)
			require.Error(t, err)
			assert.ErrorIs(t, err, schema.ErrMismatch)
		})
	}
}

func TestPointRasterize(t *testing.T) {
	xp := proj(t, axis.Linear, 0, 9, 10)
	yp := proj(t, axis.Linear, 0, 4, 5)

	xs := []float64{0, 9, 4.4, 20, 3, math.NaN()}
	ys := []float64{0, 4, 2.6, 1, -3, 1}
	got := collect(Point{"x", "y"}, xs, ys, xp, yp)
	assert.Equal(t, []hit{{0, 0, 0}, {1, 9, 4}, {2, 4, 3}}, got)
}

func TestPointRasterizeLog(t *testing.T) {
	xp := proj(t, axis.Log, 1, 1000, 4)
	yp := proj(t, axis.Linear, 0, 1, 2)

	got := collect(Point{"x", "y"}, []float64{1, 10, 100, 1000, 0}, []float64{0, 0, 1, 1, 0}, xp, yp)
	assert.Equal(t, []hit{{0, 0, 0}, {1, 1, 0}, {2, 2, 1}, {3, 3, 1}}, got)
}

func TestLineRasterizeHorizontal(t *testing.T) {
	xp := proj(t, axis.Linear, 0, 4, 5)
	yp := proj(t, axis.Linear, 0, 4, 5)

	got := collect(Line{"x", "y"}, []float64{0, 4}, []float64{2, 2}, xp, yp)
	assert.Equal(t, []hit{{0, 0, 2}, {0, 1, 2}, {0, 2, 2}, {0, 3, 2}, {0, 4, 2}}, got)
}

func TestLineSharedVertexOnce(t *testing.T) {
	xp := proj(t, axis.Linear, 0, 4, 5)
	yp := proj(t, axis.Linear, 0, 4, 5)

	got := collect(Line{"x", "y"}, []float64{0, 2, 2}, []float64{0, 0, 2}, xp, yp)
	assert.Equal(t, []hit{
		{0, 0, 0}, {0, 1, 0}, {0, 2, 0},
		{1, 2, 1}, {1, 2, 2},
	}, got)
}

func TestLineDiagonal(t *testing.T) {
	xp := proj(t, axis.Linear, 0, 3, 4)
	yp := proj(t, axis.Linear, 0, 3, 4)

	got := collect(Line{"x", "y"}, []float64{0, 3}, []float64{0, 3}, xp, yp)
	assert.Equal(t, []hit{{0, 0, 0}, {0, 1, 1}, {0, 2, 2}, {0, 3, 3}}, got)
}

func TestLineClipsOutsideSegment(t *testing.T) {
	xp := proj(t, axis.Linear, 0, 4, 5)
	yp := proj(t, axis.Linear, 0, 4, 5)

	// Segment from far left to the middle is clipped to the grid.
	got := collect(Line{"x", "y"}, []float64{-1000, 2}, []float64{1, 1}, xp, yp)
	assert.Equal(t, []hit{{0, 0, 1}, {0, 1, 1}, {0, 2, 1}}, got)

	// Entirely outside.
	got = collect(Line{"x", "y"}, []float64{-10, -5}, []float64{-10, -5}, xp, yp)
	assert.Empty(t, got)
}

func TestLineBreaksOnNaN(t *testing.T) {
	xp := proj(t, axis.Linear, 0, 4, 5)
	yp := proj(t, axis.Linear, 0, 4, 5)

	got := collect(Line{"x", "y"},
		[]float64{0, 1, math.NaN(), 3, 4},
		[]float64{0, 0, 0, 4, 4}, xp, yp)
	assert.Equal(t, []hit{{0, 0, 0}, {0, 1, 0}, {3, 3, 4}, {3, 4, 4}}, got)
}

func TestSinglePixelGlyphs(t *testing.T) {
	for _, a := range []axis.Axis{axis.Linear, axis.Log} {
		t.Run(a.String(), func(t *testing.T) {
			xp := proj(t, a, 1, 9, 1)
			yp := proj(t, a, 1, 9, 1)

			got := collect(Point{"x", "y"}, []float64{5, 1e6, 0.5, 9}, []float64{5, 5, 5, 1}, xp, yp)
			assert.Equal(t, []hit{{0, 0, 0}, {3, 0, 0}}, got)

			// Inside, wholly outside, then crossing back in.
			got = collect(Line{"x", "y"},
				[]float64{2, 3, 100, 200, 4},
				[]float64{2, 3, 2, 2, 2}, xp, yp)
			assert.Equal(t, []hit{{0, 0, 0}, {3, 0, 0}}, got)
		})
	}
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Point{"a", "b"}.Columns())
	assert.Equal(t, []string{"c", "d"}, Line{"c", "d"}.Columns())
}
