package memory

import (
	"context"
	"fmt"

	"github.com/banshee-data/pixelgrid/internal/dispatch"
	"github.com/banshee-data/pixelgrid/internal/glyph"
	"github.com/banshee-data/pixelgrid/internal/grid"
	"github.com/banshee-data/pixelgrid/internal/raster"
	"github.com/banshee-data/pixelgrid/internal/reduction"
	"github.com/banshee-data/pixelgrid/internal/schema"
)

func init() {
	raster.Register(Columnar, columnarPipeline)
	raster.Register(dispatch.KindFor[*Partitioned](), partitionedPipeline)
}

// Extract pulls the glyph coordinates and the summary column out of src.
func Extract(src ColumnSource, g glyph.Glyph, s reduction.Summary) (raster.Columns, error) {
	var cols raster.Columns
	names := g.Columns()
	if len(names) != 2 {
		return cols, fmt.Errorf("glyph %s: want 2 coordinate columns, got %d", g, len(names))
	}
	var err error
	if cols.X, err = src.Float64s(names[0]); err != nil {
		return cols, err
	}
	if cols.Y, err = src.Float64s(names[1]); err != nil {
		return cols, err
	}
	if c := s.Column(); c != "" {
		if cols.Value, err = src.Float64s(c); err != nil {
			return cols, err
		}
	}
	return cols, nil
}

func columnarPipeline(ctx context.Context, source any, _ schema.Schema, cv *raster.Canvas, g glyph.Glyph, s reduction.Summary) (*grid.Grid, error) {
	src, ok := source.(ColumnSource)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no float64 columns", dispatch.ErrNoImplementation, dispatch.KindOf(source))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cols, err := Extract(src, g, s)
	if err != nil {
		return nil, err
	}
	return raster.Aggregate(cv, g, s, cols)
}
