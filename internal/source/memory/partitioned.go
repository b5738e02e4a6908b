package memory

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/banshee-data/pixelgrid/internal/axis"
	"github.com/banshee-data/pixelgrid/internal/dispatch"
	"github.com/banshee-data/pixelgrid/internal/glyph"
	"github.com/banshee-data/pixelgrid/internal/grid"
	"github.com/banshee-data/pixelgrid/internal/raster"
	"github.com/banshee-data/pixelgrid/internal/reduction"
	"github.com/banshee-data/pixelgrid/internal/schema"
	"golang.org/x/sync/errgroup"
)

// Partitioned is a table split into frames that share one schema. Its
// pipeline aggregates partitions concurrently and merges the accumulators.
//
// Line glyphs do not join the last row of one partition to the first row of
// the next.
type Partitioned struct {
	Parts []*Frame
	// Workers bounds concurrency; 0 means GOMAXPROCS.
	Workers int
}

// Split cuts f into n frames of near-equal length.
func Split(f *Frame, n int) (*Partitioned, error) {
	if n < 1 {
		n = 1
	}
	p := &Partitioned{}
	size := (f.rows + n - 1) / n
	if size == 0 {
		size = 1
	}
	for lo := 0; lo < f.rows || len(p.Parts) == 0; lo += size {
		hi := min(lo+size, f.rows)
		part := NewFrame()
		for _, name := range f.names {
			if err := part.Add(name, sliceColumn(f.cols[name], lo, hi)); err != nil {
				return nil, err
			}
		}
		p.Parts = append(p.Parts, part)
		if hi == f.rows {
			break
		}
	}
	return p, nil
}

// Schema implements schema.Describer. Every partition must report the same
// record.
func (p *Partitioned) Schema() (schema.Schema, error) {
	if len(p.Parts) == 0 {
		return schema.Table(), nil
	}
	first, err := p.Parts[0].Schema()
	if err != nil {
		return first, err
	}
	for i, part := range p.Parts[1:] {
		s, err := part.Schema()
		if err != nil {
			return s, err
		}
		if s.Measure.String() != first.Measure.String() {
			return schema.Schema{}, fmt.Errorf("%w: partition %d is %s, partition 0 is %s", schema.ErrMismatch, i+1, s.Measure, first.Measure)
		}
		first.Rows += s.Rows
	}
	return first, nil
}

func (p *Partitioned) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func partitionedPipeline(ctx context.Context, source any, _ schema.Schema, cv *raster.Canvas, g glyph.Glyph, s reduction.Summary) (*grid.Grid, error) {
	p, ok := source.(*Partitioned)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not partitioned", dispatch.ErrNoImplementation, dispatch.KindOf(source))
	}

	cols := make([]raster.Columns, len(p.Parts))
	for i, part := range p.Parts {
		var err error
		if cols[i], err = Extract(part, g, s); err != nil {
			return nil, fmt.Errorf("partition %d: %w", i, err)
		}
	}

	xp, yp, err := p.projections(ctx, cv, cols)
	if err != nil {
		return nil, err
	}

	accs := make([]reduction.Accumulator, len(cols))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers())
	for i := range cols {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			acc := s.NewAccumulator(xp.N, yp.N)
			raster.Accumulate(acc, g, xp, yp, cols[i])
			accs[i] = acc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	total := s.NewAccumulator(xp.N, yp.N)
	for i, acc := range accs {
		if err := total.Merge(acc); err != nil {
			return nil, fmt.Errorf("partition %d: %w", i, err)
		}
	}
	diagf("merged %d partitions with %s", len(accs), s)
	return grid.New(total.Result(), xp, yp, s.String()), nil
}

// projections computes per-partition bounds concurrently when the canvas
// leaves a range unset.
func (p *Partitioned) projections(ctx context.Context, cv *raster.Canvas, cols []raster.Columns) (xp, yp axis.Projection, err error) {
	if !cv.NeedsBounds() {
		return cv.Projections(axis.Range{}, axis.Range{})
	}

	type bounds struct {
		x, y     axis.Range
		okX, okY bool
	}
	found := make([]bounds, len(cols))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers())
	for i := range cols {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b := &found[i]
			b.x, b.okX = raster.Bounds(cols[i].X, cv.XAxis())
			b.y, b.okY = raster.Bounds(cols[i].Y, cv.YAxis())
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return xp, yp, err
	}

	var bx, by axis.Range
	var okX, okY bool
	for _, b := range found {
		if b.okX {
			bx, okX = unionOrFirst(bx, b.x, okX), true
		}
		if b.okY {
			by, okY = unionOrFirst(by, b.y, okY), true
		}
	}
	if !okX && !cv.HasXRange() {
		return xp, yp, fmt.Errorf("x: %w: no finite values", axis.ErrDegenerateRange)
	}
	if !okY && !cv.HasYRange() {
		return xp, yp, fmt.Errorf("y: %w: no finite values", axis.ErrDegenerateRange)
	}
	return cv.Projections(bx, by)
}

func unionOrFirst(acc, r axis.Range, have bool) axis.Range {
	if !have {
		return r
	}
	return raster.Union(acc, r)
}

func sliceColumn(col any, lo, hi int) any {
	switch c := col.(type) {
	case []float64:
		return c[lo:hi]
	case []int64:
		return c[lo:hi]
	case []int:
		return c[lo:hi]
	case []bool:
		return c[lo:hi]
	case []string:
		return c[lo:hi]
	}
	return col.([]time.Time)[lo:hi]
}
