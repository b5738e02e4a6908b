// Package ggtable serves go-gg tables to raster.Bypixel.
//
// An ungrouped *table.Table is discovered and dispatched directly. Grouped
// tables are wrapped in Grouped; each group is rasterized separately into
// one shared grid, so lines never join rows of different groups.
package ggtable

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/aclements/go-gg/generic/slice"
	"github.com/aclements/go-gg/table"
	"github.com/banshee-data/pixelgrid/internal/dispatch"
	"github.com/banshee-data/pixelgrid/internal/glyph"
	"github.com/banshee-data/pixelgrid/internal/grid"
	"github.com/banshee-data/pixelgrid/internal/raster"
	"github.com/banshee-data/pixelgrid/internal/reduction"
	"github.com/banshee-data/pixelgrid/internal/schema"
)

func init() {
	tableKind := dispatch.KindFor[*table.Table]()
	schema.RegisterDiscoverer(tableKind, func(src any) (schema.Schema, error) {
		return Describe(src.(*table.Table))
	})
	raster.Register(tableKind, func(ctx context.Context, src any, sch schema.Schema, cv *raster.Canvas, g glyph.Glyph, s reduction.Summary) (*grid.Grid, error) {
		return aggregate(ctx, src.(*table.Table), cv, g, s)
	})
	raster.Register(dispatch.KindFor[Grouped](), func(ctx context.Context, src any, sch schema.Schema, cv *raster.Canvas, g glyph.Glyph, s reduction.Summary) (*grid.Grid, error) {
		return aggregate(ctx, src.(Grouped).G, cv, g, s)
	})
}

// Grouped wraps a grouped go-gg table.
type Grouped struct {
	G table.Grouping
}

// Schema implements schema.Describer.
func (g Grouped) Schema() (schema.Schema, error) { return Describe(g.G) }

// Describe infers the tabular schema of g. Column types come from the first
// group; row counts are summed across groups.
func Describe(g table.Grouping) (schema.Schema, error) {
	gids := g.Tables()
	var first *table.Table
	var rows int64
	for _, gid := range gids {
		t := g.Table(gid)
		if first == nil {
			first = t
		}
		rows += int64(t.Len())
	}
	fields := make([]schema.Field, 0, len(g.Columns()))
	for _, name := range g.Columns() {
		typ := schema.Unknown
		if first != nil {
			typ = columnType(first.Column(name))
		}
		fields = append(fields, schema.Field{Name: name, Type: typ})
	}
	s := schema.Table(fields...)
	s.Rows = rows
	return s, nil
}

var timeType = reflect.TypeFor[time.Time]()

func columnType(col any) schema.Type {
	t := reflect.TypeOf(col)
	if t == nil || t.Kind() != reflect.Slice {
		return schema.Unknown
	}
	elem := t.Elem()
	if elem == timeType {
		return schema.Time
	}
	switch elem.Kind() {
	case reflect.Float32, reflect.Float64:
		return schema.Float64
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return schema.Int64
	case reflect.Bool:
		return schema.Bool
	case reflect.String:
		return schema.String
	}
	return schema.Unknown
}

// floats converts a numeric column. slice.Convert panics on non-numeric
// input, which validation has already excluded; the recover turns a
// mistyped group into an error.
func floats(t *table.Table, name string) (out []float64, err error) {
	col := t.Column(name)
	if col == nil {
		return nil, fmt.Errorf("%w: no column %q", schema.ErrMismatch, name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: column %q: %v", schema.ErrMismatch, name, r)
		}
	}()
	slice.Convert(&out, col)
	return out, nil
}

func columns(t *table.Table, g glyph.Glyph, s reduction.Summary) (raster.Columns, error) {
	var cols raster.Columns
	names := g.Columns()
	var err error
	if cols.X, err = floats(t, names[0]); err != nil {
		return cols, err
	}
	if cols.Y, err = floats(t, names[1]); err != nil {
		return cols, err
	}
	if c := s.Column(); c != "" {
		if cols.Value, err = floats(t, c); err != nil {
			return cols, err
		}
	}
	return cols, nil
}

func aggregate(ctx context.Context, gr table.Grouping, cv *raster.Canvas, g glyph.Glyph, s reduction.Summary) (*grid.Grid, error) {
	var parts []raster.Columns
	for _, gid := range gr.Tables() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cols, err := columns(gr.Table(gid), g, s)
		if err != nil {
			return nil, fmt.Errorf("group %v: %w", gid, err)
		}
		parts = append(parts, cols)
	}

	xp, yp, err := raster.ResolveProjections(cv, parts...)
	if err != nil {
		return nil, err
	}
	acc := s.NewAccumulator(xp.N, yp.N)
	for _, cols := range parts {
		raster.Accumulate(acc, g, xp, yp, cols)
	}
	return grid.New(acc.Result(), xp, yp, s.String()), nil
}
