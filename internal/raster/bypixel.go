package raster

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/pixelgrid/internal/dispatch"
	"github.com/banshee-data/pixelgrid/internal/glyph"
	"github.com/banshee-data/pixelgrid/internal/grid"
	"github.com/banshee-data/pixelgrid/internal/reduction"
	"github.com/banshee-data/pixelgrid/internal/schema"
)

// ErrNotTabular is returned when a source's inferred schema is not
// row/column tabular.
var ErrNotTabular = errors.New("source must be tabular")

// Pipeline aggregates a validated source onto the canvas grid. Backends
// register one per source kind.
type Pipeline func(ctx context.Context, source any, sch schema.Schema, cv *Canvas, g glyph.Glyph, s reduction.Summary) (*grid.Grid, error)

// Pipelines routes sources to backend pipelines by kind. Backends populate
// it from their init functions.
var Pipelines = dispatch.NewRegistry[Pipeline]("pipeline")

// Register installs p for sources of kind k and any kind deriving from k.
func Register(k dispatch.Kind, p Pipeline) {
	Pipelines.Register(k, p)
}

// Derive declares parents as ancestors of kind for pipeline lookup.
func Derive(kind dispatch.Kind, parents ...dispatch.Kind) {
	Pipelines.Derive(kind, parents...)
}

// Dispatch invokes the pipeline registered for source's kind or its nearest
// ancestor.
func Dispatch(ctx context.Context, source any, sch schema.Schema, cv *Canvas, g glyph.Glyph, s reduction.Summary) (*grid.Grid, error) {
	p, kind, err := Pipelines.Resolve(source)
	if err != nil {
		return nil, err
	}
	tracef("dispatch %s -> %s", dispatch.KindOf(source), kind)
	return p(ctx, source, sch, cv, g, s)
}

// Bypixel validates source against the glyph and summary and hands it to
// the backend pipeline for its kind. No aggregation work starts unless the
// schema is tabular and both validations pass.
func Bypixel(ctx context.Context, source any, cv *Canvas, g glyph.Glyph, s reduction.Summary) (*grid.Grid, error) {
	sch, err := schema.DiscoverContext(ctx, source)
	if err != nil {
		return nil, err
	}
	if !sch.IsTabular() {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotTabular, dispatch.KindOf(source), sch.Shape)
	}
	measure := sch.Measure
	if err := g.Validate(measure); err != nil {
		return nil, fmt.Errorf("glyph %s: %w", g, err)
	}
	if err := s.Validate(measure); err != nil {
		return nil, fmt.Errorf("reduction %s: %w", s, err)
	}

	diagf("bypixel %s %s %s on %s", dispatch.KindOf(source), g, s, cv)
	out, err := Dispatch(ctx, source, sch, cv, g, s)
	if err != nil {
		opsf("bypixel %s failed: %v", dispatch.KindOf(source), err)
		return nil, err
	}
	return out, nil
}
