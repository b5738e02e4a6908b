// Package raster is the front end of the render-by-pixel pipeline.
//
// A Canvas fixes the output resolution, optional data ranges and the axis
// policy of each dimension. Canvas.Points and Canvas.Lines build a glyph
// and call Bypixel, which infers the source schema, rejects non-tabular
// sources, validates the glyph and the reduction against the row schema
// and dispatches to the Pipeline registered for the source's kind.
//
// Backends live in internal/source/... and register their pipelines from
// init. Registering under an abstract kind (for example "columnar") serves
// every source kind that names it as an ancestor.
//
// The package computes no aggregates of its own beyond the shared columnar
// kernel (Aggregate) that backends may call once they hold float columns.
package raster
