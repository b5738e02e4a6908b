// Package memory provides in-process table backends for raster.Bypixel.
//
// Frame is a set of equal-length typed columns. It declares the abstract
// Columnar kind as its ancestor, so any type implementing ColumnSource and
// naming Columnar in its Lineage is served by the same pipeline.
//
// Partitioned splits a table into frames and aggregates them on an
// errgroup, merging per-partition accumulators into one grid.
//
// Importing the package registers both pipelines.
package memory
