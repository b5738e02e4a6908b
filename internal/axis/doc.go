// Package axis owns the coordinate-mapping policies used to place data
// values on a pixel grid.
//
// An Axis is a closed variant (Linear or Log). Each policy maps data space
// into a linearized space where pixels are evenly spaced:
//
//	pixel = Mapper(x)*s + t
//
// ScaleAndTranslation derives (s, t) for a data range and a pixel count and
// ComputeIndex inverts it to recover pixel-center coordinates. Zero-width
// ranges are rejected with ErrDegenerateRange rather than producing an
// infinite scale.
package axis
