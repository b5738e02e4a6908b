// Package reduction defines per-pixel aggregations and the accumulators
// backends fill while walking rows.
package reduction

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/pixelgrid/internal/schema"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrUnknownReduction is returned by Parse for an unrecognized name.
	ErrUnknownReduction = errors.New("unknown reduction")

	errMergeKind = errors.New("cannot merge accumulators of different reductions")
)

// Summary is an aggregation computed per pixel bin.
type Summary interface {
	// Validate fails with schema.ErrMismatch when the aggregated field is
	// absent or unusable.
	Validate(rec schema.Record) error
	// Column is the aggregated field, or "" when only row presence counts.
	Column() string
	// NewAccumulator returns an empty accumulator for a width x height grid.
	NewAccumulator(width, height int) Accumulator
	String() string
}

// Accumulator collects values for one Summary over one grid. It is not safe
// for concurrent use; parallel backends give each worker its own and Merge
// them afterwards.
type Accumulator interface {
	Add(px, py int, v float64)
	Merge(other Accumulator) error
	// Result returns a height x width matrix indexed (py, px).
	Result() *mat.Dense
}

// Count counts rows per pixel. With a Field set it counts only rows whose
// field is not NaN.
type Count struct{ Field string }

// Any marks pixels hit by at least one row.
type Any struct{ Field string }

// Sum adds Field per pixel, ignoring NaN. Empty pixels are NaN.
type Sum struct{ Field string }

// Mean averages Field per pixel, ignoring NaN. Empty pixels are NaN.
type Mean struct{ Field string }

// Min keeps the smallest Field value per pixel. Empty pixels are NaN.
type Min struct{ Field string }

// Max keeps the largest Field value per pixel. Empty pixels are NaN.
type Max struct{ Field string }

func validateField(name string, rec schema.Record) error {
	if name == "" {
		return nil
	}
	return rec.RequireNumeric(name)
}

func validateRequired(kind, name string, rec schema.Record) error {
	if name == "" {
		return fmt.Errorf("%w: %s requires a field", schema.ErrMismatch, kind)
	}
	return rec.RequireNumeric(name)
}

func (c Count) Validate(rec schema.Record) error { return validateField(c.Field, rec) }
func (c Count) Column() string                   { return c.Field }
func (c Count) String() string                   { return label("count", c.Field) }
func (c Count) NewAccumulator(w, h int) Accumulator {
	return &countAcc{skipNaN: c.Field != "", m: mat.NewDense(h, w, nil)}
}

func (a Any) Validate(rec schema.Record) error { return validateField(a.Field, rec) }
func (a Any) Column() string                   { return a.Field }
func (a Any) String() string                   { return label("any", a.Field) }
func (a Any) NewAccumulator(w, h int) Accumulator {
	return &anyAcc{skipNaN: a.Field != "", m: mat.NewDense(h, w, nil)}
}

func (s Sum) Validate(rec schema.Record) error { return validateRequired("sum", s.Field, rec) }
func (s Sum) Column() string                   { return s.Field }
func (s Sum) String() string                   { return label("sum", s.Field) }
func (s Sum) NewAccumulator(w, h int) Accumulator {
	return &sumAcc{sum: mat.NewDense(h, w, nil), n: mat.NewDense(h, w, nil)}
}

func (m Mean) Validate(rec schema.Record) error { return validateRequired("mean", m.Field, rec) }
func (m Mean) Column() string                   { return m.Field }
func (m Mean) String() string                   { return label("mean", m.Field) }
func (m Mean) NewAccumulator(w, h int) Accumulator {
	return &sumAcc{mean: true, sum: mat.NewDense(h, w, nil), n: mat.NewDense(h, w, nil)}
}

func (m Min) Validate(rec schema.Record) error { return validateRequired("min", m.Field, rec) }
func (m Min) Column() string                   { return m.Field }
func (m Min) String() string                   { return label("min", m.Field) }
func (m Min) NewAccumulator(w, h int) Accumulator {
	return newExtremeAcc(w, h, func(a, b float64) bool { return a < b })
}

func (m Max) Validate(rec schema.Record) error { return validateRequired("max", m.Field, rec) }
func (m Max) Column() string                   { return m.Field }
func (m Max) String() string                   { return label("max", m.Field) }
func (m Max) NewAccumulator(w, h int) Accumulator {
	return newExtremeAcc(w, h, func(a, b float64) bool { return a > b })
}

func label(kind, field string) string {
	if field == "" {
		return kind + "()"
	}
	return kind + "(" + field + ")"
}

// Parse builds a Summary from "kind" or "kind:field", e.g. "count",
// "mean:fare".
func Parse(spec string) (Summary, error) {
	kind, field, _ := strings.Cut(strings.TrimSpace(spec), ":")
	field = strings.TrimSpace(field)
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "count":
		return Count{Field: field}, nil
	case "any":
		return Any{Field: field}, nil
	case "sum":
		return Sum{Field: field}, nil
	case "mean":
		return Mean{Field: field}, nil
	case "min":
		return Min{Field: field}, nil
	case "max":
		return Max{Field: field}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownReduction, spec)
	}
}

type countAcc struct {
	skipNaN bool
	m       *mat.Dense
}

func (a *countAcc) Add(px, py int, v float64) {
	if a.skipNaN && math.IsNaN(v) {
		return
	}
	a.m.Set(py, px, a.m.At(py, px)+1)
}

func (a *countAcc) Merge(other Accumulator) error {
	o, ok := other.(*countAcc)
	if !ok {
		return errMergeKind
	}
	a.m.Add(a.m, o.m)
	return nil
}

func (a *countAcc) Result() *mat.Dense { return mat.DenseCopyOf(a.m) }

type anyAcc struct {
	skipNaN bool
	m       *mat.Dense
}

func (a *anyAcc) Add(px, py int, v float64) {
	if a.skipNaN && math.IsNaN(v) {
		return
	}
	a.m.Set(py, px, 1)
}

func (a *anyAcc) Merge(other Accumulator) error {
	o, ok := other.(*anyAcc)
	if !ok {
		return errMergeKind
	}
	a.m.Apply(func(i, j int, v float64) float64 {
		return math.Max(v, o.m.At(i, j))
	}, a.m)
	return nil
}

func (a *anyAcc) Result() *mat.Dense { return mat.DenseCopyOf(a.m) }

type sumAcc struct {
	mean bool
	sum  *mat.Dense
	n    *mat.Dense
}

func (a *sumAcc) Add(px, py int, v float64) {
	if math.IsNaN(v) {
		return
	}
	a.sum.Set(py, px, a.sum.At(py, px)+v)
	a.n.Set(py, px, a.n.At(py, px)+1)
}

func (a *sumAcc) Merge(other Accumulator) error {
	o, ok := other.(*sumAcc)
	if !ok || o.mean != a.mean {
		return errMergeKind
	}
	a.sum.Add(a.sum, o.sum)
	a.n.Add(a.n, o.n)
	return nil
}

func (a *sumAcc) Result() *mat.Dense {
	r, c := a.sum.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, _ float64) float64 {
		n := a.n.At(i, j)
		switch {
		case n == 0:
			return math.NaN()
		case a.mean:
			return a.sum.At(i, j) / n
		default:
			return a.sum.At(i, j)
		}
	}, out)
	return out
}

type extremeAcc struct {
	better func(a, b float64) bool
	m      *mat.Dense
}

func newExtremeAcc(w, h int, better func(a, b float64) bool) *extremeAcc {
	m := mat.NewDense(h, w, nil)
	m.Apply(func(int, int, float64) float64 { return math.NaN() }, m)
	return &extremeAcc{better: better, m: m}
}

func (a *extremeAcc) Add(px, py int, v float64) {
	if math.IsNaN(v) {
		return
	}
	cur := a.m.At(py, px)
	if math.IsNaN(cur) || a.better(v, cur) {
		a.m.Set(py, px, v)
	}
}

func (a *extremeAcc) Merge(other Accumulator) error {
	o, ok := other.(*extremeAcc)
	if !ok {
		return errMergeKind
	}
	r, c := o.m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			a.Add(j, i, o.m.At(i, j))
		}
	}
	return nil
}

func (a *extremeAcc) Result() *mat.Dense { return mat.DenseCopyOf(a.m) }
