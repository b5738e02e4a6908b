package memory

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/pixelgrid/internal/dispatch"
	"github.com/banshee-data/pixelgrid/internal/schema"
)

// Columnar is the abstract kind shared by sources that can hand out whole
// float64 columns. Its pipeline is the single-pass kernel.
const Columnar dispatch.Kind = "columnar"

var errLength = errors.New("column length mismatch")

// ColumnSource is implemented by sources served by the Columnar pipeline.
type ColumnSource interface {
	Float64s(name string) ([]float64, error)
}

// Frame is an in-memory table of equal-length named columns. Supported
// column types are []float64, []int64, []int, []bool, []string and
// []time.Time.
type Frame struct {
	names []string
	cols  map[string]any
	rows  int
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{cols: make(map[string]any)}
}

// Add appends or replaces a column. Every column must have the same length.
func (f *Frame) Add(name string, col any) error {
	n, err := columnLen(col)
	if err != nil {
		return fmt.Errorf("column %q: %w", name, err)
	}
	if _, exists := f.cols[name]; !exists {
		if len(f.names) > 0 && n != f.rows {
			return fmt.Errorf("column %q: %w: %d rows, frame has %d", name, errLength, n, f.rows)
		}
		f.names = append(f.names, name)
	} else if len(f.names) > 1 && n != f.rows {
		return fmt.Errorf("column %q: %w: %d rows, frame has %d", name, errLength, n, f.rows)
	}
	f.cols[name] = col
	f.rows = n
	return nil
}

// MustAdd is Add for literal columns in tests and examples.
func (f *Frame) MustAdd(name string, col any) *Frame {
	if err := f.Add(name, col); err != nil {
		panic(err)
	}
	return f
}

// Len is the number of rows.
func (f *Frame) Len() int { return f.rows }

// Names returns the column names in insertion order.
func (f *Frame) Names() []string { return append([]string(nil), f.names...) }

// Column returns the raw column slice, or nil.
func (f *Frame) Column(name string) any { return f.cols[name] }

// Schema implements schema.Describer.
func (f *Frame) Schema() (schema.Schema, error) {
	fields := make([]schema.Field, len(f.names))
	for i, name := range f.names {
		fields[i] = schema.Field{Name: name, Type: columnType(f.cols[name])}
	}
	s := schema.Table(fields...)
	s.Rows = int64(f.rows)
	return s, nil
}

// Lineage places Frame under the Columnar kind.
func (f *Frame) Lineage() []dispatch.Kind {
	return []dispatch.Kind{dispatch.KindOf(f), Columnar}
}

// Float64s returns the named numeric column as float64. A []float64 column
// is returned without copying.
func (f *Frame) Float64s(name string) ([]float64, error) {
	col, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: no column %q", schema.ErrMismatch, name)
	}
	switch c := col.(type) {
	case []float64:
		return c, nil
	case []int64:
		out := make([]float64, len(c))
		for i, v := range c {
			out[i] = float64(v)
		}
		return out, nil
	case []int:
		out := make([]float64, len(c))
		for i, v := range c {
			out[i] = float64(v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: column %q has type %s, want numeric", schema.ErrMismatch, name, columnType(col))
}

func columnLen(col any) (int, error) {
	switch c := col.(type) {
	case []float64:
		return len(c), nil
	case []int64:
		return len(c), nil
	case []int:
		return len(c), nil
	case []bool:
		return len(c), nil
	case []string:
		return len(c), nil
	case []time.Time:
		return len(c), nil
	}
	return 0, fmt.Errorf("unsupported column type %T", col)
}

func columnType(col any) schema.Type {
	switch col.(type) {
	case []float64:
		return schema.Float64
	case []int64, []int:
		return schema.Int64
	case []bool:
		return schema.Bool
	case []string:
		return schema.String
	case []time.Time:
		return schema.Time
	}
	return schema.Unknown
}
