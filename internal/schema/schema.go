// Package schema describes the structure of tabular data sources and checks
// that consumers find the fields they need.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMismatch is wrapped by every validation failure where a field is
	// absent from a schema or has the wrong type.
	ErrMismatch = errors.New("schema mismatch")

	// ErrUnknownSource is returned by Discover for values with no registered
	// discoverer.
	ErrUnknownSource = errors.New("cannot infer schema of source")
)

// Type is the element type of a field.
type Type uint8

const (
	Unknown Type = iota
	Int64
	Float64
	Bool
	String
	Time
)

var typeNames = [...]string{
	Unknown: "unknown",
	Int64:   "int64",
	Float64: "float64",
	Bool:    "bool",
	String:  "string",
	Time:    "datetime",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Numeric reports whether values of t can be used as coordinates or
// aggregated arithmetically.
func (t Type) Numeric() bool {
	return t == Int64 || t == Float64
}

// Field is one named column of a record.
type Field struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Record is the ordered row description of a tabular source.
type Record struct {
	Fields []Field `json:"fields"`
}

// NewRecord builds a Record from fields in column order.
func NewRecord(fields ...Field) Record {
	return Record{Fields: fields}
}

// Field returns the named field.
func (r Record) Field(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

func (r Record) String() string {
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = f.Name + ": " + f.Type.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// RequireNumeric checks that every named field exists and is numeric.
func (r Record) RequireNumeric(names ...string) error {
	for _, name := range names {
		f, ok := r.Field(name)
		if !ok {
			return fmt.Errorf("%w: field %q not in %s", ErrMismatch, name, r)
		}
		if !f.Type.Numeric() {
			return fmt.Errorf("%w: field %q has type %s, want numeric", ErrMismatch, name, f.Type)
		}
	}
	return nil
}

// Shape is the outer structure of a source.
type Shape uint8

const (
	// Scalar sources hold a single value or an unstructured collection.
	Scalar Shape = iota
	// Tabular sources are a variable number of rows sharing one Record.
	Tabular
)

func (s Shape) String() string {
	if s == Tabular {
		return "tabular"
	}
	return "scalar"
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Schema is the inferred structure of a source.
type Schema struct {
	Shape   Shape  `json:"shape"`
	Measure Record `json:"measure"`
	// Rows is the row count when known, -1 otherwise.
	Rows int64 `json:"rows"`
}

// IsTabular reports whether the source is row/column tabular.
func (s Schema) IsTabular() bool { return s.Shape == Tabular }

// Table returns a tabular schema with an unknown row count.
func Table(fields ...Field) Schema {
	return Schema{Shape: Tabular, Measure: NewRecord(fields...), Rows: -1}
}
