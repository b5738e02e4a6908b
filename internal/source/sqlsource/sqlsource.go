// Package sqlsource serves SQLite tables to raster.Bypixel.
//
// A Table names one table of an open database. Its schema comes from
// PRAGMA table_info using SQLite's type affinity rules, and its pipeline
// streams the needed columns with QueryContext in rowid order. NULL values
// become NaN and are skipped by the glyphs.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/pixelgrid/internal/dispatch"
	"github.com/banshee-data/pixelgrid/internal/glyph"
	"github.com/banshee-data/pixelgrid/internal/grid"
	"github.com/banshee-data/pixelgrid/internal/raster"
	"github.com/banshee-data/pixelgrid/internal/reduction"
	"github.com/banshee-data/pixelgrid/internal/schema"
	"github.com/banshee-data/pixelgrid/internal/source/memory"
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

func init() {
	raster.Register(dispatch.KindFor[*Table](), pipeline)
}

// Table is a SQLite table used as a render source.
type Table struct {
	DB   *sql.DB
	Name string
	// Partitions > 1 loads the needed columns into memory and aggregates
	// them as that many memory.Partitioned frames.
	Partitions int
}

// Open opens the SQLite database at path. The caller closes it.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Quote returns name as a quoted SQLite identifier.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Schema implements schema.Describer.
func (t *Table) Schema() (schema.Schema, error) {
	return t.SchemaContext(context.Background())
}

// SchemaContext reads the column list and row count of the table. It
// implements schema.ContextDescriber.
func (t *Table) SchemaContext(ctx context.Context) (schema.Schema, error) {
	rows, err := t.DB.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?)", t.Name)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("table info %s: %w", t.Name, err)
	}
	defer rows.Close()

	var fields []schema.Field
	for rows.Next() {
		var name, decl string
		if err := rows.Scan(&name, &decl); err != nil {
			return schema.Schema{}, err
		}
		fields = append(fields, schema.Field{Name: name, Type: Affinity(decl)})
	}
	if err := rows.Err(); err != nil {
		return schema.Schema{}, err
	}
	if len(fields) == 0 {
		return schema.Schema{}, fmt.Errorf("%w: no table %q", schema.ErrUnknownSource, t.Name)
	}

	s := schema.Table(fields...)
	if err := t.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+Quote(t.Name)).Scan(&s.Rows); err != nil {
		return schema.Schema{}, fmt.Errorf("count %s: %w", t.Name, err)
	}
	return s, nil
}

// Affinity maps a declared column type to a field type following SQLite's
// affinity rules, with BOOL and DATE/TIME split out of NUMERIC.
func Affinity(decl string) schema.Type {
	d := strings.ToUpper(decl)
	switch {
	case strings.Contains(d, "INT"):
		return schema.Int64
	case strings.Contains(d, "CHAR"), strings.Contains(d, "CLOB"), strings.Contains(d, "TEXT"):
		return schema.String
	case d == "", strings.Contains(d, "BLOB"):
		return schema.Unknown
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"):
		return schema.Float64
	case strings.Contains(d, "BOOL"):
		return schema.Bool
	case strings.Contains(d, "DATE"), strings.Contains(d, "TIME"):
		return schema.Time
	}
	return schema.Float64
}

// Columns reads the named columns in rowid order.
func (t *Table) Columns(ctx context.Context, names ...string) ([][]float64, error) {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = Quote(n)
	}
	q := "SELECT " + strings.Join(quoted, ", ") + " FROM " + Quote(t.Name) + " ORDER BY rowid"
	rows, err := t.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.Name, err)
	}
	defer rows.Close()

	out := make([][]float64, len(names))
	vals := make([]sql.NullFloat64, len(names))
	ptrs := make([]any, len(names))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.Name, err)
		}
		for i, v := range vals {
			if v.Valid {
				out[i] = append(out[i], v.Float64)
			} else {
				out[i] = append(out[i], math.NaN())
			}
		}
	}
	return out, rows.Err()
}

func pipeline(ctx context.Context, source any, _ schema.Schema, cv *raster.Canvas, g glyph.Glyph, s reduction.Summary) (*grid.Grid, error) {
	t := source.(*Table)
	names := g.Columns()
	if c := s.Column(); c != "" {
		names = append(names[:len(names):len(names)], c)
	}
	data, err := t.Columns(ctx, names...)
	if err != nil {
		return nil, err
	}
	if t.Partitions > 1 {
		return partitioned(ctx, t, names, data, cv, g, s)
	}
	cols := raster.Columns{X: data[0], Y: data[1]}
	if len(data) > 2 {
		cols.Value = data[2]
	}
	return raster.Aggregate(cv, g, s, cols)
}

// partitioned hands the loaded columns to the pipeline registered for
// memory.Partitioned.
func partitioned(ctx context.Context, t *Table, names []string, data [][]float64, cv *raster.Canvas, g glyph.Glyph, s reduction.Summary) (*grid.Grid, error) {
	f := memory.NewFrame()
	for i, name := range names {
		if err := f.Add(name, data[i]); err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name, err)
		}
	}
	p, err := memory.Split(f, t.Partitions)
	if err != nil {
		return nil, err
	}
	sch, err := p.Schema()
	if err != nil {
		return nil, err
	}
	return raster.Dispatch(ctx, p, sch, cv, g, s)
}
