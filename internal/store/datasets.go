package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/aclements/go-gg/table"
	"github.com/banshee-data/pixelgrid/internal/source/ggtable"
	"github.com/banshee-data/pixelgrid/internal/source/sqlsource"
	"github.com/google/uuid"
)

var (
	// ErrDatasetNotFound is returned when no dataset has the requested name
	// or ID.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrDatasetExists is returned by ImportCSV for a name already in use.
	ErrDatasetExists = errors.New("dataset already exists")

	// ErrInvalidCSV is returned for input ggtable.ReadCSV rejects.
	ErrInvalidCSV = ggtable.ErrInvalidCSV
)

// Dataset is one catalog entry.
type Dataset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Table     string    `json:"table"`
	Rows      int64     `json:"rows"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ImportCSV loads r into a new table and records it under name. Columns
// whose every value parses as an integer or float are stored as INTEGER or
// REAL; anything else is TEXT.
func (s *Store) ImportCSV(ctx context.Context, name, source string, r io.Reader) (*Dataset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: dataset name is empty", ErrInvalidCSV)
	}
	if _, err := s.Dataset(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: %q", ErrDatasetExists, name)
	} else if !errors.Is(err, ErrDatasetNotFound) {
		return nil, err
	}

	tab, err := ggtable.ReadCSV(r)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	ds := &Dataset{
		ID:        id.String(),
		Name:      name,
		Table:     "ds_" + strings.ReplaceAll(id.String(), "-", ""),
		Rows:      int64(tab.Len()),
		Source:    source,
		CreatedAt: s.clock.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := createTable(ctx, tx, ds.Table, tab); err != nil {
		return nil, err
	}
	if err := insertRows(ctx, tx, ds.Table, tab); err != nil {
		return nil, err
	}
	created := float64(ds.CreatedAt.UnixNano()) / 1e9
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO datasets (dataset_id, name, table_name, row_count, created_unix, source)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ds.ID, ds.Name, ds.Table, ds.Rows, created, ds.Source,
	); err != nil {
		return nil, fmt.Errorf("record dataset %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	diagf("imported %q: %d rows into %s", name, ds.Rows, ds.Table)
	return ds, nil
}

func sqlType(col any) string {
	switch col.(type) {
	case []int:
		return "INTEGER"
	case []float64:
		return "REAL"
	}
	return "TEXT"
}

func createTable(ctx context.Context, tx *sql.Tx, name string, tab *table.Table) error {
	defs := make([]string, 0, len(tab.Columns()))
	for _, col := range tab.Columns() {
		defs = append(defs, sqlsource.Quote(col)+" "+sqlType(tab.Column(col)))
	}
	q := "CREATE TABLE " + sqlsource.Quote(name) + " (" + strings.Join(defs, ", ") + ")"
	if _, err := tx.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, name string, tab *table.Table) error {
	cols := tab.Columns()
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = sqlsource.Quote(c)
		marks[i] = "?"
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+sqlsource.Quote(name)+
		" ("+strings.Join(quoted, ", ")+") VALUES ("+strings.Join(marks, ", ")+")")
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", name, err)
	}
	defer stmt.Close()

	data := make([]any, len(cols))
	for i, c := range cols {
		data[i] = tab.Column(c)
	}
	args := make([]any, len(cols))
	for row := 0; row < tab.Len(); row++ {
		for i, col := range data {
			args[i] = cell(col, row)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d into %s: %w", row, name, err)
		}
	}
	return nil
}

func cell(col any, row int) any {
	switch c := col.(type) {
	case []int:
		return int64(c[row])
	case []float64:
		if math.IsNaN(c[row]) {
			return nil
		}
		return c[row]
	case []string:
		return c[row]
	}
	return nil
}

const datasetColumns = `dataset_id, name, table_name, row_count, source, created_unix`

func scanDataset(sc interface{ Scan(...any) error }) (*Dataset, error) {
	var ds Dataset
	var created float64
	if err := sc.Scan(&ds.ID, &ds.Name, &ds.Table, &ds.Rows, &ds.Source, &created); err != nil {
		return nil, err
	}
	sec, frac := math.Modf(created)
	ds.CreatedAt = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	return &ds, nil
}

// Datasets lists the catalog, oldest first.
func (s *Store) Datasets(ctx context.Context) ([]Dataset, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+datasetColumns+" FROM datasets ORDER BY created_unix, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ds)
	}
	return out, rows.Err()
}

// Dataset looks up a dataset by name or ID.
func (s *Store) Dataset(ctx context.Context, key string) (*Dataset, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+datasetColumns+" FROM datasets WHERE name = ? OR dataset_id = ?", key, key)
	ds, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrDatasetNotFound, key)
	}
	return ds, err
}

// Source returns the dataset's table as a render source.
func (s *Store) Source(ctx context.Context, key string) (*sqlsource.Table, error) {
	ds, err := s.Dataset(ctx, key)
	if err != nil {
		return nil, err
	}
	return &sqlsource.Table{DB: s.db, Name: ds.Table}, nil
}

// Delete drops the dataset's table and its catalog entry.
func (s *Store) Delete(ctx context.Context, key string) error {
	ds, err := s.Dataset(ctx, key)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlsource.Quote(ds.Table)); err != nil {
		return fmt.Errorf("drop %s: %w", ds.Table, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM datasets WHERE dataset_id = ?", ds.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	opsf("deleted dataset %q (%s)", ds.Name, ds.ID)
	return nil
}
