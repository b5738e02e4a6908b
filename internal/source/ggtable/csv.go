package ggtable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/aclements/go-gg/table"
)

// ErrInvalidCSV is returned for input without a header and at least one
// data row, or with empty or repeated column names.
var ErrInvalidCSV = errors.New("invalid csv")

// ReadCSV reads a headed CSV into a table. A column whose every value
// parses as an int becomes []int, as a float []float64, else []string.
func ReadCSV(r io.Reader) (*table.Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: need a header and at least one row", ErrInvalidCSV)
	}
	header := records[0]
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if h == "" || seen[h] {
			return nil, fmt.Errorf("%w: empty or repeated column %q", ErrInvalidCSV, h)
		}
		seen[h] = true
	}
	return table.TableFromStrings(header, records[1:], true), nil
}
