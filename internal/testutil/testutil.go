// Package testutil provides shared test helpers and fixtures.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/pixelgrid/internal/grid"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// SampleCSV is a small point dataset on [0,3]x[0,3]: a diagonal plus one
// point in the bottom-right corner.
const SampleCSV = `x,y,weight,label
0,0,1.5,a
1,1,2.5,b
2,2,3.5,c
3,3,4.5,d
3,0,5.5,e
`

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// GridValuesDiff compares two grids cell by cell, treating NaN as equal to
// NaN and allowing rounding error from summation order.
func GridValuesDiff(want, got *grid.Grid) string {
	return cmp.Diff(
		want.Values.RawMatrix().Data,
		got.Values.RawMatrix().Data,
		cmpopts.EquateNaNs(),
		cmpopts.EquateApprox(0, 1e-12),
	)
}

// AssertGridsEqual fails the test unless both grids have the same shape,
// index and values.
func AssertGridsEqual(t *testing.T, want, got *grid.Grid) {
	t.Helper()
	if want.Width != got.Width || want.Height != got.Height {
		t.Fatalf("grid size = %dx%d, want %dx%d", got.Width, got.Height, want.Width, want.Height)
	}
	if diff := cmp.Diff(want.XIndex, got.XIndex, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("x index mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.YIndex, got.YIndex, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("y index mismatch (-want +got):\n%s", diff)
	}
	if diff := GridValuesDiff(want, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

// WriteFile writes content to name under dir and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
