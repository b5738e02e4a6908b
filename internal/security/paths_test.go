package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	require.NoError(t, os.MkdirAll(safeDir, 0755))
	require.NoError(t, os.MkdirAll(unsafeDir, 0755))
	require.NoError(t, os.Symlink(unsafeDir, filepath.Join(safeDir, "link")))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"new file", filepath.Join(safeDir, "grid.png"), false},
		{"nested new dir", filepath.Join(safeDir, "a", "b", "grid.png"), false},
		{"dot dot", filepath.Join(safeDir, "..", "unsafe", "grid.png"), true},
		{"symlink escape", filepath.Join(safeDir, "link", "grid.png"), true},
		{"dir itself", safeDir, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WithinDirectory(tt.path, safeDir)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPathTraversal)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithinAny(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	assert.NoError(t, WithinAny(filepath.Join(b, "out.html"), a, b))
	assert.ErrorIs(t, WithinAny("/etc/passwd", a, b), ErrPathTraversal)
	assert.ErrorIs(t, WithinAny(filepath.Join(a, "x")), ErrPathTraversal)
}

func TestValidateOutputPath(t *testing.T) {
	assert.NoError(t, ValidateOutputPath(filepath.Join(os.TempDir(), "grid.json")))
	assert.NoError(t, ValidateOutputPath("grid.png"))
	assert.Error(t, ValidateOutputPath("/proc/self/grid.png"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"trips 2024/05": "trips_2024_05",
		"../../etc":     "etc",
		"":              "unknown",
		"***":           "unknown",
		"ok-name_1.csv": "ok-name_1.csv",
		"a  b\tc":       "a_b_c",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), "SanitizeFilename(%q)", in)
	}
}
