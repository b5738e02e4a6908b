package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/pixelgrid/internal/axis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultRenderConfig(t *testing.T) {
	cfg := DefaultRenderConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 600, cfg.GetPlotWidth())
	assert.Equal(t, 600, cfg.GetPlotHeight())
	assert.Equal(t, "linear", cfg.GetXAxisType())
	assert.Equal(t, 1, cfg.GetPartitions())
	assert.Equal(t, 30*time.Second, cfg.GetTimeout())
	assert.Equal(t, 64, cfg.GetColorLevels())
	assert.False(t, cfg.GetLogColor())
}

func TestMustLoadDefaultConfigMatchesDefaults(t *testing.T) {
	assert.Equal(t, DefaultRenderConfig(), MustLoadDefaultConfig())
}

func TestEmptyConfigGetters(t *testing.T) {
	cfg := &RenderConfig{}
	assert.Equal(t, 600, cfg.GetPlotWidth())
	assert.Equal(t, "linear", cfg.GetYAxisType())
	assert.Equal(t, 30*time.Second, cfg.GetTimeout())

	opts := cfg.CanvasOptions()
	assert.Nil(t, opts.XRange)
	assert.Nil(t, opts.YRange)
}

func TestLoadRenderConfig(t *testing.T) {
	path := writeConfig(t, "render.json", `{
  "plot_width": 800,
  "plot_height": 400,
  "x_range": [1, 1000],
  "x_axis_type": "log",
  "partitions": 4,
  "timeout": "5s",
  "log_color": true
}`)
	cfg, err := LoadRenderConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.GetPlotWidth())
	assert.Equal(t, 400, cfg.GetPlotHeight())
	assert.Equal(t, 4, cfg.GetPartitions())
	assert.Equal(t, 5*time.Second, cfg.GetTimeout())
	assert.True(t, cfg.GetLogColor())
	assert.Equal(t, 64, cfg.GetColorLevels())

	cv, err := cfg.Canvas()
	require.NoError(t, err)
	assert.Equal(t, axis.Log, cv.XAxis())
	assert.Equal(t, axis.Linear, cv.YAxis())
	r, ok := cv.XRange()
	require.True(t, ok)
	assert.Equal(t, axis.Range{Start: 1, End: 1000}, r)
	assert.False(t, cv.HasYRange())
}

func TestLoadRenderConfigRejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"extension", "render.yaml", `{}`, ".json extension"},
		{"syntax", "bad.json", `{"plot_width": }`, "parse config JSON"},
		{"width", "w.json", `{"plot_width": 0}`, "plot_width must be positive"},
		{"height", "h.json", `{"plot_height": -3}`, "plot_height must be positive"},
		{"axis", "a.json", `{"y_axis_type": "polar"}`, "unknown axis"},
		{"empty range", "r.json", `{"x_range": [2, 2]}`, "x_range is empty"},
		{"partitions", "p.json", `{"partitions": 0}`, "partitions must be at least 1"},
		{"timeout", "t.json", `{"timeout": "soon"}`, "timeout"},
		{"negative timeout", "nt.json", `{"timeout": "-1s"}`, "timeout must be positive"},
		{"levels", "l.json", `{"color_levels": 1}`, "color_levels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRenderConfig(writeConfig(t, tt.file, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRenderConfigTooLarge(t *testing.T) {
	body := `{"timeout": "1s", "pad": "` + strings.Repeat("x", 1<<20) + `"}`
	_, err := LoadRenderConfig(writeConfig(t, "big.json", body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadRenderConfigMissing(t *testing.T) {
	_, err := LoadRenderConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidateWrapsErrInvalid(t *testing.T) {
	cfg := &RenderConfig{Partitions: ptrInt(-1)}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg = &RenderConfig{XAxisType: ptrString("bogus")}
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, axis.ErrUnknownAxis)
}

func TestMerge(t *testing.T) {
	base := DefaultRenderConfig()
	out := base.Merge(&RenderConfig{PlotWidth: ptrInt(100), YRange: &[2]float64{0, 1}})

	assert.Equal(t, 100, out.GetPlotWidth())
	assert.Equal(t, 600, out.GetPlotHeight())
	assert.Equal(t, &[2]float64{0, 1}, out.YRange)
	assert.Equal(t, 600, base.GetPlotWidth(), "Merge must not modify the receiver")
	assert.Equal(t, base, base.Merge(nil))
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange(" -1.5, 10")
	require.NoError(t, err)
	assert.Equal(t, [2]float64{-1.5, 10}, *r)

	for _, bad := range []string{"", "3", "a,b", "1,"} {
		_, err := ParseRange(bad)
		assert.ErrorIs(t, err, ErrInvalid, bad)
	}
}
