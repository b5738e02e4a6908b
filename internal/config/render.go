package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/pixelgrid/internal/axis"
	"github.com/banshee-data/pixelgrid/internal/raster"
)

// DefaultConfigPath is the path to the canonical render defaults file.
const DefaultConfigPath = "config/render.defaults.json"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid render config")

// RenderConfig is the JSON render configuration. Nil fields fall back to
// the defaults returned by the Get* methods, so partial files are safe.
// The same keys are accepted as query parameters by the HTTP API.
type RenderConfig struct {
	PlotWidth  *int        `json:"plot_width,omitempty"`
	PlotHeight *int        `json:"plot_height,omitempty"`
	XRange     *[2]float64 `json:"x_range,omitempty"`
	YRange     *[2]float64 `json:"y_range,omitempty"`
	XAxisType  *string     `json:"x_axis_type,omitempty"`
	YAxisType  *string     `json:"y_axis_type,omitempty"`

	// Partitions > 1 splits in-memory sources and aggregates them in parallel.
	Partitions *int `json:"partitions,omitempty"`
	// Timeout bounds one render, as a duration string like "30s".
	Timeout *string `json:"timeout,omitempty"`

	// Output styling.
	ColorLevels *int  `json:"color_levels,omitempty"`
	LogColor    *bool `json:"log_color,omitempty"`
}

func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }

// DefaultRenderConfig returns a config with every field set to its default.
func DefaultRenderConfig() *RenderConfig {
	return &RenderConfig{
		PlotWidth:   ptrInt(raster.DefaultPlotSize),
		PlotHeight:  ptrInt(raster.DefaultPlotSize),
		XAxisType:   ptrString("linear"),
		YAxisType:   ptrString("linear"),
		Partitions:  ptrInt(1),
		Timeout:     ptrString("30s"),
		ColorLevels: ptrInt(64),
		LogColor:    ptrBool(false),
	}
}

// LoadRenderConfig loads a RenderConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadRenderConfig(path string) (*RenderConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RenderConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the working directory
// or a parent of it. It panics when the file cannot be loaded and is meant
// for tests.
func MustLoadDefaultConfig() *RenderConfig {
	for _, prefix := range []string{"", "../", "../../", "../../../"} {
		if cfg, err := LoadRenderConfig(prefix + DefaultConfigPath); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Merge returns a copy of c with every non-nil field of o applied on top.
func (c *RenderConfig) Merge(o *RenderConfig) *RenderConfig {
	out := *c
	if o == nil {
		return &out
	}
	if o.PlotWidth != nil {
		out.PlotWidth = o.PlotWidth
	}
	if o.PlotHeight != nil {
		out.PlotHeight = o.PlotHeight
	}
	if o.XRange != nil {
		out.XRange = o.XRange
	}
	if o.YRange != nil {
		out.YRange = o.YRange
	}
	if o.XAxisType != nil {
		out.XAxisType = o.XAxisType
	}
	if o.YAxisType != nil {
		out.YAxisType = o.YAxisType
	}
	if o.Partitions != nil {
		out.Partitions = o.Partitions
	}
	if o.Timeout != nil {
		out.Timeout = o.Timeout
	}
	if o.ColorLevels != nil {
		out.ColorLevels = o.ColorLevels
	}
	if o.LogColor != nil {
		out.LogColor = o.LogColor
	}
	return &out
}

// Validate checks that the configuration values are valid.
func (c *RenderConfig) Validate() error {
	if c.PlotWidth != nil && *c.PlotWidth < 1 {
		return fmt.Errorf("%w: plot_width must be positive, got %d", ErrInvalid, *c.PlotWidth)
	}
	if c.PlotHeight != nil && *c.PlotHeight < 1 {
		return fmt.Errorf("%w: plot_height must be positive, got %d", ErrInvalid, *c.PlotHeight)
	}
	if err := validateRange("x_range", c.XRange); err != nil {
		return err
	}
	if err := validateRange("y_range", c.YRange); err != nil {
		return err
	}
	if c.XAxisType != nil {
		if _, err := axis.Parse(*c.XAxisType); err != nil {
			return fmt.Errorf("%w: x_axis_type: %w", ErrInvalid, err)
		}
	}
	if c.YAxisType != nil {
		if _, err := axis.Parse(*c.YAxisType); err != nil {
			return fmt.Errorf("%w: y_axis_type: %w", ErrInvalid, err)
		}
	}
	if c.Partitions != nil && *c.Partitions < 1 {
		return fmt.Errorf("%w: partitions must be at least 1, got %d", ErrInvalid, *c.Partitions)
	}
	if c.Timeout != nil && *c.Timeout != "" {
		d, err := time.ParseDuration(*c.Timeout)
		if err != nil {
			return fmt.Errorf("%w: timeout %q: %w", ErrInvalid, *c.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalid, d)
		}
	}
	if c.ColorLevels != nil && (*c.ColorLevels < 2 || *c.ColorLevels > 256) {
		return fmt.Errorf("%w: color_levels must be between 2 and 256, got %d", ErrInvalid, *c.ColorLevels)
	}
	return nil
}

// ParseRange parses a range written "lo,hi".
func ParseRange(s string) (*[2]float64, error) {
	lo, hi, ok := strings.Cut(s, ",")
	if !ok {
		return nil, fmt.Errorf("%w: range %q, want lo,hi", ErrInvalid, s)
	}
	var r [2]float64
	var err error
	if r[0], err = strconv.ParseFloat(strings.TrimSpace(lo), 64); err != nil {
		return nil, fmt.Errorf("%w: range %q: %w", ErrInvalid, s, err)
	}
	if r[1], err = strconv.ParseFloat(strings.TrimSpace(hi), 64); err != nil {
		return nil, fmt.Errorf("%w: range %q: %w", ErrInvalid, s, err)
	}
	return &r, nil
}

func validateRange(key string, r *[2]float64) error {
	if r == nil {
		return nil
	}
	for _, v := range r {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalid, key, *r)
		}
	}
	if r[0] == r[1] {
		return fmt.Errorf("%w: %s is empty: %v", ErrInvalid, key, *r)
	}
	return nil
}

// GetPlotWidth returns the plot_width value or the default.
func (c *RenderConfig) GetPlotWidth() int {
	if c.PlotWidth == nil {
		return raster.DefaultPlotSize
	}
	return *c.PlotWidth
}

// GetPlotHeight returns the plot_height value or the default.
func (c *RenderConfig) GetPlotHeight() int {
	if c.PlotHeight == nil {
		return raster.DefaultPlotSize
	}
	return *c.PlotHeight
}

// GetXAxisType returns the x_axis_type value or "linear".
func (c *RenderConfig) GetXAxisType() string {
	if c.XAxisType == nil {
		return "linear"
	}
	return *c.XAxisType
}

// GetYAxisType returns the y_axis_type value or "linear".
func (c *RenderConfig) GetYAxisType() string {
	if c.YAxisType == nil {
		return "linear"
	}
	return *c.YAxisType
}

// GetPartitions returns the partitions value or 1.
func (c *RenderConfig) GetPartitions() int {
	if c.Partitions == nil {
		return 1
	}
	return *c.Partitions
}

// GetTimeout parses and returns the Timeout as a time.Duration.
func (c *RenderConfig) GetTimeout() time.Duration {
	if c.Timeout == nil || *c.Timeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(*c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetColorLevels returns the color_levels value or 64.
func (c *RenderConfig) GetColorLevels() int {
	if c.ColorLevels == nil {
		return 64
	}
	return *c.ColorLevels
}

// GetLogColor returns the log_color value or false.
func (c *RenderConfig) GetLogColor() bool {
	if c.LogColor == nil {
		return false
	}
	return *c.LogColor
}

// CanvasOptions converts the canvas fields into raster.Options.
func (c *RenderConfig) CanvasOptions() raster.Options {
	opts := raster.Options{
		PlotWidth:  c.GetPlotWidth(),
		PlotHeight: c.GetPlotHeight(),
		XAxisType:  c.GetXAxisType(),
		YAxisType:  c.GetYAxisType(),
	}
	if c.XRange != nil {
		opts.XRange = &axis.Range{Start: c.XRange[0], End: c.XRange[1]}
	}
	if c.YRange != nil {
		opts.YRange = &axis.Range{Start: c.YRange[0], End: c.YRange[1]}
	}
	return opts
}

// Canvas builds the raster.Canvas described by c.
func (c *RenderConfig) Canvas() (*raster.Canvas, error) {
	return raster.NewCanvas(c.CanvasOptions())
}
