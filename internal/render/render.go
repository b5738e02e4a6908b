// Package render encodes aggregated grids for people: a PNG heatmap drawn
// with gonum/plot, an interactive go-echarts HTML page, or JSON.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/pixelgrid/internal/grid"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Format is an output encoding.
type Format string

const (
	PNG  Format = "png"
	HTML Format = "html"
	JSON Format = "json"
)

// ContentType returns the HTTP content type of f.
func (f Format) ContentType() string {
	switch f {
	case PNG:
		return "image/png"
	case HTML:
		return "text/html; charset=utf-8"
	}
	return "application/json"
}

// ParseFormat accepts png, html or json in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case PNG, HTML, JSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "htm" {
		ext = "html"
	}
	return ParseFormat(ext)
}

// Options style the image outputs. JSON ignores them.
type Options struct {
	Title string
	// ColorLevels is the palette size; 0 means 64.
	ColorLevels int
	// LogColor maps colors by log10 of the value. Non-positive cells are
	// left blank.
	LogColor bool
}

func (o Options) levels() int {
	if o.ColorLevels < 2 {
		return 64
	}
	return o.ColorLevels
}

// Write encodes g to w in format f.
func Write(w io.Writer, g *grid.Grid, f Format, o Options) error {
	switch f {
	case PNG:
		return WritePNG(w, g, o)
	case HTML:
		return WriteHTML(w, g, o)
	case JSON:
		return json.NewEncoder(w).Encode(g)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}
