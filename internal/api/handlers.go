package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/banshee-data/pixelgrid/internal/config"
	"github.com/banshee-data/pixelgrid/internal/glyph"
	"github.com/banshee-data/pixelgrid/internal/grid"
	"github.com/banshee-data/pixelgrid/internal/raster"
	"github.com/banshee-data/pixelgrid/internal/reduction"
	"github.com/banshee-data/pixelgrid/internal/render"
	"github.com/banshee-data/pixelgrid/internal/schema"
	"github.com/banshee-data/pixelgrid/internal/store"
)

var errBadParam = errors.New("invalid parameter")

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, s.cfg)
}

// datasets lists the catalog on GET and imports a CSV body on POST. The
// dataset name comes from the "name" query parameter.
func (s *Server) datasets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.store.Datasets(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if list == nil {
			list = []store.Dataset{}
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		name := r.URL.Query().Get("name")
		body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
		ds, err := s.store.ImportCSV(r.Context(), name, r.URL.Query().Get("source"), body)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, ds)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

type datasetDetail struct {
	*store.Dataset
	Schema schema.Schema `json:"schema"`
}

// dataset serves /api/datasets/{name or id}: GET describes it and DELETE
// drops it.
func (s *Server) dataset(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/datasets/")
	if key == "" || strings.Contains(key, "/") {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		ds, err := s.store.Dataset(r.Context(), key)
		if err != nil {
			writeError(w, r, err)
			return
		}
		src, err := s.store.Source(r.Context(), key)
		if err != nil {
			writeError(w, r, err)
			return
		}
		sch, err := src.SchemaContext(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, datasetDetail{Dataset: ds, Schema: sch})
	case http.MethodDelete:
		if err := s.store.Delete(r.Context(), key); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET, DELETE")
	}
}

// renderRequest is one parsed aggregation request.
type renderRequest struct {
	Dataset string
	Glyph   glyph.Glyph
	Summary reduction.Summary
	Config  *config.RenderConfig
	Title   string
}

func (s *Server) parseRenderRequest(q url.Values) (*renderRequest, error) {
	req := &renderRequest{Dataset: q.Get("dataset"), Title: q.Get("title")}
	if req.Dataset == "" {
		return nil, fmt.Errorf("%w: dataset is required", errBadParam)
	}
	x, y := q.Get("x"), q.Get("y")
	if x == "" || y == "" {
		return nil, fmt.Errorf("%w: x and y are required", errBadParam)
	}
	switch kind := q.Get("glyph"); kind {
	case "", "points", "point":
		req.Glyph = glyph.Point{X: x, Y: y}
	case "lines", "line":
		req.Glyph = glyph.Line{X: x, Y: y}
	default:
		return nil, fmt.Errorf("%w: glyph %q, want points or lines", errBadParam, kind)
	}

	agg := q.Get("agg")
	if agg == "" {
		agg = "count"
	}
	var err error
	if req.Summary, err = reduction.Parse(agg); err != nil {
		return nil, err
	}

	override, err := queryConfig(q)
	if err != nil {
		return nil, err
	}
	req.Config = s.cfg.Merge(override)
	if err := req.Config.Validate(); err != nil {
		return nil, err
	}
	if req.Title == "" {
		req.Title = fmt.Sprintf("%s %s %s", req.Dataset, req.Glyph, req.Summary)
	}
	return req, nil
}

// queryConfig reads RenderConfig overrides from the query string. The keys
// match the JSON config file; ranges are written "lo,hi".
func queryConfig(q url.Values) (*config.RenderConfig, error) {
	c := &config.RenderConfig{}
	var err error
	if c.PlotWidth, err = queryInt(q, "plot_width"); err != nil {
		return nil, err
	}
	if c.PlotHeight, err = queryInt(q, "plot_height"); err != nil {
		return nil, err
	}
	if c.Partitions, err = queryInt(q, "partitions"); err != nil {
		return nil, err
	}
	if c.ColorLevels, err = queryInt(q, "color_levels"); err != nil {
		return nil, err
	}
	if c.XRange, err = queryRange(q, "x_range"); err != nil {
		return nil, err
	}
	if c.YRange, err = queryRange(q, "y_range"); err != nil {
		return nil, err
	}
	c.XAxisType = queryString(q, "x_axis_type")
	c.YAxisType = queryString(q, "y_axis_type")
	c.Timeout = queryString(q, "timeout")
	if v := q.Get("log_color"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: log_color %q", errBadParam, v)
		}
		c.LogColor = &b
	}
	return c, nil
}

func queryString(q url.Values, key string) *string {
	if v := q.Get(key); v != "" {
		return &v
	}
	return nil
}

func queryInt(q url.Values, key string) (*int, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q", errBadParam, key, v)
	}
	return &n, nil
}

func queryRange(q url.Values, key string) (*[2]float64, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	r, err := config.ParseRange(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return r, nil
}

// renderHandler aggregates a stored dataset and writes it in format f. The
// output is buffered so failures still produce a JSON error body.
func (s *Server) renderHandler(f render.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		req, err := s.parseRenderRequest(r.URL.Query())
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), req.Config.GetTimeout())
		defer cancel()

		g, err := s.aggregate(ctx, req)
		if err != nil {
			writeError(w, r, err)
			return
		}

		var buf bytes.Buffer
		opts := render.Options{
			Title:       req.Title,
			ColorLevels: req.Config.GetColorLevels(),
			LogColor:    req.Config.GetLogColor(),
		}
		if err := render.Write(&buf, g, f, opts); err != nil {
			writeError(w, r, fmt.Errorf("render %s: %w", f, err))
			return
		}
		w.Header().Set("Content-Type", f.ContentType())
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}

func (s *Server) aggregate(ctx context.Context, req *renderRequest) (*grid.Grid, error) {
	cv, err := req.Config.Canvas()
	if err != nil {
		return nil, err
	}
	src, err := s.store.Source(ctx, req.Dataset)
	if err != nil {
		return nil, err
	}
	src.Partitions = req.Config.GetPartitions()
	return raster.Bypixel(ctx, src, cv, req.Glyph, req.Summary)
}
