package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/banshee-data/pixelgrid/internal/axis"
	"github.com/banshee-data/pixelgrid/internal/config"
	"github.com/banshee-data/pixelgrid/internal/raster"
	"github.com/banshee-data/pixelgrid/internal/reduction"
	"github.com/banshee-data/pixelgrid/internal/render"
	"github.com/banshee-data/pixelgrid/internal/schema"
	"github.com/banshee-data/pixelgrid/internal/store"
)

// writeJSON writes data as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode json response: %v", err)
	}
}

// writeJSONError writes {"error": msg} with the given status code.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// badRequest is every error caused by the request rather than the server.
var badRequest = []error{
	errBadParam,
	schema.ErrMismatch,
	raster.ErrNotTabular,
	raster.ErrInvalidCanvas,
	axis.ErrUnknownAxis,
	axis.ErrDegenerateRange,
	axis.ErrInvalidResolution,
	reduction.ErrUnknownReduction,
	config.ErrInvalid,
	render.ErrUnknownFormat,
	store.ErrInvalidCSV,
}

// statusFor maps an error from the render path to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrDatasetNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDatasetExists):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// writeError writes err with the status statusFor picks. Server faults are
// logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s id=%s: %v", r.Method, r.URL.Path, r.Header.Get(RequestIDHeader), err)
	}
	writeJSONError(w, status, err.Error())
}
