package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/pixelgrid/internal/config"
	"github.com/banshee-data/pixelgrid/internal/render"
	"github.com/banshee-data/pixelgrid/internal/store"
	"github.com/banshee-data/pixelgrid/internal/timeutil"
	"github.com/google/uuid"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// maxUploadBytes caps a CSV import body.
const maxUploadBytes = 64 << 20

// RequestIDHeader carries the per-request ID on requests and responses.
const RequestIDHeader = "X-Request-ID"

type Server struct {
	store *store.Store
	cfg   *config.RenderConfig
}

// NewServer returns a server rendering datasets from st. cfg supplies the
// defaults that query parameters override; nil means the built-in defaults.
func NewServer(st *store.Store, cfg *config.RenderConfig) *Server {
	if cfg == nil {
		cfg = config.DefaultRenderConfig()
	}
	return &Server{
		store: st,
		cfg:   cfg,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, duration and the
// request ID.
func LoggingMiddleware(next http.Handler) http.Handler {
	return TimedLoggingMiddleware(timeutil.RealClock{})(next)
}

// TimedLoggingMiddleware is LoggingMiddleware measuring durations with clock.
func TimedLoggingMiddleware(clock timeutil.Clock) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := clock.Now()
			lrw := &loggingResponseWriter{w, http.StatusOK}
			next.ServeHTTP(lrw, r)
			log.Printf(
				"[%s] %s %s%s%s %vms id=%s",
				statusCodeColor(lrw.statusCode), r.Method,
				colorCyan, r.RequestURI, colorReset,
				float64(clock.Since(start).Nanoseconds())/1e6,
				w.Header().Get(RequestIDHeader),
			)
		})
	}
}

// RequestIDMiddleware echoes the caller's X-Request-ID or assigns a new
// UUID.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// ServeMux returns the API routes without middleware so callers can mount
// more handlers (for example store.AttachAdminRoutes) on it.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/datasets", s.datasets)
	mux.HandleFunc("/api/datasets/", s.dataset)
	mux.HandleFunc("/api/aggregate", s.renderHandler(render.JSON))
	mux.HandleFunc("/heatmap", s.renderHandler(render.HTML))
	mux.HandleFunc("/heatmap.png", s.renderHandler(render.PNG))
	return mux
}

// Handler wraps mux with request IDs and access logging.
func Handler(mux http.Handler) http.Handler {
	return RequestIDMiddleware(LoggingMiddleware(mux))
}

// ListenAndServe serves h on listen until ctx is canceled, then shuts the
// server down gracefully.
func ListenAndServe(ctx context.Context, listen string, h http.Handler) error {
	server := &http.Server{
		Addr:              listen,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	log.Printf("listening on %s", listen)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
		return err
	}
	log.Printf("HTTP server stopped")
	return nil
}
