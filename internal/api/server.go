// Package api serves rasterization over HTTP.
//
// # Endpoints
//
//	GET  /healthz                 liveness and build version
//	POST /v1/rasterize            one record in, one vector out
//	POST /v1/convert              ndjson records in, vectors out
//
// Query parameters override the server's default options:
//
//	mode=point|line|coords  size=14|28  width=<stroke width>
//	threshold=<1-255>  augment=true  seed=<uint>
//
// Every response carries an X-Request-ID header. Errors are returned as
//
//	{"error": {"code": "INVALID_STROKE", "message": "..."}, "request_id": "..."}
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/inkgrid/pkg/pipeline"
)

// Server limits.
const (
	// MaxRecordBytes bounds a /v1/rasterize body.
	MaxRecordBytes = 1 << 20

	// MaxBatchBytes bounds a /v1/convert body.
	MaxBatchBytes = 64 << 20

	// MaxBatchRecords bounds the records accepted by /v1/convert.
	MaxBatchRecords = 10000

	shutdownTimeout = 10 * time.Second
)

// Server exposes a pipeline runner over HTTP.
type Server struct {
	Runner   *pipeline.Runner
	Defaults pipeline.Options
	Logger   *log.Logger
}

// New creates a server. Defaults are the options applied before query
// parameters; they are validated here.
func New(runner *pipeline.Runner, defaults pipeline.Options, logger *log.Logger) (*Server, error) {
	if err := defaults.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = runner.Logger
	}
	return &Server{Runner: runner, Defaults: defaults, Logger: logger}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/rasterize", s.handleRasterize)
		r.Post("/convert", s.handleConvert)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" not allowed")
	})
	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
