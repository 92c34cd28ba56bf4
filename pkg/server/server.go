// Package server exposes export runs and metrics over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ccollicutt/dropboxlog/pkg/logging"
	"github.com/ccollicutt/dropboxlog/pkg/output"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// Runner runs exports and remembers the latest report.
type Runner interface {
	Run(ctx context.Context) (*output.Report, error)
	Latest() *output.Report
}

// Server is the HTTP front end of serve mode.
type Server struct {
	runner  Runner
	metrics http.Handler
	logger  logrus.FieldLogger
	started time.Time
}

// New creates a server. metrics may be nil, in which case /metrics is not routed.
func New(runner Runner, metrics http.Handler, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		runner:  runner,
		metrics: metrics,
		logger:  logger.WithField("component", "server"),
		started: time.Now(),
	}
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/exports", func(r chi.Router) {
		r.Post("/", s.handleRunExport)
		r.Get("/latest", s.handleLatest)
		r.Get("/latest/file", s.handleLatestFile)
	})

	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", ln.Addr().String()).Info("http server started")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleRunExport(w http.ResponseWriter, r *http.Request) {
	report, err := s.runner.Run(r.Context())
	if report == nil {
		report = output.NewReport(nil, err, "", nil)
	}

	status := http.StatusOK
	if report.Failed() {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, report)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	report := s.runner.Latest()
	if report == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no export has run yet"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleLatestFile(w http.ResponseWriter, r *http.Request) {
	report := s.runner.Latest()
	if report == nil || report.Summary.Path == "" {
		http.Error(w, "no export file available", http.StatusNotFound)
		return
	}

	f, err := os.Open(report.Summary.Path)
	if err != nil {
		http.Error(w, "export file unavailable", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "export file unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start),
			}).Debug("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
