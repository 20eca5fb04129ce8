// Package httpapi serves health, metrics and the job control endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smukkama/airquality-server/internal/scheduler"
)

// ReadinessChecker reports whether the service can reach its dependencies
type ReadinessChecker interface {
	PingContext(ctx context.Context) error
}

// JobRunner is the scheduler surface exposed over HTTP
type JobRunner interface {
	RunNow(ctx context.Context, name string) (any, error)
	Status() []scheduler.JobStatus
}

// Server exposes /healthz, /readyz, /metrics and /jobs
type Server struct {
	httpServer *http.Server
	jobs       JobRunner
	logger     *slog.Logger
}

// NewServer creates the HTTP server. writeTimeout must cover the longest
// manual job run, since POST /jobs/{name}/run answers when the job returns.
func NewServer(addr string, ready ReadinessChecker, jobs JobRunner, writeTimeout time.Duration, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       60 * time.Second,
		},
		jobs:   jobs,
		logger: logger.With("component", "http"),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /jobs", s.handleJobs)
	mux.HandleFunc("POST /jobs/{name}/run", s.handleRunJob)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.jobs.Status())
}

type runResponse struct {
	Job    string `json:"job"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	s.logger.Info("manual job run requested", "job", name, "remote", r.RemoteAddr)

	// the job outlives a client that hangs up
	result, err := s.jobs.RunNow(context.WithoutCancel(r.Context()), name)
	resp := runResponse{Job: name, Result: result}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, scheduler.ErrUnknownJob):
		resp.Error = err.Error()
		writeJSON(w, http.StatusNotFound, resp)
	case errors.Is(err, scheduler.ErrJobRunning):
		resp.Error = err.Error()
		writeJSON(w, http.StatusConflict, resp)
	default:
		resp.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
