package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RiskService runs flood-risk lookups. *pipeline.Pipeline implements it.
type RiskService interface {
	RunAt(ctx context.Context, query string, i int) (pipeline.Result, error)
	Locations(ctx context.Context, query string, limit int) ([]domain.Location, error)
}

// Server exposes the risk API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	service    RiskService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /v1/risk, /v1/locations, /healthz,
// /readyz, and /metrics routes.
func NewServer(addr string, service RiskService, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second, // covers upstream retries
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		logger:  logger,
	}

	mux.HandleFunc("GET /v1/risk", s.handleRisk)
	mux.HandleFunc("GET /v1/locations", s.handleLocations)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

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

// handleRisk serves GET /v1/risk?q=<place>[&pick=<index>][&points=<n>].
func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pick, err := intParam(q.Get("pick"), 0, 0, pipeline.MaxCandidates-1)
	if err != nil {
		s.writeError(w, domain.InvalidInputf("http.risk", "pick: %v", err))
		return
	}
	points, err := intParam(q.Get("points"), 0, 0, domain.MaxForecastPoints)
	if err != nil {
		s.writeError(w, domain.InvalidInputf("http.risk", "points: %v", err))
		return
	}

	res, err := s.service.RunAt(r.Context(), q.Get("q"), pick)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Report(points))
}

// handleLocations serves GET /v1/locations?q=<place>[&limit=<n>].
func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), pipeline.MaxCandidates, 1, pipeline.MaxCandidates)
	if err != nil {
		s.writeError(w, domain.InvalidInputf("http.locations", "limit: %v", err))
		return
	}

	locs, err := s.service.Locations(r.Context(), q.Get("q"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": locs})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= 500 {
		s.logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]any{"error": pipeline.DescribeError(err)})
}

// StatusFor maps an error's Kind to an HTTP status code.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUpstreamError:
		return http.StatusBadGateway
	case domain.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func intParam(raw string, def, lo, hi int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("not an integer")
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("out of range [%d,%d]", lo, hi)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
