// Package api exposes the HTTP interface for the harvester service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mwhitford/wp-harvester/internal/classify"
	"github.com/mwhitford/wp-harvester/internal/crawl"
	"github.com/mwhitford/wp-harvester/internal/ingest"
)

// Crawler runs the link frontier and its maintenance pass.
type Crawler interface {
	Maintain(ctx context.Context) (crawl.MaintenanceResult, error)
	Run(ctx context.Context) (crawl.Result, error)
}

// Assigner classifies Visited links by href shape.
type Assigner interface {
	Run(ctx context.Context) (int, error)
}

// TaxonomyRunner derives tag and category rows from classified links.
type TaxonomyRunner interface {
	Run(ctx context.Context) (classify.TaxonomyResult, error)
}

// BatchIngestor runs the batch ingestion policy.
type BatchIngestor interface {
	Run(ctx context.Context) (ingest.BatchResult, error)
}

// SingleIngestor runs the single-link ingestion policy.
type SingleIngestor interface {
	Run(ctx context.Context) (ingest.Outcome, error)
}

// Pinger reports storage liveness for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires HTTP handlers to the pipeline stages.
type Server struct {
	router   chi.Router
	crawler  Crawler
	assigner Assigner
	taxonomy TaxonomyRunner
	batch    BatchIngestor
	single   SingleIngestor
	pinger   Pinger
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes. pinger may
// be nil, in which case readiness is unconditional.
func NewServer(
	crawler Crawler,
	assigner Assigner,
	taxonomy TaxonomyRunner,
	batch BatchIngestor,
	single SingleIngestor,
	pinger Pinger,
	logger *zap.Logger,
) *Server {
	s := &Server{
		crawler:  crawler,
		assigner: assigner,
		taxonomy: taxonomy,
		batch:    batch,
		single:   single,
		pinger:   pinger,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Pipeline operations run to completion inside the request. None
	// of them carries an operation-level timeout: a crawl proceeds
	// until the frontier drains or storage fails.
	r.Route("/v1", func(r chi.Router) {
		r.Get("/crawl", s.handleCrawl)
		r.Get("/classify", s.handleClassify)
		r.Route("/articles", func(r chi.Router) {
			r.Get("/batch", s.handleBatch)
			r.Get("/next", s.handleSingle)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.writeError(w, http.StatusServiceUnavailable, "storage unreachable")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleCrawl runs the maintenance pass and then the frontier. Fetch
// failures are folded into the result; only storage errors fail the
// request.
func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	maintenance, err := s.crawler.Maintain(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	result, err := s.crawler.Run(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"discovered":  result.Discovered,
		"links":       result.Processed,
		"maintenance": maintenance,
	})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	assigned, err := s.assigner.Run(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	taxonomy, err := s.taxonomy.Run(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"assigned":   assigned,
		"tags":       taxonomy.Tags,
		"categories": taxonomy.Categories,
		"rejected":   taxonomy.Rejected,
	})
}

// handleBatch returns 200 with per-item results; individual link
// failures are embedded, not surfaced as an HTTP error.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	result, err := s.batch.Run(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSingle(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.single.Run(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
