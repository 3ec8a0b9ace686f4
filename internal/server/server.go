// Package server exposes the read-only ops API: run history, ML metrics,
// liveness, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/climate-pipeline/internal/model"
)

const defaultListLimit = 20

// RunLister reads pipeline run history.
type RunLister interface {
	List(ctx context.Context, limit int) ([]model.PipelineRunRecord, error)
}

// MetricLister reads ML training history.
type MetricLister interface {
	List(ctx context.Context, limit int) ([]model.MLMetricRecord, error)
}

// Server is the ops HTTP server.
type Server struct {
	httpServer *http.Server
}

// New creates a Server on addr over the two log stores.
func New(addr string, runs RunLister, metrics MetricLister) *Server {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/runs", handleList(func(ctx context.Context, limit int) (any, error) {
		recs, err := runs.List(ctx, limit)
		if recs == nil {
			recs = []model.PipelineRunRecord{}
		}
		return recs, err
	}))
	r.Get("/api/ml-metrics", handleList(func(ctx context.Context, limit int) (any, error) {
		recs, err := metrics.List(ctx, limit)
		if recs == nil {
			recs = []model.MLMetricRecord{}
		}
		return recs, err
	}))
	r.Handle("/metrics", promhttp.Handler())

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	zap.L().Info("ops server starting", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains connections within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the router, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleList(list func(ctx context.Context, limit int) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultListLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		out, err := list(r.Context(), limit)
		if err != nil {
			zap.L().Error("ops list query failed", zap.String("path", r.URL.Path), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}
