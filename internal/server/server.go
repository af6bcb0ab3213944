// Package server exposes the engine's observability surface over HTTP:
// health, Prometheus metrics and JSON status snapshots.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/aurumlab/goldcore/internal/engine"
	"github.com/aurumlab/goldcore/internal/logger"
)

// SnapshotProvider supplies the status endpoint with a consistent view of
// the engine.
type SnapshotProvider interface {
	Snapshot() engine.Snapshot
}

// Server serves the status endpoints. It never mutates the engine.
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
}

// New creates a Server listening on addr.
func New(addr string, provider SnapshotProvider, metricsHandler http.Handler, log *logger.Logger) *Server {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	router.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, provider.Snapshot())
	}).Methods(http.MethodGet)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: log,
	}
}

// Handler returns the routing handler, used directly in tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown is called. It blocks, so callers run it in a
// goroutine.
func (s *Server) Start() error {
	s.logger.Info("status server listening", zap.String("addr", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
