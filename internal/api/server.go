// Package api exposes the sync engine over a JSON HTTP surface.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/lumadocs/driveline/internal/history"
	"github.com/lumadocs/driveline/internal/logger"
	"github.com/lumadocs/driveline/internal/service"
)

// SyncController is the slice of the sync service the API needs
type SyncController interface {
	StartSync(ctx context.Context) (ownerID string, err error)
	Status() service.Status
	ForceReset() error
	History(limit int) ([]history.PassRecord, error)
}

// Server is the JSON API HTTP server
type Server struct {
	mux *http.ServeMux
}

// NewServer creates an API server with all routes configured
func NewServer(svc SyncController, log logger.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("sync controller is required")
	}
	if log == nil {
		log = logger.Get()
	}

	sh := &syncHandler{svc: svc, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sync", sh.trigger)
	mux.HandleFunc("GET /api/v1/sync/status", sh.status)
	mux.HandleFunc("GET /api/v1/sync/history", sh.history)
	mux.HandleFunc("POST /api/v1/sync/reset", sh.reset)

	var handler http.Handler = mux
	handler = loggingMiddleware(log)(handler)
	handler = recoveryMiddleware(log)(handler)

	// health probes bypass the middleware stack
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", sh.health)
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler
func (s *Server) Handler() http.Handler {
	return s.mux
}
