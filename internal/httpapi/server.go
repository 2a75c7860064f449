package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Server runs the API until Shutdown is called.
type Server struct {
	log *slog.Logger
	srv *http.Server
}

// NewServer creates a new Server listening on addr.
func NewServer(log *slog.Logger, addr string, handler http.Handler) *Server {
	return &Server{
		log: log,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start blocks serving requests. It returns nil after a graceful Shutdown.
func (s *Server) Start() error {
	const opn = "httpapi.Start"

	s.log.Info("API server is starting...", "op", opn, "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", opn, err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	const opn = "httpapi.Shutdown"

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}
	s.log.Info("API server is stopped...", "op", opn)
	return nil
}
