package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushchain/chain-orchestrator/orchestrator/db"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

const shutdownTimeout = 5 * time.Second

// Server provides the read-only query endpoints
type Server struct {
	repo      *db.Repository
	protocols []store.Protocol
	logger    zerolog.Logger
	server    *http.Server
	listener  net.Listener
}

// NewServer creates a new Server instance. protocols is reported by /health.
func NewServer(repo *db.Repository, protocols []store.Protocol, port int, logger zerolog.Logger) *Server {
	s := &Server{
		repo:      repo,
		protocols: protocols,
		logger:    logger.With().Str("component", "query_server").Logger(),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Start binds the port and serves in the background. A bind failure is
// returned immediately.
func (s *Server) Start() error {
	if s.server == nil {
		return fmt.Errorf("query server is nil")
	}
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind to address %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	go func() {
		err := s.server.Serve(ln)
		switch {
		case err == nil:
			s.logger.Info().Msg("query server stopped normally")
		case errors.Is(err, http.ErrServerClosed):
			s.logger.Info().Msg("query server closed gracefully")
		default:
			s.logger.Error().Err(err).Msg("query server error")
		}
	}()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("query server listening")
	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
