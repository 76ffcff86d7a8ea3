// Package web exposes the REST and WebSocket surface of the application.
package web

import (
	"context"
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mkrull/lanscout/internal/core/ports"
	"github.com/mkrull/lanscout/internal/core/services/scan"
)

// Server handles HTTP and WebSocket connections.
type Server struct {
	Addr         string
	Store        ports.Storage
	Orchestrator *scan.Orchestrator
	Hub          *Hub

	srv *http.Server
}

// NewServer creates a new web server.
func NewServer(addr string, store ports.Storage, orchestrator *scan.Orchestrator, hub *Hub) *Server {
	return &Server{
		Addr:         addr,
		Store:        store,
		Orchestrator: orchestrator,
		Hub:          hub,
	}
}

// Run starts the server and blocks until ctx is cancelled or the listener
// fails.
func (s *Server) Run(ctx context.Context) error {
	handler := otelhttp.NewHandler(s.routes(), "lanscout-server")

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("Web server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Web server shutdown error: %v", err)
		}
	}()

	log.Printf("Web server listening on %s", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
