// Package web exposes the slideshow pipeline as a JSON API.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/moodreel/internal/ai"
	"github.com/kozaktomas/moodreel/internal/config"
	"github.com/kozaktomas/moodreel/internal/pipeline"
	"github.com/kozaktomas/moodreel/internal/session"
	"github.com/kozaktomas/moodreel/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	sessions   *session.Manager
	pipeline   *pipeline.Pipeline
	captioner  ai.Provider // optional, nil disables captions
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, pipe *pipeline.Pipeline, captioner ai.Provider) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:    cfg,
		router:    r,
		sessions:  session.NewManager(cfg.Web.SessionSecret),
		pipeline:  pipe,
		captioner: captioner,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(5 * time.Minute))
	r.Use(middleware.CORS())

	s.setupRoutes()

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Long timeout for uploads and rendering
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	// Stop the session expiry sweeper
	if s.sessions != nil {
		s.sessions.Stop()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
