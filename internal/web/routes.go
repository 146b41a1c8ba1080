package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/moodreel/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	reelHandler := handlers.NewReelHandler(s.pipeline, s.sessions, s.captioner)

	// Health check (no session required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/session", reelHandler.Session)

		r.Post("/references", reelHandler.SetReferences)
		r.Post("/photos", reelHandler.UploadPhotos)
		r.Post("/analyze", reelHandler.Analyze)
		r.Get("/report", reelHandler.Report)

		r.Post("/video", reelHandler.GenerateVideo)
		r.Get("/video/{id}", reelHandler.DownloadVideo)

		r.Post("/reset", reelHandler.Reset)
	})
}
