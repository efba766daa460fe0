package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/picpress/picpress/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	imagesHandler := handlers.NewImagesHandler(s.session)
	generateHandler := handlers.NewGenerateHandler(s.session)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Image list
		r.Get("/images", imagesHandler.List)
		r.Post("/images", imagesHandler.Upload)
		r.Delete("/images/{id}", imagesHandler.Delete)
		r.Post("/images/{id}/move-up", imagesHandler.MoveUp)
		r.Post("/images/{id}/move-down", imagesHandler.MoveDown)

		// Document generation
		r.Post("/generate", generateHandler.Generate)
		r.Get("/status", generateHandler.Status)
	})
}
