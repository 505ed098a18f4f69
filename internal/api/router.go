package api

import (
	"event-location-service/internal/api/handlers"
	"event-location-service/internal/picker"
	"event-location-service/internal/platform/metrics"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(manager *picker.Manager, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware)

	sessions := &handlers.SessionHandler{Manager: manager}

	r.Get("/health", handlers.Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", sessions.Mount)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", sessions.Get)
			r.Delete("/", sessions.Unmount)
			r.Post("/render", sessions.Render)
			r.Post("/click", sessions.Click)
			r.Get("/search", sessions.Search)
			r.Post("/search/select", sessions.SelectResult)
			r.Post("/geolocation", sessions.Geolocation)
		})
	})

	return r
}
