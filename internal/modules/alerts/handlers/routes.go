package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers alert routes. The websocket stream is mounted
// separately by the server so it escapes the request timeout middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", h.HandleGetAlerts)
		r.Post("/clear", h.HandleClearAlerts)
		r.Post("/{id}/dismiss", h.HandleDismissAlert)
	})
}
