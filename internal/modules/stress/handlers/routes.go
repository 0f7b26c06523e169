package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers scenario stress testing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk/scenarios", func(r chi.Router) {
		r.Post("/run", h.HandleRunScenario)
		r.Get("/presets", h.HandleGetPresets)
	})
}
