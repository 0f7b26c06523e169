package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers position lifecycle routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/positions", func(r chi.Router) {
		r.Get("/", h.HandleGetPositions)
		r.Get("/{symbol}", h.HandleGetPosition)
		r.Post("/{symbol}/transition", h.HandleTransition)
	})
}
