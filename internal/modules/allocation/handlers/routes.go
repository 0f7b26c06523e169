package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers risk allocation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Get("/allocation", h.HandleGetAllocation)
		r.Get("/history", h.HandleGetHistory)
	})
}
