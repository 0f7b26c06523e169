// Package handlers provides HTTP handlers for positions and tier
// transitions.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/quantview/riskdesk/internal/domain"
	"github.com/quantview/riskdesk/internal/modules/lifecycle"
	"github.com/rs/zerolog"
)

// PositionLister provides read access to stored positions.
type PositionLister interface {
	GetAll() ([]domain.Position, error)
	GetPosition(symbol string) (*domain.Position, error)
}

// Handler handles position lifecycle HTTP requests
type Handler struct {
	positions PositionLister
	service   *lifecycle.Service
	log       zerolog.Logger
}

// NewHandler creates a new lifecycle handler
func NewHandler(positions PositionLister, service *lifecycle.Service, log zerolog.Logger) *Handler {
	return &Handler{
		positions: positions,
		service:   service,
		log:       log.With().Str("handler", "lifecycle").Logger(),
	}
}

// HandleGetPositions handles GET /api/positions
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.positions.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get positions")
		http.Error(w, "Failed to get positions", http.StatusInternalServerError)
		return
	}

	if positions == nil {
		positions = []domain.Position{}
	}

	response := map[string]interface{}{
		"data": positions,
		"metadata": map[string]interface{}{
			"count":     len(positions),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetPosition handles GET /api/positions/{symbol}
func (h *Handler) HandleGetPosition(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	pos, err := h.positions.GetPosition(symbol)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Position not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get position")
		http.Error(w, "Failed to get position", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": pos,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// transitionRequest is the body for POST /api/positions/{symbol}/transition
type transitionRequest struct {
	Kind string `json:"kind"` // "protect" or "invest"
}

// HandleTransition handles POST /api/positions/{symbol}/transition
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Transition(symbol, lifecycle.TransitionKind(req.Kind))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Position not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrGuardViolation):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, domain.ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, domain.ErrPersistence):
			h.log.Error().Err(err).Str("symbol", symbol).Msg("Transition write failed")
			http.Error(w, "Failed to persist transition", http.StatusBadGateway)
		default:
			h.log.Error().Err(err).Str("symbol", symbol).Msg("Transition failed")
			http.Error(w, "Transition failed", http.StatusInternalServerError)
		}
		return
	}

	response := map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
