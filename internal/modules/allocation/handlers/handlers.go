// Package handlers provides HTTP handlers for risk allocation queries.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/quantview/riskdesk/internal/clientdata"
	"github.com/quantview/riskdesk/internal/domain"
	"github.com/quantview/riskdesk/internal/modules/allocation"
	"github.com/rs/zerolog"
)

// Handler handles risk allocation HTTP requests
type Handler struct {
	source    domain.RiskDataSource
	calc      *allocation.Calculator
	snapshots *clientdata.SnapshotRepository
	log       zerolog.Logger
}

// NewHandler creates a new allocation handler
func NewHandler(
	source domain.RiskDataSource,
	calc *allocation.Calculator,
	snapshots *clientdata.SnapshotRepository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		source:    source,
		calc:      calc,
		snapshots: snapshots,
		log:       log.With().Str("handler", "allocation").Logger(),
	}
}

// HandleGetAllocation handles GET /api/risk/allocation
func (h *Handler) HandleGetAllocation(w http.ResponseWriter, r *http.Request) {
	measurement, err := h.source.GetCurrentRisk()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read current risk")
		http.Error(w, "Failed to read current risk", http.StatusInternalServerError)
		return
	}

	alloc, err := h.calc.FromMeasurement(measurement)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute allocation")
		http.Error(w, "Failed to compute allocation", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": alloc,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetHistory handles GET /api/risk/history
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			http.Error(w, "limit must be an integer between 1 and 1000", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	snapshots, err := h.snapshots.Recent(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read snapshot history")
		http.Error(w, "Failed to read snapshot history", http.StatusInternalServerError)
		return
	}

	if snapshots == nil {
		snapshots = []clientdata.RiskSnapshot{}
	}

	response := map[string]interface{}{
		"data": snapshots,
		"metadata": map[string]interface{}{
			"count":     len(snapshots),
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
