// Package handlers provides HTTP handlers for scenario stress testing.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/quantview/riskdesk/internal/domain"
	"github.com/quantview/riskdesk/internal/modules/allocation"
	"github.com/quantview/riskdesk/internal/modules/stress"
	"github.com/rs/zerolog"
)

// SnapshotProvider supplies the portfolio snapshot a scenario runs against.
type SnapshotProvider interface {
	Snapshot() (domain.PortfolioSnapshot, error)
}

// Handler handles stress testing HTTP requests
type Handler struct {
	portfolio SnapshotProvider
	source    domain.RiskDataSource
	calc      *allocation.Calculator
	log       zerolog.Logger
}

// NewHandler creates a new stress testing handler
func NewHandler(
	portfolio SnapshotProvider,
	source domain.RiskDataSource,
	calc *allocation.Calculator,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		portfolio: portfolio,
		source:    source,
		calc:      calc,
		log:       log.With().Str("handler", "stress").Logger(),
	}
}

// runRequest is the body for POST /api/risk/scenarios/run. Either a preset
// name or explicit parameters must be provided; explicit parameters win.
type runRequest struct {
	Name       string             `json:"name"`
	Preset     string             `json:"preset"`
	Parameters *stress.Parameters `json:"parameters"`
}

// HandleRunScenario handles POST /api/risk/scenarios/run
func (h *Handler) HandleRunScenario(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var params stress.Parameters
	name := req.Name

	switch {
	case req.Parameters != nil:
		params = *req.Parameters
		if name == "" {
			name = "custom"
		}
	case req.Preset != "":
		preset, ok := stress.FindPreset(req.Preset)
		if !ok {
			http.Error(w, "Unknown preset: "+req.Preset, http.StatusNotFound)
			return
		}
		params = preset.Parameters
		if name == "" {
			name = preset.Name
		}
	default:
		http.Error(w, "Either preset or parameters is required", http.StatusBadRequest)
		return
	}

	snapshot, err := h.portfolio.Snapshot()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load portfolio snapshot")
		http.Error(w, "Failed to load portfolio", http.StatusInternalServerError)
		return
	}

	measurement, err := h.source.GetCurrentRisk()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read current risk")
		http.Error(w, "Failed to read current risk", http.StatusInternalServerError)
		return
	}

	base, err := h.calc.FromMeasurement(measurement)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute base allocation")
		http.Error(w, "Failed to compute base allocation", http.StatusInternalServerError)
		return
	}

	result, err := stress.RunScenario(name, snapshot, base, params)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidScenarioParameters) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("scenario", name).Msg("Scenario run failed")
		http.Error(w, "Scenario run failed", http.StatusInternalServerError)
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

// HandleGetPresets handles GET /api/risk/scenarios/presets
func (h *Handler) HandleGetPresets(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"data": stress.Presets(),
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
