// Package handlers provides HTTP handlers for the alert log, including a
// websocket stream of newly created alerts.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/quantview/riskdesk/internal/domain"
	"github.com/quantview/riskdesk/internal/modules/alerts"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Handler handles alert HTTP requests
type Handler struct {
	engine *alerts.Engine
	log    zerolog.Logger
}

// NewHandler creates a new alerts handler
func NewHandler(engine *alerts.Engine, log zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		log:    log.With().Str("handler", "alerts").Logger(),
	}
}

// HandleGetAlerts handles GET /api/alerts
func (h *Handler) HandleGetAlerts(w http.ResponseWriter, r *http.Request) {
	all := h.engine.Alerts()

	includeDismissed := r.URL.Query().Get("include_dismissed") == "true"
	list := make([]alerts.Alert, 0, len(all))
	for _, a := range all {
		if a.Dismissed && !includeDismissed {
			continue
		}
		list = append(list, a)
	}

	response := map[string]interface{}{
		"data": list,
		"metadata": map[string]interface{}{
			"count":     len(list),
			"enabled":   h.engine.Enabled(),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDismissAlert handles POST /api/alerts/{id}/dismiss
func (h *Handler) HandleDismissAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.engine.Dismiss(id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Alert not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("alert_id", id).Msg("Failed to dismiss alert")
		http.Error(w, "Failed to dismiss alert", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"id":        id,
			"dismissed": true,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleClearAlerts handles POST /api/alerts/clear
func (h *Handler) HandleClearAlerts(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearAll()

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"cleared": true,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleStreamAlerts handles GET /api/alerts/stream. Each newly created
// alert is pushed as one JSON message. Dismissals and clears are not
// streamed; clients refetch the log for those.
func (h *Handler) HandleStreamAlerts(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ch, cancel := h.engine.Subscribe()
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case alert, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}

			writeCtx, cancelWrite := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, conn, alert)
			cancelWrite()
			if err != nil {
				h.log.Debug().Err(err).Msg("Websocket write failed, closing stream")
				return
			}
		}
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
