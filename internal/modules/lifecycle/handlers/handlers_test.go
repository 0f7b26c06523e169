package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/quantview/riskdesk/internal/domain"
	"github.com/quantview/riskdesk/internal/modules/lifecycle"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory position store for handler tests.
type memoryStore struct {
	positions map[string]domain.Position
	failWrite bool
}

func (m *memoryStore) ListActivePositions() ([]domain.Position, error) {
	var out []domain.Position
	for _, pos := range m.positions {
		if pos.Status == domain.StatusActive {
			out = append(out, pos)
		}
	}
	return out, nil
}

func (m *memoryStore) GetAll() ([]domain.Position, error) {
	out := make([]domain.Position, 0, len(m.positions))
	for _, pos := range m.positions {
		out = append(out, pos)
	}
	return out, nil
}

func (m *memoryStore) GetPosition(symbol string) (*domain.Position, error) {
	pos, ok := m.positions[symbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &pos, nil
}

func (m *memoryStore) UpdateTier(symbol string, newTier domain.Tier) (*domain.Position, error) {
	if m.failWrite {
		return nil, domain.ErrPersistence
	}
	pos, ok := m.positions[symbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	pos.Tier = newTier
	m.positions[symbol] = pos
	return &pos, nil
}

func newTestRouter(store *memoryStore) *chi.Mux {
	service := lifecycle.NewService(store, zerolog.Nop())
	handler := NewHandler(store, service, zerolog.Nop())

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func storeWith(positions ...domain.Position) *memoryStore {
	store := &memoryStore{positions: make(map[string]domain.Position)}
	for _, pos := range positions {
		store.positions[pos.Symbol] = pos
	}
	return store
}

func TestHandleGetPositions(t *testing.T) {
	router := newTestRouter(storeWith(
		domain.Position{Symbol: "AAPL", Value: 50000, Tier: domain.TierRiskOn, Status: domain.StatusActive},
	))

	req := httptest.NewRequest("GET", "/positions/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data     []domain.Position      `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "AAPL", body.Data[0].Symbol)
	assert.Equal(t, float64(1), body.Metadata["count"])
}

func TestHandleGetPosition(t *testing.T) {
	router := newTestRouter(storeWith(
		domain.Position{Symbol: "AAPL", Value: 50000, Tier: domain.TierRiskOn, Status: domain.StatusActive},
	))

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/positions/AAPL", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/positions/NOPE", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleTransition(t *testing.T) {
	protectable := domain.Position{
		Symbol:    "AAPL",
		Value:     50000,
		Tier:      domain.TierRiskOn,
		Status:    domain.StatusActive,
		StopState: domain.StopAtRisk,
	}

	post := func(router http.Handler, symbol, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/positions/"+symbol+"/transition", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("protect succeeds", func(t *testing.T) {
		store := storeWith(protectable)
		rec := post(newTestRouter(store), "AAPL", `{"kind":"protect"}`)

		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Data lifecycle.TransitionResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Data.Success)
		assert.Equal(t, domain.TierProtected, body.Data.ToTier)
		assert.Equal(t, domain.TierProtected, store.positions["AAPL"].Tier)
	})

	t.Run("guard violation maps to conflict", func(t *testing.T) {
		closed := protectable
		closed.Status = domain.StatusClosed
		rec := post(newTestRouter(storeWith(closed)), "AAPL", `{"kind":"protect"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown symbol maps to not found", func(t *testing.T) {
		rec := post(newTestRouter(storeWith()), "NOPE", `{"kind":"protect"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown kind maps to bad request", func(t *testing.T) {
		rec := post(newTestRouter(storeWith(protectable)), "AAPL", `{"kind":"liquidate"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body maps to bad request", func(t *testing.T) {
		rec := post(newTestRouter(storeWith(protectable)), "AAPL", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("store write failure maps to bad gateway", func(t *testing.T) {
		store := storeWith(protectable)
		store.failWrite = true
		rec := post(newTestRouter(store), "AAPL", `{"kind":"protect"}`)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, domain.TierRiskOn, store.positions["AAPL"].Tier)
	})
}
