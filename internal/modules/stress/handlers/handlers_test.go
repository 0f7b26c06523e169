package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/quantview/riskdesk/internal/domain"
	"github.com/quantview/riskdesk/internal/modules/allocation"
	"github.com/quantview/riskdesk/internal/modules/stress"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPortfolio struct {
	snapshot domain.PortfolioSnapshot
	err      error
}

func (s *stubPortfolio) Snapshot() (domain.PortfolioSnapshot, error) {
	return s.snapshot, s.err
}

type stubSource struct {
	measurement domain.RiskMeasurement
	err         error
}

func (s *stubSource) GetCurrentRisk() (domain.RiskMeasurement, error) {
	return s.measurement, s.err
}

func newTestRouter() *chi.Mux {
	portfolio := &stubPortfolio{snapshot: domain.PortfolioSnapshot{
		TotalValue: 1000000,
		Positions: []domain.Position{
			{Symbol: "AAPL", Value: 600000, Tier: domain.TierRiskOn},
			{Symbol: "TLT", Value: 400000, Tier: domain.TierInvestment},
		},
	}}
	source := &stubSource{measurement: domain.RiskMeasurement{
		CurrentRisk:    0.059,
		PortfolioValue: 1000000,
	}}

	handler := NewHandler(portfolio, source, allocation.NewCalculator(0.118), zerolog.Nop())
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func postRun(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/risk/scenarios/run", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleRunScenarioWithPreset(t *testing.T) {
	rec := postRun(t, newTestRouter(), `{"preset":"moderate_selloff"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data stress.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "moderate_selloff", body.Data.Name)
	assert.InDelta(t, 0.2065, body.Data.ProjectedRisk, 1e-9)
	assert.InDelta(t, 800000, body.Data.ProjectedPortfolioValue, 0.001)
}

func TestHandleRunScenarioWithExplicitParameters(t *testing.T) {
	rec := postRun(t, newTestRouter(), `{
		"name": "board_meeting",
		"parameters": {
			"market_stress_pct": 10,
			"correlation_increase_pct": 0,
			"volatility_multiplier": 1.5,
			"liquidity_impact_pct": 0
		}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data stress.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "board_meeting", body.Data.Name)
	assert.InDelta(t, 0.0885, body.Data.ProjectedRisk, 1e-9)
}

func TestHandleRunScenarioErrors(t *testing.T) {
	router := newTestRouter()

	t.Run("out of range parameters", func(t *testing.T) {
		rec := postRun(t, router, `{"parameters":{"market_stress_pct":99,"volatility_multiplier":1}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown preset", func(t *testing.T) {
		rec := postRun(t, router, `{"preset":"asteroid_strike"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("neither preset nor parameters", func(t *testing.T) {
		rec := postRun(t, router, `{"name":"empty"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := postRun(t, router, `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleGetPresets(t *testing.T) {
	req := httptest.NewRequest("GET", "/risk/scenarios/presets", nil)
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []stress.Preset `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 4)
}
