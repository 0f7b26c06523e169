// Package riskdata derives the portfolio's realized risk measure from the
// stored daily price history. This is the deliberately simplified,
// rule-based measure the dashboard tracks against its fixed target: the
// 95% historical CVaR of weighted portfolio returns, floored by recent
// realized volatility so a short calm stretch cannot zero out the measure.
package riskdata

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/quantview/riskdesk/internal/domain"
	"github.com/quantview/riskdesk/pkg/formulas"
	"github.com/rs/zerolog"
)

const (
	// lookbackDays is the return history window (one trading year).
	lookbackDays = 252
	// volFloorPeriod is the rolling window for the realized-volatility floor.
	volFloorPeriod = 21
	// cvarConfidence is the tail confidence level.
	cvarConfidence = 0.95
)

// Source computes the current risk measurement. It satisfies
// domain.RiskDataSource.
type Source struct {
	historyDB *sql.DB
	positions domain.PositionStore
	log       zerolog.Logger
}

// NewSource creates a risk data source over the history database.
func NewSource(historyDB *sql.DB, positions domain.PositionStore, log zerolog.Logger) *Source {
	return &Source{
		historyDB: historyDB,
		positions: positions,
		log:       log.With().Str("component", "riskdata").Logger(),
	}
}

// GetCurrentRisk reports the current risk as a 0-1 fraction of portfolio
// value, plus the portfolio value itself. An empty portfolio or missing
// price history yields a zero measurement, not an error.
func (s *Source) GetCurrentRisk() (domain.RiskMeasurement, error) {
	positions, err := s.positions.ListActivePositions()
	if err != nil {
		return domain.RiskMeasurement{}, fmt.Errorf("failed to list active positions: %w", err)
	}

	portfolioValue := 0.0
	for _, pos := range positions {
		portfolioValue += pos.Value
	}

	if portfolioValue == 0 {
		return domain.RiskMeasurement{}, nil
	}

	// Weights and per-symbol returns
	weights := make(map[string]float64, len(positions))
	returns := make(map[string][]float64, len(positions))
	for _, pos := range positions {
		weights[pos.Symbol] = pos.Value / portfolioValue

		closes, err := s.dailyCloses(pos.Symbol, lookbackDays)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("Failed to get prices for position")
			continue
		}
		if len(closes) < 2 {
			continue
		}

		returns[pos.Symbol] = formulas.CalculateReturns(closes)
	}

	portfolioReturns := weightedPortfolioReturns(returns, weights)
	if len(portfolioReturns) == 0 {
		s.log.Warn().Msg("No price history available, reporting zero risk")
		return domain.RiskMeasurement{PortfolioValue: portfolioValue}, nil
	}

	// CVaR is negative in the tail; the risk measure is its magnitude,
	// floored by recent realized volatility.
	cvar := formulas.CalculateCVaR(portfolioReturns, cvarConfidence)
	vol := formulas.RealizedVolatility(portfolioReturns, volFloorPeriod)

	currentRisk := math.Max(math.Abs(cvar), vol)
	currentRisk = math.Min(1, math.Max(0, currentRisk))

	return domain.RiskMeasurement{
		CurrentRisk:    currentRisk,
		PortfolioValue: portfolioValue,
	}, nil
}

// dailyCloses returns up to limit closing prices for symbol in
// chronological order.
func (s *Source) dailyCloses(symbol string, limit int) ([]float64, error) {
	rows, err := s.historyDB.Query(
		`SELECT close FROM daily_prices WHERE symbol = ? ORDER BY date DESC LIMIT ?`,
		symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices for %s: %w", symbol, err)
	}
	defer rows.Close()

	var closes []float64
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan price for %s: %w", symbol, err)
		}
		closes = append(closes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices for %s: %w", symbol, err)
	}

	// Newest-first from the index; reverse to chronological
	for i, j := 0, len(closes)-1; i < j; i, j = i+1, j-1 {
		closes[i], closes[j] = closes[j], closes[i]
	}

	return closes, nil
}

// weightedPortfolioReturns combines per-symbol return series into one
// portfolio series, truncated to the shortest history. Series are aligned
// on their most recent observations, so a newly listed symbol shortens the
// window for everyone instead of dragging in year-old returns.
func weightedPortfolioReturns(returns map[string][]float64, weights map[string]float64) []float64 {
	if len(returns) == 0 {
		return nil
	}

	minLen := -1
	for _, rets := range returns {
		if minLen == -1 || len(rets) < minLen {
			minLen = len(rets)
		}
	}
	if minLen <= 0 {
		return nil
	}

	portfolioReturns := make([]float64, minLen)
	for symbol, rets := range returns {
		weight := weights[symbol]
		recent := rets[len(rets)-minLen:]
		for i, r := range recent {
			portfolioReturns[i] += weight * r
		}
	}

	return portfolioReturns
}
