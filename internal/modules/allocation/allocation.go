// Package allocation computes utilization of the fixed risk target from a
// current risk measure. The calculation is a pure function: no side effects,
// deterministic, safe to call concurrently from any number of callers.
package allocation

import (
	"fmt"
	"math"

	"github.com/quantview/riskdesk/internal/domain"
)

// DefaultTarget is the fixed CVaR target as a fraction of portfolio value.
// It is a deployment-lifetime constant, exposed through configuration and
// never recomputed.
const DefaultTarget = 0.118

// RiskAllocation describes how much of the fixed risk target is in use.
// Utilization may exceed 1.0 when the portfolio is over-target.
type RiskAllocation struct {
	CurrentRisk    float64 `json:"current_risk"`
	Target         float64 `json:"target"`
	Utilization    float64 `json:"utilization"`
	RiskAmount     float64 `json:"risk_amount"`
	AvailableRisk  float64 `json:"available_risk"`
	PortfolioValue float64 `json:"portfolio_value"`
}

// Calculator computes risk allocations against a fixed target.
type Calculator struct {
	target float64
}

// NewCalculator creates a calculator for the given target. Non-positive
// targets fall back to DefaultTarget.
func NewCalculator(target float64) *Calculator {
	if target <= 0 {
		target = DefaultTarget
	}
	return &Calculator{target: target}
}

// Target returns the fixed risk target.
func (c *Calculator) Target() float64 {
	return c.target
}

// Compute derives the allocation state from the current risk fraction and
// the portfolio value. Negative inputs fail with domain.ErrInvalidInput.
func (c *Calculator) Compute(currentRisk, portfolioValue float64) (RiskAllocation, error) {
	if currentRisk < 0 || math.IsNaN(currentRisk) {
		return RiskAllocation{}, fmt.Errorf("%w: current risk must be >= 0, got %v", domain.ErrInvalidInput, currentRisk)
	}
	if portfolioValue < 0 || math.IsNaN(portfolioValue) {
		return RiskAllocation{}, fmt.Errorf("%w: portfolio value must be >= 0, got %v", domain.ErrInvalidInput, portfolioValue)
	}

	return RiskAllocation{
		CurrentRisk:    currentRisk,
		Target:         c.target,
		Utilization:    currentRisk / c.target,
		RiskAmount:     currentRisk * portfolioValue,
		AvailableRisk:  math.Max(0, c.target-currentRisk),
		PortfolioValue: portfolioValue,
	}, nil
}

// FromMeasurement is a convenience wrapper over Compute for data-source
// measurements.
func (c *Calculator) FromMeasurement(m domain.RiskMeasurement) (RiskAllocation, error) {
	return c.Compute(m.CurrentRisk, m.PortfolioValue)
}
