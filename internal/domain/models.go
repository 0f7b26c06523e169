// Package domain contains the pure data model for the risk-management core.
// It has no infrastructure dependencies; all I/O lives behind the interfaces
// in interfaces.go.
package domain

import "time"

// Tier is a position's risk-management lifecycle stage.
type Tier string

const (
	// TierRiskOn - newly opened positions carrying full market risk
	TierRiskOn Tier = "risk_on"
	// TierProtected - positions whose downside is guarded by a stop
	TierProtected Tier = "protected"
	// TierInvestment - long-term holdings; terminal in practice
	TierInvestment Tier = "investment"
)

// Valid reports whether t is one of the three known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierRiskOn, TierProtected, TierInvestment:
		return true
	}
	return false
}

// PositionStatus is the trading status of a position.
type PositionStatus string

const (
	StatusActive  PositionStatus = "active"
	StatusClosed  PositionStatus = "closed"
	StatusPending PositionStatus = "pending"
)

// StopState describes whether a position's stop still exposes capital.
type StopState string

const (
	StopAtRisk    StopState = "at_risk"
	StopProtected StopState = "protected"
)

// Position is a single portfolio position as the core sees it. The position
// store owns the full record; the core only reads it and writes the tier
// through the lifecycle service.
type Position struct {
	Symbol      string         `json:"symbol"`
	Value       float64        `json:"value"`
	Tier        Tier           `json:"tier"`
	Status      PositionStatus `json:"status"`
	StopState   StopState      `json:"stop_state"`
	LastUpdated time.Time      `json:"last_updated"`
}

// PortfolioSnapshot is the input to a stress-scenario run: the portfolio's
// total value and its positions at a point in time.
type PortfolioSnapshot struct {
	TotalValue float64    `json:"total_value"`
	Positions  []Position `json:"positions"`
}

// RiskMeasurement is what the risk data source reports on each monitoring
// tick: the current risk as a 0-1 fraction of portfolio value, and the
// portfolio value itself.
type RiskMeasurement struct {
	CurrentRisk    float64 `json:"current_risk"`
	PortfolioValue float64 `json:"portfolio_value"`
}
