// Package stress projects a hypothetical portfolio under a market shock.
// RunScenario is a pure function of the portfolio snapshot, the base risk
// allocation and the scenario parameters: identical inputs always produce
// a bit-identical result (excluding the caller-supplied name).
package stress

import (
	"fmt"
	"math"
	"sort"

	"github.com/quantview/riskdesk/internal/domain"
	"github.com/quantview/riskdesk/internal/modules/allocation"
)

// MaxProjectedRisk is the hard cap on modeled tail risk. It must be
// preserved exactly for reproducibility of stored scenario results.
const MaxProjectedRisk = 0.30

// Parameters define a hypothetical market shock. Out-of-range values are
// rejected at this boundary, not clamped.
type Parameters struct {
	MarketStressPct        float64 `json:"market_stress_pct"`        // 0-60
	CorrelationIncreasePct float64 `json:"correlation_increase_pct"` // 0-100
	VolatilityMultiplier   float64 `json:"volatility_multiplier"`    // 1.0-5.0
	LiquidityImpactPct     float64 `json:"liquidity_impact_pct"`     // 0-20
}

// Validate checks every parameter against its documented range. The first
// violation is reported, wrapping domain.ErrInvalidScenarioParameters.
func (p Parameters) Validate() error {
	if p.MarketStressPct < 0 || p.MarketStressPct > 60 {
		return fmt.Errorf("%w: market stress must be 0-60%%, got %v", domain.ErrInvalidScenarioParameters, p.MarketStressPct)
	}
	if p.CorrelationIncreasePct < 0 || p.CorrelationIncreasePct > 100 {
		return fmt.Errorf("%w: correlation increase must be 0-100%%, got %v", domain.ErrInvalidScenarioParameters, p.CorrelationIncreasePct)
	}
	if p.VolatilityMultiplier < 1.0 || p.VolatilityMultiplier > 5.0 {
		return fmt.Errorf("%w: volatility multiplier must be 1.0-5.0, got %v", domain.ErrInvalidScenarioParameters, p.VolatilityMultiplier)
	}
	if p.LiquidityImpactPct < 0 || p.LiquidityImpactPct > 20 {
		return fmt.Errorf("%w: liquidity impact must be 0-20%%, got %v", domain.ErrInvalidScenarioParameters, p.LiquidityImpactPct)
	}
	return nil
}

// PositionImpact is one position's projected loss under the scenario.
type PositionImpact struct {
	Symbol        string      `json:"symbol"`
	Tier          domain.Tier `json:"tier"`
	Value         float64     `json:"value"`
	ProjectedLoss float64     `json:"projected_loss"`
	LossPct       float64     `json:"loss_pct"`
}

// Result is an immutable scenario outcome. A new one is produced per run.
type Result struct {
	Name                    string           `json:"name"`
	Parameters              Parameters       `json:"parameters"`
	ProjectedRisk           float64          `json:"projected_risk"`
	RiskUtilization         float64          `json:"risk_utilization"`
	ProjectedPortfolioValue float64          `json:"projected_portfolio_value"`
	PotentialLoss           float64          `json:"potential_loss"`
	PositionsAtRiskCount    int              `json:"positions_at_risk_count"`
	WorstCasePositions      []PositionImpact `json:"worst_case_positions"`
	Recommendations         []string         `json:"recommendations"`
}

// tierRiskFactor is how strongly a tier amplifies a market decline.
func tierRiskFactor(t domain.Tier) float64 {
	switch t {
	case domain.TierProtected:
		return 0.4
	case domain.TierInvestment:
		return 0.2
	default:
		// RiskOn, and anything unrecognized is treated as full risk
		return 0.8
	}
}

// RunScenario projects the portfolio under the given shock. It validates
// params, rejects out-of-range values, and never mutates its inputs.
func RunScenario(name string, portfolio domain.PortfolioSnapshot, base allocation.RiskAllocation, params Parameters) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	marketDeclineFrac := params.MarketStressPct / 100

	portfolioLoss := portfolio.TotalValue * marketDeclineFrac
	projectedPortfolioValue := portfolio.TotalValue - portfolioLoss

	projectedRisk := math.Min(MaxProjectedRisk,
		base.CurrentRisk*params.VolatilityMultiplier*(1+params.CorrelationIncreasePct/100))

	liquidityLoss := projectedPortfolioValue * (params.LiquidityImpactPct / 100)
	potentialLoss := portfolioLoss + liquidityLoss

	riskUtilization := projectedRisk / base.Target

	positionCount := len(portfolio.Positions)
	positionsAtRisk := int(math.Ceil(float64(positionCount) * marketDeclineFrac))

	return &Result{
		Name:                    name,
		Parameters:              params,
		ProjectedRisk:           projectedRisk,
		RiskUtilization:         riskUtilization,
		ProjectedPortfolioValue: projectedPortfolioValue,
		PotentialLoss:           potentialLoss,
		PositionsAtRiskCount:    positionsAtRisk,
		WorstCasePositions:      worstCasePositions(portfolio.Positions, marketDeclineFrac),
		Recommendations:         recommendations(projectedRisk, params, positionsAtRisk, positionCount),
	}, nil
}

// worstCasePositions ranks positions by projected loss, descending, ties
// broken by symbol ascending for determinism. Zero-value positions are
// excluded (their loss percentage is undefined). At most five are returned.
func worstCasePositions(positions []domain.Position, marketDeclineFrac float64) []PositionImpact {
	impacts := make([]PositionImpact, 0, len(positions))
	for _, pos := range positions {
		if pos.Value <= 0 {
			continue
		}

		stressMultiplier := 1 + marketDeclineFrac*tierRiskFactor(pos.Tier)
		projectedLoss := pos.Value * marketDeclineFrac * stressMultiplier

		impacts = append(impacts, PositionImpact{
			Symbol:        pos.Symbol,
			Tier:          pos.Tier,
			Value:         pos.Value,
			ProjectedLoss: projectedLoss,
			LossPct:       projectedLoss / pos.Value,
		})
	}

	sort.Slice(impacts, func(i, j int) bool {
		if impacts[i].ProjectedLoss != impacts[j].ProjectedLoss {
			return impacts[i].ProjectedLoss > impacts[j].ProjectedLoss
		}
		return impacts[i].Symbol < impacts[j].Symbol
	})

	if len(impacts) > 5 {
		impacts = impacts[:5]
	}
	return impacts
}

// recommendations evaluates the advice rules in fixed order. If no rule
// fires, the single fallback message is returned.
func recommendations(projectedRisk float64, params Parameters, positionsAtRisk, positionCount int) []string {
	var recs []string

	if projectedRisk > 0.15 {
		recs = append(recs, "Reduce position sizing: projected risk exceeds 15% of portfolio value")
	}
	if params.MarketStressPct > 30 {
		recs = append(recs, "Increase cash reserves to absorb a severe market decline")
	}
	if float64(positionsAtRisk) > 0.7*float64(positionCount) {
		recs = append(recs, "Diversify holdings: most positions are exposed under this scenario")
	}
	if params.LiquidityImpactPct > 10 {
		recs = append(recs, "Review liquidity of thinly traded holdings before stress hits")
	}

	if len(recs) == 0 {
		recs = append(recs, "Portfolio appears resilient under this scenario")
	}
	return recs
}
