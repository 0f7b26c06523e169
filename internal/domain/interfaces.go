package domain

// PositionStore is the external collaborator that owns position records.
// The core reads positions through it and updates tiers through UpdateTier.
type PositionStore interface {
	// ListActivePositions returns all positions with StatusActive.
	ListActivePositions() ([]Position, error)

	// GetPosition returns the position for symbol, or an error wrapping
	// ErrNotFound if absent.
	GetPosition(symbol string) (*Position, error)

	// UpdateTier persists a tier change and returns the updated position.
	// Failures wrap ErrPersistence (or ErrNotFound if the symbol vanished);
	// on error the stored record is unchanged.
	UpdateTier(symbol string, newTier Tier) (*Position, error)
}

// RiskDataSource supplies the realized risk measure each monitoring tick.
// A source is scoped to a single portfolio, like the alert engine it
// feeds; deployments tracking several portfolios construct one source
// per portfolio. Polling cadence is the caller's decision.
type RiskDataSource interface {
	GetCurrentRisk() (RiskMeasurement, error)
}
