// Package lifecycle enforces guarded transitions of a position between
// risk tiers. Transitions are always externally triggered; there are no
// automatic or timed transitions. Each call is atomic from the caller's
// perspective: the guard check and the store write are one unit, and
// concurrent transition requests on the same symbol must be serialized by
// the caller or by the position store.
package lifecycle

import (
	"fmt"

	"github.com/quantview/riskdesk/internal/domain"
	"github.com/rs/zerolog"
)

// TransitionKind names a requested tier move.
type TransitionKind string

const (
	// TransitionProtect moves RiskOn -> Protected.
	TransitionProtect TransitionKind = "protect"
	// TransitionInvest moves Protected -> Investment.
	TransitionInvest TransitionKind = "invest"
)

// TransitionResult reports a successful tier change.
type TransitionResult struct {
	Success  bool             `json:"success"`
	FromTier domain.Tier      `json:"from_tier"`
	ToTier   domain.Tier      `json:"to_tier"`
	Position *domain.Position `json:"position"`
}

// Service runs the tier state machine against the position store.
type Service struct {
	store domain.PositionStore
	log   zerolog.Logger
}

// NewService creates a lifecycle service.
func NewService(store domain.PositionStore, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "lifecycle").Logger(),
	}
}

// Transition looks up the position, evaluates the guard for kind, and
// persists the tier change. Guard failures wrap domain.ErrGuardViolation
// naming the unmet condition; store failures leave the position unchanged.
func (s *Service) Transition(symbol string, kind TransitionKind) (*TransitionResult, error) {
	pos, err := s.store.GetPosition(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to look up position %s: %w", symbol, err)
	}

	toTier, err := evaluateGuard(pos, kind)
	if err != nil {
		s.log.Debug().Str("symbol", symbol).Str("kind", string(kind)).Err(err).Msg("Transition rejected")
		return nil, err
	}

	updated, err := s.store.UpdateTier(symbol, toTier)
	if err != nil {
		// The store guarantees no partial write on failure; nothing to undo.
		return nil, fmt.Errorf("failed to persist tier change for %s: %w", symbol, err)
	}

	s.log.Info().
		Str("symbol", symbol).
		Str("from", string(pos.Tier)).
		Str("to", string(toTier)).
		Msg("Position transitioned")

	return &TransitionResult{
		Success:  true,
		FromTier: pos.Tier,
		ToTier:   toTier,
		Position: updated,
	}, nil
}

// evaluateGuard returns the destination tier if the guard for kind holds.
//
// The protect guard checks stopState == AtRisk, matching the observed
// behavior of the dashboard even though its user-facing description says
// the stop has already moved to breakeven. Deliberately not "fixed" here;
// a test pins the current behavior until the product question is settled.
func evaluateGuard(pos *domain.Position, kind TransitionKind) (domain.Tier, error) {
	switch kind {
	case TransitionProtect:
		if pos.Tier != domain.TierRiskOn {
			return "", fmt.Errorf("%w: position %s is in tier %q, protect requires %q",
				domain.ErrGuardViolation, pos.Symbol, pos.Tier, domain.TierRiskOn)
		}
		if pos.Status != domain.StatusActive {
			return "", fmt.Errorf("%w: position %s has status %q, protect requires %q",
				domain.ErrGuardViolation, pos.Symbol, pos.Status, domain.StatusActive)
		}
		if pos.StopState != domain.StopAtRisk {
			return "", fmt.Errorf("%w: position %s has stop state %q, protect requires %q",
				domain.ErrGuardViolation, pos.Symbol, pos.StopState, domain.StopAtRisk)
		}
		return domain.TierProtected, nil

	case TransitionInvest:
		if pos.Tier != domain.TierProtected {
			return "", fmt.Errorf("%w: position %s is in tier %q, invest requires %q",
				domain.ErrGuardViolation, pos.Symbol, pos.Tier, domain.TierProtected)
		}
		if pos.Status != domain.StatusActive {
			return "", fmt.Errorf("%w: position %s has status %q, invest requires %q",
				domain.ErrGuardViolation, pos.Symbol, pos.Status, domain.StatusActive)
		}
		return domain.TierInvestment, nil

	default:
		return "", fmt.Errorf("%w: unknown transition kind %q", domain.ErrInvalidInput, kind)
	}
}
