package services

import (
	"bookie/settlement-engine/domain/entities"
)

// PayoutCalculator contains the pure payout arithmetic. No state, no I/O;
// invalid inputs are rejected, never clamped.
type PayoutCalculator struct{}

// NewPayoutCalculator creates a new PayoutCalculator
func NewPayoutCalculator() *PayoutCalculator {
	return &PayoutCalculator{}
}

// rule4Band maps an upper bound on the withdrawn competitor's decimal odds to
// the fraction of the payout retained by surviving selections. A heavier
// favorite withdrawn means a larger deduction, so retention grows with odds.
type rule4Band struct {
	maxOdds   float64
	retention float64
}

// rule4Bands is the ordered deduction schedule. Boundaries follow the
// UK-style odds-on table; confirm against the governing regulator's current
// schedule before relying on them in a new jurisdiction.
var rule4Bands = []rule4Band{
	{1.12, 0.10},
	{1.20, 0.15},
	{1.30, 0.20},
	{1.40, 0.25},
	{1.55, 0.30},
	{1.70, 0.35},
	{1.85, 0.40},
	{2.10, 0.45},
	{2.40, 0.50},
	{2.75, 0.55},
	{3.20, 0.60},
	{4.00, 0.65},
	{5.00, 0.70},
	{6.50, 0.75},
	{8.00, 0.80},
	{11.0, 0.85},
	{16.0, 0.90},
	{21.0, 0.95},
}

// DeadHeat computes the payout when n selections tie for a winning position
// that pays only one. n = 1 degenerates to the standard stake × odds.
func (c *PayoutCalculator) DeadHeat(stake int64, odds float64, n int) (float64, error) {
	if stake <= 0 {
		return 0, entities.NewValidationError("stake", "must be positive")
	}
	if odds < 1.0 {
		return 0, entities.NewValidationError("odds", "must be at least 1.0")
	}
	if n < 1 {
		return 0, entities.NewValidationError("deadHeatDivisor", "must be at least 1")
	}
	return float64(stake) * odds / float64(n), nil
}

// Rule4Retention looks up the fractional retention rate for a withdrawal,
// keyed to the withdrawn competitor's own odds at withdrawal time. Odds
// beyond the final band carry no deduction.
func (c *PayoutCalculator) Rule4Retention(withdrawnOdds float64) (float64, error) {
	if withdrawnOdds < 1.0 {
		return 0, entities.NewValidationError("withdrawnOdds", "must be at least 1.0")
	}
	for _, band := range rule4Bands {
		if withdrawnOdds <= band.maxOdds {
			return band.retention, nil
		}
	}
	return 1.0, nil
}

// Rule4 computes the payout of a surviving selection after a withdrawn-runner
// deduction: stake × retention × surviving odds.
func (c *PayoutCalculator) Rule4(stake int64, odds float64, withdrawnOdds float64) (float64, error) {
	if stake <= 0 {
		return 0, entities.NewValidationError("stake", "must be positive")
	}
	if odds < 1.0 {
		return 0, entities.NewValidationError("odds", "must be at least 1.0")
	}
	r, err := c.Rule4Retention(withdrawnOdds)
	if err != nil {
		return 0, err
	}
	return float64(stake) * r * odds, nil
}

// effectiveOdds returns the leg's odds after sequential adjustment: the
// withdrawal deduction scales the staked amount first, then the dead-heat
// division applies to the resulting payout. Void legs contribute 1.0.
func (c *PayoutCalculator) effectiveOdds(sel *entities.Selection) (float64, error) {
	if sel.Result == entities.SelectionResultVoid {
		return 1.0, nil
	}
	if sel.Odds < 1.0 {
		return 0, entities.NewValidationError("odds", "must be at least 1.0")
	}
	if sel.DeadHeatDivisor < 1 {
		return 0, entities.NewValidationError("deadHeatDivisor", "must be at least 1")
	}

	odds := sel.Odds
	if sel.HasWithdrawnRunner() {
		r, err := c.Rule4Retention(sel.WithdrawnOdds)
		if err != nil {
			return 0, err
		}
		odds *= r
	}
	return odds / float64(sel.DeadHeatDivisor), nil
}

// WagerPayout computes the settlement payout of a winning wager from its
// selections. Singles are the one-leg case of the same product.
func (c *PayoutCalculator) WagerPayout(wager *entities.Wager, selections []*entities.Selection) (float64, error) {
	if wager.Stake <= 0 {
		return 0, entities.NewValidationError("stake", "must be positive")
	}
	if len(selections) == 0 {
		return 0, entities.NewValidationError("selections", "wager has no selections")
	}

	combined := 1.0
	for _, sel := range selections {
		if sel.Result == entities.SelectionResultLost {
			return 0, nil
		}
		eff, err := c.effectiveOdds(sel)
		if err != nil {
			return 0, err
		}
		combined *= eff
	}
	return float64(wager.Stake) * combined, nil
}
