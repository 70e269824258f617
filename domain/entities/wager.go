package entities

import (
	"errors"
	"time"
)

// WagerStatus represents the lifecycle state of a wager
type WagerStatus string

const (
	WagerStatusPending   WagerStatus = "pending"
	WagerStatusWon       WagerStatus = "won"
	WagerStatusLost      WagerStatus = "lost"
	WagerStatusVoid      WagerStatus = "void"
	WagerStatusCashedOut WagerStatus = "cashed_out"
	WagerStatusCancelled WagerStatus = "cancelled"
)

// BetType distinguishes single-leg wagers from accumulators
type BetType string

const (
	BetTypeSingle   BetType = "single"
	BetTypeMultiple BetType = "multiple"
)

// Wager represents a bet slip placed by a user
type Wager struct {
	ID              int64       `db:"id"`
	UserID          int64       `db:"user_id"`
	BetType         BetType     `db:"bet_type"`
	Stake           int64       `db:"stake"`
	CombinedOdds    float64     `db:"combined_odds"`
	PotentialPayout int64       `db:"potential_payout"`
	Status          WagerStatus `db:"status"`
	// Reference is the payment reference attached to the stake. Chargeback
	// notifications identify wagers by this value.
	Reference string     `db:"reference"`
	CreatedAt time.Time  `db:"created_at"`
	SettledAt *time.Time `db:"settled_at"`

	// Selections is populated when the wager is loaded with its legs
	Selections []*Selection `db:"-"`
}

// IsSettled returns true once the wager has left the pending state.
// All non-pending states are terminal.
func (w *Wager) IsSettled() bool {
	return w.Status != WagerStatusPending
}

// CanTransitionTo reports whether moving to the given status is a legal
// one-way transition. Only pending wagers may move, and never back to pending.
func (w *Wager) CanTransitionTo(target WagerStatus) bool {
	if w.Status != WagerStatusPending {
		return false
	}
	switch target {
	case WagerStatusWon, WagerStatusLost, WagerStatusVoid, WagerStatusCashedOut, WagerStatusCancelled:
		return true
	default:
		return false
	}
}

// IsCashoutEligible returns true while an early buyout offer may still be made
func (w *Wager) IsCashoutEligible() bool {
	return w.Status == WagerStatusPending
}

// Validate performs basic validation on the wager
func (w *Wager) Validate() error {
	if w.UserID == 0 {
		return errors.New("wager must belong to a user")
	}
	if w.Stake <= 0 {
		return errors.New("stake must be positive")
	}
	if w.CombinedOdds < 1.0 {
		return errors.New("combined odds must be at least 1.0")
	}
	if w.BetType != BetTypeSingle && w.BetType != BetTypeMultiple {
		return errors.New("unknown bet type")
	}
	return nil
}

// OverallStatus derives the wager-level status from its selections.
// It is the only way automated settlement determines an outcome:
// any lost leg loses the slip, all-void voids it, and a slip wins only
// once every non-void leg has won. A nil result means legs are still open.
func (w *Wager) OverallStatus(selections []*Selection) *WagerStatus {
	if len(selections) == 0 {
		return nil
	}

	voidCount := 0
	pending := false
	for _, sel := range selections {
		switch sel.Result {
		case SelectionResultLost:
			// A single lost leg loses the slip, even with other legs open.
			s := WagerStatusLost
			return &s
		case SelectionResultPending:
			pending = true
		case SelectionResultVoid:
			voidCount++
		}
	}
	if pending {
		return nil
	}

	if voidCount == len(selections) {
		s := WagerStatusVoid
		return &s
	}
	s := WagerStatusWon
	return &s
}
