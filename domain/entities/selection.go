package entities

import (
	"errors"
	"time"
)

// SelectionResult represents the settlement outcome of a single leg
type SelectionResult string

const (
	SelectionResultPending SelectionResult = "pending"
	SelectionResultWon     SelectionResult = "won"
	SelectionResultLost    SelectionResult = "lost"
	SelectionResultVoid    SelectionResult = "void"
)

// Selection is one leg of a wager: a chosen outcome on a referenced event
// at the odds that applied when the slip was placed.
type Selection struct {
	ID      int64           `db:"id"`
	WagerID int64           `db:"wager_id"`
	EventID int64           `db:"event_id"`
	Outcome string          `db:"outcome"`
	Odds    float64         `db:"odds"`
	Result  SelectionResult `db:"result"`

	// DeadHeatDivisor is the number of runners tied for the paying position.
	// 1 means no dead heat.
	DeadHeatDivisor int `db:"dead_heat_divisor"`

	// WithdrawnOdds carries the odds of a withdrawn competitor in the same
	// market at withdrawal time. 0 means no withdrawal affects this leg.
	WithdrawnOdds float64 `db:"withdrawn_odds"`

	SettledAt *time.Time `db:"settled_at"`
}

// IsSettled returns true once the leg result has been recorded
func (s *Selection) IsSettled() bool {
	return s.Result != SelectionResultPending
}

// HasDeadHeat returns true if the leg finished in a dead heat
func (s *Selection) HasDeadHeat() bool {
	return s.DeadHeatDivisor > 1
}

// HasWithdrawnRunner returns true if a priced competitor was withdrawn
// after the wager was placed
func (s *Selection) HasWithdrawnRunner() bool {
	return s.WithdrawnOdds > 0
}

// Validate performs basic validation on the selection
func (s *Selection) Validate() error {
	if s.WagerID == 0 {
		return errors.New("selection must belong to a wager")
	}
	if s.EventID == 0 {
		return errors.New("selection must reference an event")
	}
	if s.Odds < 1.0 {
		return errors.New("odds must be at least 1.0")
	}
	if s.DeadHeatDivisor < 1 {
		return errors.New("dead heat divisor must be at least 1")
	}
	if s.WithdrawnOdds < 0 {
		return errors.New("withdrawn odds cannot be negative")
	}
	return nil
}
