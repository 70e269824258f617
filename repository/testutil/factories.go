package testutil

import (
	"fmt"

	"bookie/settlement-engine/domain/entities"
)

// CreateTestWager creates a single-leg pending wager with sensible defaults
func CreateTestWager(userID int64, eventID int64) *entities.Wager {
	return &entities.Wager{
		UserID:          userID,
		BetType:         entities.BetTypeSingle,
		Stake:           1000,
		CombinedOdds:    3.5,
		PotentialPayout: 3500,
		Status:          entities.WagerStatusPending,
		Reference:       fmt.Sprintf("pay-%d-%d", userID, eventID),
		Selections: []*entities.Selection{
			{
				EventID:         eventID,
				Outcome:         "home_win",
				Odds:            3.5,
				Result:          entities.SelectionResultPending,
				DeadHeatDivisor: 1,
			},
		},
	}
}

// CreateTestAccumulator creates a pending multi-leg wager across the given events
func CreateTestAccumulator(userID int64, stake int64, eventIDs ...int64) *entities.Wager {
	combined := 1.0
	selections := make([]*entities.Selection, 0, len(eventIDs))
	for i, eventID := range eventIDs {
		odds := 2.0 + float64(i)*0.5
		combined *= odds
		selections = append(selections, &entities.Selection{
			EventID:         eventID,
			Outcome:         fmt.Sprintf("outcome-%d", i+1),
			Odds:            odds,
			Result:          entities.SelectionResultPending,
			DeadHeatDivisor: 1,
		})
	}
	return &entities.Wager{
		UserID:          userID,
		BetType:         entities.BetTypeMultiple,
		Stake:           stake,
		CombinedOdds:    combined,
		PotentialPayout: int64(float64(stake) * combined),
		Status:          entities.WagerStatusPending,
		Reference:       fmt.Sprintf("pay-%d-acc-%d", userID, eventIDs[0]),
		Selections:      selections,
	}
}

// CreateTestLedgerEntry creates an unchained deposit entry; the repository
// assigns sequence, balances and hashes on append
func CreateTestLedgerEntry(userID int64, amount int64, reference string) *entities.LedgerEntry {
	return &entities.LedgerEntry{
		UserID:    userID,
		Type:      entities.TransactionTypeDeposit,
		Amount:    amount,
		Reference: reference,
	}
}
