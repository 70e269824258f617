package services

import (
	"context"
	"testing"

	"bookie/settlement-engine/domain/entities"
	"bookie/settlement-engine/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newSettlementFixture() (*testhelpers.MockWagerRepository, *testhelpers.MockSelectionRepository, *testhelpers.MockLedgerService, *testhelpers.MockEventPublisher, *settlementService) {
	wagerRepo := new(testhelpers.MockWagerRepository)
	selectionRepo := new(testhelpers.MockSelectionRepository)
	ledger := new(testhelpers.MockLedgerService)
	publisher := new(testhelpers.MockEventPublisher)
	svc := NewSettlementService(wagerRepo, selectionRepo, ledger, NewPayoutCalculator(), publisher).(*settlementService)
	return wagerRepo, selectionRepo, ledger, publisher, svc
}

func pendingWager(id int64) *entities.Wager {
	return &entities.Wager{
		ID:              id,
		UserID:          42,
		BetType:         entities.BetTypeSingle,
		Stake:           1000,
		CombinedOdds:    3.5,
		PotentialPayout: 3500,
		Status:          entities.WagerStatusPending,
	}
}

func TestSettlementService_SettleWager_Won(t *testing.T) {
	ctx := context.Background()
	wagerRepo, selectionRepo, ledger, publisher, svc := newSettlementFixture()

	wager := pendingWager(1)
	selections := []*entities.Selection{
		{ID: 10, WagerID: 1, EventID: 5, Odds: 3.5, Result: entities.SelectionResultWon, DeadHeatDivisor: 1},
	}

	wagerRepo.On("GetByID", ctx, int64(1)).Return(wager, nil)
	selectionRepo.On("GetByWager", ctx, int64(1)).Return(selections, nil)
	wagerRepo.On("TransitionStatus", ctx, int64(1), entities.WagerStatusPending, entities.WagerStatusWon, mock.AnythingOfType("time.Time")).Return(true, nil)

	ledger.On("Append", ctx, int64(42), entities.TransactionTypeWagerPayout, int64(3500), "wager:1",
		mock.MatchedBy(func(md entities.EntryMetadata) bool {
			m, ok := md.(entities.WagerSettlementMetadata)
			return ok && m.WagerID == 1 && m.Result == "won"
		})).Return(&entities.LedgerEntry{Sequence: 7, UserID: 42, Amount: 3500, BalanceAfter: 3500}, nil)

	publisher.On("Publish", mock.AnythingOfType("events.WagerSettledEvent")).Return(nil)

	result, err := svc.SettleWager(ctx, 1, entities.WagerStatusWon)
	require.NoError(t, err)
	assert.Equal(t, entities.WagerStatusWon, result.Status)
	assert.Equal(t, int64(3500), result.Payout)

	wagerRepo.AssertExpectations(t)
	ledger.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestSettlementService_SettleWager_Lost_NoLedgerEntry(t *testing.T) {
	ctx := context.Background()
	wagerRepo, selectionRepo, ledger, publisher, svc := newSettlementFixture()

	wager := pendingWager(2)
	wagerRepo.On("GetByID", ctx, int64(2)).Return(wager, nil)
	selectionRepo.On("GetByWager", ctx, int64(2)).Return([]*entities.Selection{
		{ID: 11, WagerID: 2, EventID: 5, Odds: 3.5, Result: entities.SelectionResultLost, DeadHeatDivisor: 1},
	}, nil)
	wagerRepo.On("TransitionStatus", ctx, int64(2), entities.WagerStatusPending, entities.WagerStatusLost, mock.AnythingOfType("time.Time")).Return(true, nil)
	publisher.On("Publish", mock.AnythingOfType("events.WagerSettledEvent")).Return(nil)

	result, err := svc.SettleWager(ctx, 2, entities.WagerStatusLost)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Payout)

	ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementService_SettleWager_Void_RefundsStake(t *testing.T) {
	ctx := context.Background()
	wagerRepo, selectionRepo, ledger, publisher, svc := newSettlementFixture()

	wager := pendingWager(3)
	wagerRepo.On("GetByID", ctx, int64(3)).Return(wager, nil)
	selectionRepo.On("GetByWager", ctx, int64(3)).Return([]*entities.Selection{
		{ID: 12, WagerID: 3, EventID: 5, Odds: 3.5, Result: entities.SelectionResultVoid, DeadHeatDivisor: 1},
	}, nil)
	wagerRepo.On("TransitionStatus", ctx, int64(3), entities.WagerStatusPending, entities.WagerStatusVoid, mock.AnythingOfType("time.Time")).Return(true, nil)
	ledger.On("Append", ctx, int64(42), entities.TransactionTypeWagerVoidRefund, int64(1000), "wager:3", mock.Anything).
		Return(&entities.LedgerEntry{Sequence: 8, UserID: 42, Amount: 1000, BalanceAfter: 1000}, nil)
	publisher.On("Publish", mock.AnythingOfType("events.WagerSettledEvent")).Return(nil)

	result, err := svc.SettleWager(ctx, 3, entities.WagerStatusVoid)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), result.Payout)
	ledger.AssertExpectations(t)
}

func TestSettlementService_SettleWager_AlreadySettled(t *testing.T) {
	ctx := context.Background()
	wagerRepo, _, ledger, _, svc := newSettlementFixture()

	settled := pendingWager(4)
	settled.Status = entities.WagerStatusWon
	wagerRepo.On("GetByID", ctx, int64(4)).Return(settled, nil)

	_, err := svc.SettleWager(ctx, 4, entities.WagerStatusWon)

	var conflict *entities.StateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(4), conflict.WagerID)
	assert.Equal(t, entities.WagerStatusWon, conflict.CurrentStatus)
	ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementService_SettleWager_LosesRace(t *testing.T) {
	ctx := context.Background()
	wagerRepo, selectionRepo, ledger, _, svc := newSettlementFixture()

	// The wager is pending at read time but settles through another path
	// before our conditional write commits.
	wager := pendingWager(5)
	racedWager := pendingWager(5)
	racedWager.Status = entities.WagerStatusCashedOut

	wagerRepo.On("GetByID", ctx, int64(5)).Return(wager, nil).Once()
	selectionRepo.On("GetByWager", ctx, int64(5)).Return([]*entities.Selection{
		{ID: 13, WagerID: 5, EventID: 5, Odds: 3.5, Result: entities.SelectionResultWon, DeadHeatDivisor: 1},
	}, nil)
	wagerRepo.On("TransitionStatus", ctx, int64(5), entities.WagerStatusPending, entities.WagerStatusWon, mock.AnythingOfType("time.Time")).Return(false, nil)
	wagerRepo.On("GetByID", ctx, int64(5)).Return(racedWager, nil).Once()

	_, err := svc.SettleWager(ctx, 5, entities.WagerStatusWon)

	var conflict *entities.StateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, entities.WagerStatusCashedOut, conflict.CurrentStatus)

	// The race loser must not move any money.
	ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementService_SettleWager_InvalidResult(t *testing.T) {
	ctx := context.Background()
	_, _, _, _, svc := newSettlementFixture()

	var vErr *entities.ValidationError
	_, err := svc.SettleWager(ctx, 1, entities.WagerStatusCashedOut)
	require.ErrorAs(t, err, &vErr)

	_, err = svc.SettleWager(ctx, 1, entities.WagerStatusPending)
	require.ErrorAs(t, err, &vErr)
}

func TestSettlementService_SettleMatch_PartialFailure(t *testing.T) {
	ctx := context.Background()
	wagerRepo, selectionRepo, ledger, publisher, svc := newSettlementFixture()

	first := pendingWager(10)
	second := pendingWager(11)
	wagerRepo.On("GetPendingByEvent", ctx, int64(99)).Return([]*entities.Wager{first, second}, nil)

	firstLegs := []*entities.Selection{
		{ID: 20, WagerID: 10, EventID: 99, Odds: 3.5, Result: entities.SelectionResultPending, DeadHeatDivisor: 1},
	}
	secondLegs := []*entities.Selection{
		{ID: 21, WagerID: 11, EventID: 99, Odds: 3.5, Result: entities.SelectionResultPending, DeadHeatDivisor: 1},
	}
	selectionRepo.On("GetByWager", ctx, int64(10)).Return(firstLegs, nil)
	selectionRepo.On("GetByWager", ctx, int64(11)).Return(secondLegs, nil)
	selectionRepo.On("SettleResult", ctx, int64(20), entities.SelectionResultWon, 1, 0.0, mock.AnythingOfType("time.Time")).Return(nil)
	selectionRepo.On("SettleResult", ctx, int64(21), entities.SelectionResultWon, 1, 0.0, mock.AnythingOfType("time.Time")).Return(nil)

	// SettleWager re-reads each wager before its conditional write.
	wagerRepo.On("GetByID", ctx, int64(10)).Return(first, nil)
	wagerRepo.On("GetByID", ctx, int64(11)).Return(second, nil)

	// First wager settles cleanly; the second loses its race.
	wagerRepo.On("TransitionStatus", ctx, int64(10), entities.WagerStatusPending, entities.WagerStatusWon, mock.AnythingOfType("time.Time")).Return(true, nil)
	wagerRepo.On("TransitionStatus", ctx, int64(11), entities.WagerStatusPending, entities.WagerStatusWon, mock.AnythingOfType("time.Time")).Return(false, nil)

	ledger.On("Append", ctx, int64(42), entities.TransactionTypeWagerPayout, int64(3500), "wager:10", mock.Anything).
		Return(&entities.LedgerEntry{Sequence: 1, UserID: 42, Amount: 3500, BalanceAfter: 3500}, nil)
	publisher.On("Publish", mock.AnythingOfType("events.WagerSettledEvent")).Return(nil)

	results, err := svc.SettleMatch(ctx, 99, entities.SelectionResultWon)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, int64(3500), results[0].Payout)

	var conflict *entities.StateConflictError
	require.ErrorAs(t, results[1].Err, &conflict)
}

func TestSettlementService_SettleMatch_LeavesMultiLegOpen(t *testing.T) {
	ctx := context.Background()
	wagerRepo, selectionRepo, _, _, svc := newSettlementFixture()

	acc := pendingWager(12)
	acc.BetType = entities.BetTypeMultiple
	wagerRepo.On("GetPendingByEvent", ctx, int64(99)).Return([]*entities.Wager{acc}, nil)

	legs := []*entities.Selection{
		{ID: 30, WagerID: 12, EventID: 99, Odds: 2.0, Result: entities.SelectionResultPending, DeadHeatDivisor: 1},
		{ID: 31, WagerID: 12, EventID: 100, Odds: 3.0, Result: entities.SelectionResultPending, DeadHeatDivisor: 1},
	}
	selectionRepo.On("GetByWager", ctx, int64(12)).Return(legs, nil)
	selectionRepo.On("SettleResult", ctx, int64(30), entities.SelectionResultWon, 1, 0.0, mock.AnythingOfType("time.Time")).Return(nil)

	results, err := svc.SettleMatch(ctx, 99, entities.SelectionResultWon)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, entities.WagerStatusPending, results[0].Status)
}

func TestSettlementService_CancelWager_Chargeback(t *testing.T) {
	ctx := context.Background()
	wagerRepo, _, ledger, publisher, svc := newSettlementFixture()

	wager := pendingWager(6)
	wagerRepo.On("GetByID", ctx, int64(6)).Return(wager, nil)
	wagerRepo.On("TransitionStatus", ctx, int64(6), entities.WagerStatusPending, entities.WagerStatusCancelled, mock.AnythingOfType("time.Time")).Return(true, nil)
	ledger.On("Append", ctx, int64(42), entities.TransactionTypeChargebackRefund, int64(1000), "wager:6",
		mock.MatchedBy(func(md entities.EntryMetadata) bool {
			m, ok := md.(entities.ChargebackMetadata)
			return ok && m.DisputeID == "dsp-77"
		})).Return(&entities.LedgerEntry{Sequence: 9, UserID: 42, Amount: 1000, BalanceAfter: 1000}, nil)
	publisher.On("Publish", mock.AnythingOfType("events.FraudAlertEvent")).Return(nil)

	err := svc.CancelWager(ctx, 6, "dsp-77", "chargeback")
	require.NoError(t, err)

	ledger.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestSettlementService_CancelWager_OnlyFromPending(t *testing.T) {
	ctx := context.Background()
	wagerRepo, _, ledger, _, svc := newSettlementFixture()

	wager := pendingWager(7)
	wager.Status = entities.WagerStatusLost
	wagerRepo.On("GetByID", ctx, int64(7)).Return(wager, nil)

	err := svc.CancelWager(ctx, 7, "dsp-78", "chargeback")

	var conflict *entities.StateConflictError
	require.ErrorAs(t, err, &conflict)
	ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementService_SettleSelection(t *testing.T) {
	ctx := context.Background()
	_, selectionRepo, _, _, svc := newSettlementFixture()

	t.Run("records the leg result", func(t *testing.T) {
		sel := &entities.Selection{ID: 40, WagerID: 15, EventID: 1, Odds: 2.0, Result: entities.SelectionResultPending, DeadHeatDivisor: 1}
		selectionRepo.On("GetByID", ctx, int64(40)).Return(sel, nil).Once()
		selectionRepo.On("SettleResult", ctx, int64(40), entities.SelectionResultWon, 2, 0.0, mock.AnythingOfType("time.Time")).Return(nil).Once()

		err := svc.SettleSelection(ctx, 15, 40, entities.SelectionResultWon, 2, 0)
		require.NoError(t, err)
	})

	t.Run("rejects a re-settle", func(t *testing.T) {
		sel := &entities.Selection{ID: 41, WagerID: 15, EventID: 1, Odds: 2.0, Result: entities.SelectionResultWon, DeadHeatDivisor: 1}
		selectionRepo.On("GetByID", ctx, int64(41)).Return(sel, nil).Once()

		var vErr *entities.ValidationError
		err := svc.SettleSelection(ctx, 15, 41, entities.SelectionResultWon, 1, 0)
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("rejects a foreign selection", func(t *testing.T) {
		sel := &entities.Selection{ID: 42, WagerID: 99, EventID: 1, Odds: 2.0, Result: entities.SelectionResultPending, DeadHeatDivisor: 1}
		selectionRepo.On("GetByID", ctx, int64(42)).Return(sel, nil).Once()

		var vErr *entities.ValidationError
		err := svc.SettleSelection(ctx, 15, 42, entities.SelectionResultWon, 1, 0)
		require.ErrorAs(t, err, &vErr)
	})
}
