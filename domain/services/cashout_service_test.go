package services

import (
	"context"
	"testing"
	"time"

	"bookie/settlement-engine/domain/entities"
	"bookie/settlement-engine/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCashoutFixture(offerRate float64) (*testhelpers.MockWagerRepository, *testhelpers.MockLedgerService, *testhelpers.MockEventPublisher, *cashoutService) {
	wagerRepo := new(testhelpers.MockWagerRepository)
	ledger := new(testhelpers.MockLedgerService)
	publisher := new(testhelpers.MockEventPublisher)
	svc := NewCashoutService(wagerRepo, ledger, publisher, offerRate).(*cashoutService)
	return wagerRepo, ledger, publisher, svc
}

func TestCashoutService_RequestCashout(t *testing.T) {
	ctx := context.Background()

	t.Run("quotes a discount off the potential win", func(t *testing.T) {
		wagerRepo, _, _, svc := newCashoutFixture(0.7)
		wager := pendingWager(1) // stake 1000, potential payout 3500
		wagerRepo.On("GetByID", ctx, int64(1)).Return(wager, nil)

		offer, err := svc.RequestCashout(ctx, 1)
		require.NoError(t, err)

		// stake + 0.7 × (3500 − 1000)
		assert.Equal(t, int64(2750), offer.Amount)
		assert.Equal(t, int64(1), offer.WagerID)
		assert.False(t, offer.Accepted)
		assert.Equal(t, entities.CashoutOfferTTL, offer.ExpiresAt.Sub(offer.CreatedAt))
	})

	t.Run("rejects a settled wager", func(t *testing.T) {
		wagerRepo, _, _, svc := newCashoutFixture(0.7)
		wager := pendingWager(2)
		wager.Status = entities.WagerStatusLost
		wagerRepo.On("GetByID", ctx, int64(2)).Return(wager, nil)

		var conflict *entities.StateConflictError
		_, err := svc.RequestCashout(ctx, 2)
		require.ErrorAs(t, err, &conflict)
	})

	t.Run("rejects an unknown wager", func(t *testing.T) {
		wagerRepo, _, _, svc := newCashoutFixture(0.7)
		wagerRepo.On("GetByID", ctx, int64(3)).Return(nil, nil)

		var vErr *entities.ValidationError
		_, err := svc.RequestCashout(ctx, 3)
		require.ErrorAs(t, err, &vErr)
	})
}

func TestCashoutService_AcceptCashout(t *testing.T) {
	ctx := context.Background()

	t.Run("credits the offer amount", func(t *testing.T) {
		wagerRepo, ledger, publisher, svc := newCashoutFixture(0.7)
		wager := pendingWager(1)
		offer := entities.NewCashoutOffer(1, 2750, time.Now().UTC())

		wagerRepo.On("GetByID", ctx, int64(1)).Return(wager, nil)
		wagerRepo.On("TransitionStatus", ctx, int64(1), entities.WagerStatusPending, entities.WagerStatusCashedOut, mock.AnythingOfType("time.Time")).Return(true, nil)
		ledger.On("Append", ctx, int64(42), entities.TransactionTypeCashoutCredit, int64(2750), "wager:1",
			mock.MatchedBy(func(md entities.EntryMetadata) bool {
				m, ok := md.(entities.CashoutMetadata)
				return ok && m.OfferAmount == 2750
			})).Return(&entities.LedgerEntry{Sequence: 3, UserID: 42, Amount: 2750, BalanceAfter: 4000}, nil)
		publisher.On("Publish", mock.AnythingOfType("events.WagerSettledEvent")).Return(nil)

		newBalance, err := svc.AcceptCashout(ctx, offer, 2750)
		require.NoError(t, err)
		assert.Equal(t, int64(4000), newBalance)
		assert.True(t, offer.Accepted)

		ledger.AssertExpectations(t)
	})

	t.Run("fails closed after expiry", func(t *testing.T) {
		_, ledger, _, svc := newCashoutFixture(0.7)
		stale := entities.NewCashoutOffer(1, 2750, time.Now().UTC().Add(-time.Minute))

		var vErr *entities.ValidationError
		_, err := svc.AcceptCashout(ctx, stale, 2750)
		require.ErrorAs(t, err, &vErr)

		ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("fails closed after independent settlement", func(t *testing.T) {
		wagerRepo, ledger, _, svc := newCashoutFixture(0.7)
		wager := pendingWager(1)
		wager.Status = entities.WagerStatusLost
		offer := entities.NewCashoutOffer(1, 2750, time.Now().UTC())

		wagerRepo.On("GetByID", ctx, int64(1)).Return(wager, nil)

		var conflict *entities.StateConflictError
		_, err := svc.AcceptCashout(ctx, offer, 2750)
		require.ErrorAs(t, err, &conflict)
		assert.False(t, offer.Accepted)

		ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("fails closed when losing the settlement race", func(t *testing.T) {
		wagerRepo, ledger, _, svc := newCashoutFixture(0.7)
		wager := pendingWager(1)
		raced := pendingWager(1)
		raced.Status = entities.WagerStatusWon
		offer := entities.NewCashoutOffer(1, 2750, time.Now().UTC())

		wagerRepo.On("GetByID", ctx, int64(1)).Return(wager, nil).Once()
		wagerRepo.On("TransitionStatus", ctx, int64(1), entities.WagerStatusPending, entities.WagerStatusCashedOut, mock.AnythingOfType("time.Time")).Return(false, nil)
		wagerRepo.On("GetByID", ctx, int64(1)).Return(raced, nil).Once()

		var conflict *entities.StateConflictError
		_, err := svc.AcceptCashout(ctx, offer, 2750)
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, entities.WagerStatusWon, conflict.CurrentStatus)

		ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects a mismatched amount", func(t *testing.T) {
		_, ledger, _, svc := newCashoutFixture(0.7)
		offer := entities.NewCashoutOffer(1, 2750, time.Now().UTC())

		var vErr *entities.ValidationError
		_, err := svc.AcceptCashout(ctx, offer, 9999)
		require.ErrorAs(t, err, &vErr)

		ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects a second acceptance", func(t *testing.T) {
		_, _, _, svc := newCashoutFixture(0.7)
		offer := entities.NewCashoutOffer(1, 2750, time.Now().UTC())
		offer.Accepted = true

		var vErr *entities.ValidationError
		_, err := svc.AcceptCashout(ctx, offer, 2750)
		require.ErrorAs(t, err, &vErr)
	})
}
