package application

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"bookie/settlement-engine/domain/entities"
	"bookie/settlement-engine/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "test-webhook-secret"

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestChargebackProcessor_Process(t *testing.T) {
	ctx := context.Background()

	newProcessor := func() (*ChargebackProcessor, *testhelpers.MockWagerRepository, *testhelpers.MockSettlementService) {
		wagerRepo := new(testhelpers.MockWagerRepository)
		settlement := new(testhelpers.MockSettlementService)
		return NewChargebackProcessor(wagerRepo, settlement, testWebhookSecret), wagerRepo, settlement
	}

	t.Run("cancels the disputed wager", func(t *testing.T) {
		processor, wagerRepo, settlement := newProcessor()

		body := []byte(`{"dispute_id":"dsp-77","payment_reference":"pay-42-100","reason":"fraudulent","amount":1000}`)
		wagerRepo.On("GetByReference", ctx, "pay-42-100").Return(&entities.Wager{
			ID:        9,
			UserID:    42,
			Status:    entities.WagerStatusPending,
			Reference: "pay-42-100",
		}, nil)
		settlement.On("CancelWager", ctx, int64(9), "dsp-77", "fraudulent").Return(nil)

		require.NoError(t, processor.Process(ctx, body, signBody(body)))
		settlement.AssertExpectations(t)
	})

	t.Run("rejects a bad signature without touching anything", func(t *testing.T) {
		processor, wagerRepo, settlement := newProcessor()

		body := []byte(`{"dispute_id":"dsp-77","payment_reference":"pay-42-100"}`)

		var vErr *entities.ValidationError
		err := processor.Process(ctx, body, "deadbeef")
		require.ErrorAs(t, err, &vErr)

		wagerRepo.AssertNotCalled(t, "GetByReference", mock.Anything, mock.Anything)
		settlement.AssertNotCalled(t, "CancelWager", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects a missing signature", func(t *testing.T) {
		processor, _, _ := newProcessor()

		body := []byte(`{"dispute_id":"dsp-77","payment_reference":"pay-42-100"}`)

		var vErr *entities.ValidationError
		require.ErrorAs(t, processor.Process(ctx, body, ""), &vErr)
	})

	t.Run("rejects an unknown payment reference", func(t *testing.T) {
		processor, wagerRepo, settlement := newProcessor()

		body := []byte(`{"dispute_id":"dsp-77","payment_reference":"pay-unknown"}`)
		wagerRepo.On("GetByReference", ctx, "pay-unknown").Return(nil, nil)

		var vErr *entities.ValidationError
		require.ErrorAs(t, processor.Process(ctx, body, signBody(body)), &vErr)
		settlement.AssertNotCalled(t, "CancelWager", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("defaults the reason when the provider omits it", func(t *testing.T) {
		processor, wagerRepo, settlement := newProcessor()

		body := []byte(`{"dispute_id":"dsp-78","payment_reference":"pay-42-101"}`)
		wagerRepo.On("GetByReference", ctx, "pay-42-101").Return(&entities.Wager{
			ID:        10,
			UserID:    42,
			Status:    entities.WagerStatusPending,
			Reference: "pay-42-101",
		}, nil)
		settlement.On("CancelWager", ctx, int64(10), "dsp-78", "chargeback").Return(nil)

		require.NoError(t, processor.Process(ctx, body, signBody(body)))
		settlement.AssertExpectations(t)
	})

	t.Run("surfaces settlement state conflicts", func(t *testing.T) {
		processor, wagerRepo, settlement := newProcessor()

		body := []byte(`{"dispute_id":"dsp-79","payment_reference":"pay-42-102"}`)
		wagerRepo.On("GetByReference", ctx, "pay-42-102").Return(&entities.Wager{
			ID:        11,
			UserID:    42,
			Status:    entities.WagerStatusWon,
			Reference: "pay-42-102",
		}, nil)
		conflict := &entities.StateConflictError{WagerID: 11, CurrentStatus: entities.WagerStatusWon}
		settlement.On("CancelWager", ctx, int64(11), "dsp-79", "chargeback").Return(conflict)

		var stateErr *entities.StateConflictError
		require.ErrorAs(t, processor.Process(ctx, body, signBody(body)), &stateErr)
	})
}

func TestChargebackProcessor_VerifySignature(t *testing.T) {
	processor := NewChargebackProcessor(new(testhelpers.MockWagerRepository), new(testhelpers.MockSettlementService), testWebhookSecret)

	body := []byte(`{"dispute_id":"dsp-1"}`)
	assert.True(t, processor.VerifySignature(body, signBody(body)))
	assert.False(t, processor.VerifySignature(body, signBody([]byte("other"))))
	assert.False(t, processor.VerifySignature(body, ""))
}
