package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bookie/settlement-engine/config"
	"bookie/settlement-engine/domain/entities"
)

func signWebhookBody(body string) string {
	mac := hmac.New(sha256.New, []byte(config.NewTestConfig().ChargebackSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestChargebackWebhook(t *testing.T) {
	body := `{"dispute_id":"dsp-77","payment_reference":"pay-42-100","reason":"fraudulent","amount":1000}`

	t.Run("cancels the disputed wager", func(t *testing.T) {
		router, mocks := newTestServer(t)

		mocks.wagerRepo.On("GetByReference", mock.Anything, "pay-42-100").
			Return(&entities.Wager{ID: 9, UserID: 42, Reference: "pay-42-100"}, nil)
		mocks.settlementService.On("CancelWager", mock.Anything, int64(9), "dsp-77", "fraudulent").
			Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/chargeback", strings.NewReader(body))
		req.Header.Set(signatureHeader, signWebhookBody(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "processed")
		mocks.settlementService.AssertExpectations(t)
	})

	t.Run("rejects a bad signature without touching anything", func(t *testing.T) {
		router, mocks := newTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/chargeback", strings.NewReader(body))
		req.Header.Set(signatureHeader, "deadbeef")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		mocks.wagerRepo.AssertNotCalled(t, "GetByReference", mock.Anything, mock.Anything)
		mocks.settlementService.AssertNotCalled(t, "CancelWager",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects a missing signature", func(t *testing.T) {
		router, _ := newTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/chargeback", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects an unknown payment reference", func(t *testing.T) {
		router, mocks := newTestServer(t)

		mocks.wagerRepo.On("GetByReference", mock.Anything, "pay-42-100").
			Return(nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/chargeback", strings.NewReader(body))
		req.Header.Set(signatureHeader, signWebhookBody(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("acknowledges a dispute on an already-settled wager", func(t *testing.T) {
		router, mocks := newTestServer(t)

		mocks.wagerRepo.On("GetByReference", mock.Anything, "pay-42-100").
			Return(&entities.Wager{ID: 9, UserID: 42, Reference: "pay-42-100"}, nil)
		mocks.settlementService.On("CancelWager", mock.Anything, int64(9), "dsp-77", "fraudulent").
			Return(&entities.StateConflictError{WagerID: 9, CurrentStatus: entities.WagerStatusWon})

		req := httptest.NewRequest(http.MethodPost, "/webhooks/chargeback", strings.NewReader(body))
		req.Header.Set(signatureHeader, signWebhookBody(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "already_handled")
	})
}
