package application

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"bookie/settlement-engine/domain/entities"
	"bookie/settlement-engine/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// ChargebackNotification is the payload the payment provider posts when a
// stake payment is disputed
type ChargebackNotification struct {
	DisputeID        string `json:"dispute_id"`
	PaymentReference string `json:"payment_reference"`
	Reason           string `json:"reason"`
	Amount           int64  `json:"amount"`
}

// ChargebackProcessor verifies and applies chargeback notifications. A valid
// notification cancels the disputed wager and claws back its stake.
type ChargebackProcessor struct {
	wagerRepo         interfaces.WagerRepository
	settlementService interfaces.SettlementService
	secret            []byte
}

// NewChargebackProcessor creates a new chargeback processor
func NewChargebackProcessor(wagerRepo interfaces.WagerRepository, settlementService interfaces.SettlementService, secret string) *ChargebackProcessor {
	return &ChargebackProcessor{
		wagerRepo:         wagerRepo,
		settlementService: settlementService,
		secret:            []byte(secret),
	}
}

// VerifySignature checks the provider's HMAC-SHA256 signature over the raw
// request body. Unsigned or mis-signed payloads are never processed.
func (p *ChargebackProcessor) VerifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, p.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// Process applies a verified chargeback notification
func (p *ChargebackProcessor) Process(ctx context.Context, body []byte, signature string) error {
	if !p.VerifySignature(body, signature) {
		return entities.NewValidationError("signature", "invalid webhook signature")
	}

	var notification ChargebackNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		return entities.NewValidationError("body", "malformed chargeback payload")
	}
	if notification.DisputeID == "" {
		return entities.NewValidationError("disputeId", "must be set")
	}
	if notification.PaymentReference == "" {
		return entities.NewValidationError("paymentReference", "must be set")
	}

	wager, err := p.wagerRepo.GetByReference(ctx, notification.PaymentReference)
	if err != nil {
		return fmt.Errorf("failed to look up disputed wager: %w", err)
	}
	if wager == nil {
		return entities.NewValidationError("paymentReference", "no wager matches the disputed payment")
	}

	reason := notification.Reason
	if reason == "" {
		reason = "chargeback"
	}

	if err := p.settlementService.CancelWager(ctx, wager.ID, notification.DisputeID, reason); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"wagerId":   wager.ID,
		"userId":    wager.UserID,
		"disputeId": notification.DisputeID,
	}).Info("Chargeback applied, wager cancelled")

	return nil
}
