package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"bookie/settlement-engine/domain/entities"
	"bookie/settlement-engine/domain/events"
	"bookie/settlement-engine/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// cashoutService negotiates early buyouts of unresolved wagers. Offers are
// session-local values; the only durable truth consulted at acceptance time
// is the wager's canonical status, checked atomically through the same
// compare-and-set guard settlement uses.
type cashoutService struct {
	wagerRepo      interfaces.WagerRepository
	ledger         interfaces.LedgerService
	eventPublisher interfaces.EventPublisher

	// offerRate is the share of the at-risk win included in an offer:
	// offer = stake + offerRate × (potentialPayout − stake). A business
	// parameter, not a correctness concern.
	offerRate float64
}

// NewCashoutService creates a new cashout service
func NewCashoutService(wagerRepo interfaces.WagerRepository, ledger interfaces.LedgerService, eventPublisher interfaces.EventPublisher, offerRate float64) interfaces.CashoutService {
	return &cashoutService{
		wagerRepo:      wagerRepo,
		ledger:         ledger,
		eventPublisher: eventPublisher,
		offerRate:      offerRate,
	}
}

// RequestCashout quotes an early buyout for a pending wager. The offer
// carries an absolute expiry 30 seconds out.
func (s *cashoutService) RequestCashout(ctx context.Context, wagerID int64) (*entities.CashoutOffer, error) {
	wager, err := s.wagerRepo.GetByID(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wager: %w", err)
	}
	if wager == nil {
		return nil, entities.NewValidationError("wagerId", "wager not found")
	}
	if !wager.IsCashoutEligible() {
		return nil, &entities.StateConflictError{WagerID: wagerID, CurrentStatus: wager.Status}
	}

	atRisk := float64(wager.PotentialPayout - wager.Stake)
	amount := wager.Stake + int64(math.Round(s.offerRate*atRisk))
	if amount < 1 {
		amount = 1
	}

	offer := entities.NewCashoutOffer(wagerID, amount, time.Now().UTC())
	log.WithFields(log.Fields{
		"wagerId": wagerID,
		"offer":   amount,
	}).Info("Cashout offer quoted")
	return offer, nil
}

// AcceptCashout realizes an offer. It fails closed: after expiry, or after
// the wager settled through another path, no money moves and no ledger entry
// is written.
func (s *cashoutService) AcceptCashout(ctx context.Context, offer *entities.CashoutOffer, offeredAmount int64) (int64, error) {
	if offer == nil {
		return 0, entities.NewValidationError("offer", "no active offer")
	}
	if offer.Accepted {
		return 0, entities.NewValidationError("offer", "offer already accepted")
	}
	if offeredAmount != offer.Amount {
		return 0, entities.NewValidationError("offeredAmount", "does not match the quoted offer")
	}
	if offer.IsExpired(time.Now().UTC()) {
		return 0, entities.NewValidationError("offer", "offer expired")
	}

	// Offers are never authoritative: re-read the canonical status right
	// before committing.
	wager, err := s.wagerRepo.GetByID(ctx, offer.WagerID)
	if err != nil {
		return 0, fmt.Errorf("failed to get wager: %w", err)
	}
	if wager == nil {
		return 0, entities.NewValidationError("wagerId", "wager not found")
	}
	if wager.IsSettled() {
		return 0, &entities.StateConflictError{WagerID: wager.ID, CurrentStatus: wager.Status}
	}

	settledAt := time.Now().UTC()
	ok, err := s.wagerRepo.TransitionStatus(ctx, wager.ID, entities.WagerStatusPending, entities.WagerStatusCashedOut, settledAt)
	if err != nil {
		return 0, fmt.Errorf("failed to transition wager status: %w", err)
	}
	if !ok {
		current, rerr := s.wagerRepo.GetByID(ctx, wager.ID)
		status := entities.WagerStatus("unknown")
		if rerr == nil && current != nil {
			status = current.Status
		}
		return 0, &entities.StateConflictError{WagerID: wager.ID, CurrentStatus: status}
	}

	entry, err := s.ledger.Append(ctx, wager.UserID, entities.TransactionTypeCashoutCredit, offer.Amount,
		fmt.Sprintf("wager:%d", wager.ID),
		entities.CashoutMetadata{
			WagerID:         wager.ID,
			OfferAmount:     offer.Amount,
			PotentialPayout: wager.PotentialPayout,
		})
	if err != nil {
		log.WithFields(log.Fields{
			"wagerId": wager.ID,
			"amount":  offer.Amount,
			"error":   err,
		}).Error("Wager cashed out but credit not recorded; manual action required")
		return 0, fmt.Errorf("wager %d cashed out but credit not recorded: %w", wager.ID, err)
	}

	offer.Accepted = true

	if err := s.eventPublisher.Publish(events.WagerSettledEvent{
		WagerID:   wager.ID,
		UserID:    wager.UserID,
		Result:    entities.WagerStatusCashedOut,
		Stake:     wager.Stake,
		Payout:    offer.Amount,
		SettledAt: settledAt,
	}); err != nil {
		log.WithFields(log.Fields{"wagerId": wager.ID, "error": err}).Error("Failed to publish wager settled event")
	}

	log.WithFields(log.Fields{
		"wagerId": wager.ID,
		"amount":  offer.Amount,
	}).Info("Cashout accepted")
	return entry.BalanceAfter, nil
}
