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

// settlementService orchestrates the wager lifecycle state machine. Every
// status write goes through the compare-and-set guard on the wager's status
// column: exactly one of any racing writers wins, the rest surface
// StateConflictError as a no-op outcome.
type settlementService struct {
	wagerRepo      interfaces.WagerRepository
	selectionRepo  interfaces.SelectionRepository
	ledger         interfaces.LedgerService
	calc           *PayoutCalculator
	eventPublisher interfaces.EventPublisher
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	wagerRepo interfaces.WagerRepository,
	selectionRepo interfaces.SelectionRepository,
	ledger interfaces.LedgerService,
	calc *PayoutCalculator,
	eventPublisher interfaces.EventPublisher,
) interfaces.SettlementService {
	return &settlementService{
		wagerRepo:      wagerRepo,
		selectionRepo:  selectionRepo,
		ledger:         ledger,
		calc:           calc,
		eventPublisher: eventPublisher,
	}
}

// SettleSelection records a leg outcome. It moves no money; money only moves
// once the whole wager settles.
func (s *settlementService) SettleSelection(ctx context.Context, wagerID, selectionID int64, result entities.SelectionResult, deadHeatDivisor int, withdrawnOdds float64) error {
	if result != entities.SelectionResultWon && result != entities.SelectionResultLost && result != entities.SelectionResultVoid {
		return entities.NewValidationError("result", fmt.Sprintf("invalid selection result %q", result))
	}
	if deadHeatDivisor < 1 {
		return entities.NewValidationError("deadHeatDivisor", "must be at least 1")
	}
	if withdrawnOdds < 0 {
		return entities.NewValidationError("withdrawnOdds", "cannot be negative")
	}

	selection, err := s.selectionRepo.GetByID(ctx, selectionID)
	if err != nil {
		return fmt.Errorf("failed to get selection: %w", err)
	}
	if selection == nil || selection.WagerID != wagerID {
		return entities.NewValidationError("selectionId", "selection does not belong to wager")
	}
	if selection.IsSettled() {
		return entities.NewValidationError("selectionId", "selection already settled")
	}

	if err := s.selectionRepo.SettleResult(ctx, selectionID, result, deadHeatDivisor, withdrawnOdds, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to settle selection: %w", err)
	}

	log.WithFields(log.Fields{
		"wagerId":     wagerID,
		"selectionId": selectionID,
		"result":      result,
	}).Info("Selection settled")
	return nil
}

// SettleWager moves a pending wager into a terminal state, paying out through
// the ledger when the result warrants it. StateConflictError means the wager
// was already handled through another path; callers must not retry.
func (s *settlementService) SettleWager(ctx context.Context, wagerID int64, result entities.WagerStatus) (*interfaces.SettlementResult, error) {
	switch result {
	case entities.WagerStatusWon, entities.WagerStatusLost, entities.WagerStatusVoid:
	default:
		return nil, entities.NewValidationError("result", fmt.Sprintf("invalid settlement result %q", result))
	}

	wager, err := s.wagerRepo.GetByID(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wager: %w", err)
	}
	if wager == nil {
		return nil, entities.NewValidationError("wagerId", "wager not found")
	}
	if wager.IsSettled() {
		return nil, &entities.StateConflictError{WagerID: wagerID, CurrentStatus: wager.Status}
	}

	selections, err := s.selectionRepo.GetByWager(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get selections: %w", err)
	}

	var payout int64
	var deadHeat, rule4 bool
	if result == entities.WagerStatusWon {
		raw, err := s.calc.WagerPayout(wager, selections)
		if err != nil {
			return nil, err
		}
		payout = int64(math.Round(raw))
		for _, sel := range selections {
			deadHeat = deadHeat || sel.HasDeadHeat()
			rule4 = rule4 || sel.HasWithdrawnRunner()
		}
	} else if result == entities.WagerStatusVoid {
		payout = wager.Stake
	}

	settledAt := time.Now().UTC()
	ok, err := s.wagerRepo.TransitionStatus(ctx, wagerID, entities.WagerStatusPending, result, settledAt)
	if err != nil {
		return nil, fmt.Errorf("failed to transition wager status: %w", err)
	}
	if !ok {
		// The guard failed: someone else settled between our read and write.
		current, rerr := s.wagerRepo.GetByID(ctx, wagerID)
		status := entities.WagerStatus("unknown")
		if rerr == nil && current != nil {
			status = current.Status
		}
		return nil, &entities.StateConflictError{WagerID: wagerID, CurrentStatus: status}
	}

	if payout > 0 {
		txType := entities.TransactionTypeWagerPayout
		if result == entities.WagerStatusVoid {
			txType = entities.TransactionTypeWagerVoidRefund
		}
		_, err := s.ledger.Append(ctx, wager.UserID, txType, payout,
			fmt.Sprintf("wager:%d", wagerID),
			entities.WagerSettlementMetadata{
				WagerID:         wagerID,
				Result:          string(result),
				Stake:           wager.Stake,
				CombinedOdds:    wager.CombinedOdds,
				DeadHeatApplied: deadHeat,
				Rule4Applied:    rule4,
			})
		if err != nil {
			// The status already moved; the ledger write must not be retried
			// blindly or the payout could double. Surface for manual action.
			log.WithFields(log.Fields{
				"wagerId": wagerID,
				"payout":  payout,
				"error":   err,
			}).Error("Wager settled but ledger credit failed; manual action required")
			return nil, fmt.Errorf("wager %d settled but payout not recorded: %w", wagerID, err)
		}
	}

	if err := s.eventPublisher.Publish(events.WagerSettledEvent{
		WagerID:   wagerID,
		UserID:    wager.UserID,
		Result:    result,
		Stake:     wager.Stake,
		Payout:    payout,
		SettledAt: settledAt,
	}); err != nil {
		log.WithFields(log.Fields{"wagerId": wagerID, "error": err}).Error("Failed to publish wager settled event")
	}

	log.WithFields(log.Fields{
		"wagerId": wagerID,
		"result":  result,
		"payout":  payout,
	}).Info("Wager settled")

	return &interfaces.SettlementResult{WagerID: wagerID, Status: result, Payout: payout}, nil
}

// SettleMatch applies the event result to every wager holding a pending
// selection on the event. Each wager settles independently; one conflicting
// wager never aborts the rest.
func (s *settlementService) SettleMatch(ctx context.Context, eventID int64, result entities.SelectionResult) ([]interfaces.BatchItemResult, error) {
	if result != entities.SelectionResultWon && result != entities.SelectionResultLost && result != entities.SelectionResultVoid {
		return nil, entities.NewValidationError("result", fmt.Sprintf("invalid selection result %q", result))
	}

	wagers, err := s.wagerRepo.GetPendingByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending wagers for event: %w", err)
	}

	results := make([]interfaces.BatchItemResult, 0, len(wagers))
	for _, wager := range wagers {
		item := s.settleWagerForEvent(ctx, wager, eventID, result)
		results = append(results, item)
	}
	return results, nil
}

func (s *settlementService) settleWagerForEvent(ctx context.Context, wager *entities.Wager, eventID int64, result entities.SelectionResult) interfaces.BatchItemResult {
	item := interfaces.BatchItemResult{WagerID: wager.ID}

	selections, err := s.selectionRepo.GetByWager(ctx, wager.ID)
	if err != nil {
		item.Err = fmt.Errorf("failed to get selections: %w", err)
		return item
	}

	now := time.Now().UTC()
	for _, sel := range selections {
		if sel.EventID != eventID || sel.IsSettled() {
			continue
		}
		if err := s.selectionRepo.SettleResult(ctx, sel.ID, result, sel.DeadHeatDivisor, sel.WithdrawnOdds, now); err != nil {
			item.Err = fmt.Errorf("failed to settle selection %d: %w", sel.ID, err)
			return item
		}
		sel.Result = result
	}

	// Other legs may still be open; the wager settles once every leg has.
	derived := wager.OverallStatus(selections)
	if derived == nil {
		item.Status = entities.WagerStatusPending
		return item
	}

	settled, err := s.SettleWager(ctx, wager.ID, *derived)
	if err != nil {
		item.Err = err
		return item
	}
	item.Status = settled.Status
	item.Payout = settled.Payout
	return item
}

// AutoSettle sweeps pending wagers whose selections are all settled. It is
// the automated counterpart of admin-triggered settlement and shares the
// same compare-and-set discipline, so racing an admin is harmless.
func (s *settlementService) AutoSettle(ctx context.Context) ([]interfaces.BatchItemResult, error) {
	const sweepBatchSize = 500

	wagers, err := s.wagerRepo.GetFullySelectedPending(ctx, sweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get sweep candidates: %w", err)
	}

	results := make([]interfaces.BatchItemResult, 0, len(wagers))
	for _, wager := range wagers {
		item := interfaces.BatchItemResult{WagerID: wager.ID}

		selections, err := s.selectionRepo.GetByWager(ctx, wager.ID)
		if err != nil {
			item.Err = fmt.Errorf("failed to get selections: %w", err)
			results = append(results, item)
			continue
		}

		derived := wager.OverallStatus(selections)
		if derived == nil {
			item.Status = entities.WagerStatusPending
			results = append(results, item)
			continue
		}

		settled, err := s.SettleWager(ctx, wager.ID, *derived)
		if err != nil {
			item.Err = err
		} else {
			item.Status = settled.Status
			item.Payout = settled.Payout
		}
		results = append(results, item)
	}

	return results, nil
}

// CancelWager reverses a pending wager after a chargeback notification:
// the stake is refunded through the ledger and a fraud alert is emitted.
// Only legal from pending.
func (s *settlementService) CancelWager(ctx context.Context, wagerID int64, disputeID, reason string) error {
	wager, err := s.wagerRepo.GetByID(ctx, wagerID)
	if err != nil {
		return fmt.Errorf("failed to get wager: %w", err)
	}
	if wager == nil {
		return entities.NewValidationError("wagerId", "wager not found")
	}
	if wager.IsSettled() {
		return &entities.StateConflictError{WagerID: wagerID, CurrentStatus: wager.Status}
	}

	ok, err := s.wagerRepo.TransitionStatus(ctx, wagerID, entities.WagerStatusPending, entities.WagerStatusCancelled, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to cancel wager: %w", err)
	}
	if !ok {
		current, rerr := s.wagerRepo.GetByID(ctx, wagerID)
		status := entities.WagerStatus("unknown")
		if rerr == nil && current != nil {
			status = current.Status
		}
		return &entities.StateConflictError{WagerID: wagerID, CurrentStatus: status}
	}

	_, err = s.ledger.Append(ctx, wager.UserID, entities.TransactionTypeChargebackRefund, wager.Stake,
		fmt.Sprintf("wager:%d", wagerID),
		entities.ChargebackMetadata{WagerID: wagerID, DisputeID: disputeID, Reason: reason})
	if err != nil {
		log.WithFields(log.Fields{
			"wagerId": wagerID,
			"error":   err,
		}).Error("Wager cancelled but refund not recorded; manual action required")
		return fmt.Errorf("wager %d cancelled but refund not recorded: %w", wagerID, err)
	}

	if err := s.eventPublisher.Publish(events.FraudAlertEvent{
		WagerID:   wagerID,
		UserID:    wager.UserID,
		DisputeID: disputeID,
		Amount:    wager.Stake,
		Reason:    reason,
	}); err != nil {
		log.WithFields(log.Fields{"wagerId": wagerID, "error": err}).Error("Failed to publish fraud alert")
	}

	log.WithFields(log.Fields{
		"wagerId":   wagerID,
		"disputeId": disputeID,
		"reason":    reason,
	}).Warn("Wager cancelled after dispute")
	return nil
}
