package interfaces

import (
	"context"
	"io"
	"time"

	"bookie/settlement-engine/domain/entities"
)

// SettlementResult summarizes a single wager's settlement
type SettlementResult struct {
	WagerID int64
	Status  entities.WagerStatus
	Payout  int64
}

// BatchItemResult carries the per-wager outcome of a batch settlement.
// Partial failure never aborts the batch; each item reports independently.
type BatchItemResult struct {
	WagerID int64
	Status  entities.WagerStatus
	Payout  int64
	Err     error
}

// SettlementService orchestrates the wager lifecycle state machine
type SettlementService interface {
	// SettleSelection records a leg outcome; it moves no money
	SettleSelection(ctx context.Context, wagerID, selectionID int64, result entities.SelectionResult, deadHeatDivisor int, withdrawnOdds float64) error

	// SettleWager settles a single pending wager with the given result
	SettleWager(ctx context.Context, wagerID int64, result entities.WagerStatus) (*SettlementResult, error)

	// SettleMatch settles every wager with a pending selection on the event
	SettleMatch(ctx context.Context, eventID int64, result entities.SelectionResult) ([]BatchItemResult, error)

	// AutoSettle sweeps pending wagers whose legs are all settled
	AutoSettle(ctx context.Context) ([]BatchItemResult, error)

	// CancelWager reverses a pending wager, refunding the stake
	CancelWager(ctx context.Context, wagerID int64, disputeID, reason string) error
}

// LedgerService is the single writer of balance-affecting records
type LedgerService interface {
	// Append converts a balance-change intention into an immutable entry
	Append(ctx context.Context, userID int64, txType entities.TransactionType, amount int64, reference string, metadata entities.EntryMetadata) (*entities.LedgerEntry, error)

	// Balance returns the user's spendable balance (their latest entry)
	Balance(ctx context.Context, userID int64) (int64, error)

	// VerifyChain recomputes every hash for the user from the first entry
	VerifyChain(ctx context.Context, userID int64) error

	// ExportCSV streams ledger entries for the period as CSV
	ExportCSV(ctx context.Context, w io.Writer, from, to time.Time) error
}

// CashoutService negotiates early buyouts of unresolved wagers
type CashoutService interface {
	// RequestCashout quotes an offer for a pending wager
	RequestCashout(ctx context.Context, wagerID int64) (*entities.CashoutOffer, error)

	// AcceptCashout realizes an unexpired offer, failing closed on expiry or
	// concurrent settlement. Returns the new balance on success.
	AcceptCashout(ctx context.Context, offer *entities.CashoutOffer, offeredAmount int64) (newBalance int64, err error)
}

// ReconciliationService compares the ledger against a bank statement
type ReconciliationService interface {
	// Reconcile produces an immutable report for the period
	Reconcile(ctx context.Context, periodStart, periodEnd time.Time, bankLines []entities.BankStatementLine) (*entities.ReconciliationReport, error)
}
