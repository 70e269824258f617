package entities

// TransactionType represents the type of balance change recorded in the ledger
type TransactionType string

// All transaction types supported by the engine
const (
	// Wager-related transactions
	TransactionTypeWagerStake      TransactionType = "wager_stake"
	TransactionTypeWagerPayout     TransactionType = "wager_payout"
	TransactionTypeWagerVoidRefund TransactionType = "wager_void_refund"
	TransactionTypeCashoutCredit   TransactionType = "cashout_credit"

	// Dispute transactions
	TransactionTypeChargebackRefund TransactionType = "chargeback_refund"

	// Money movement against the outside world
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"

	// Operator actions, always human-reviewed
	TransactionTypeManualAdjustment TransactionType = "manual_adjustment"
)

// IsCredit returns true if the transaction type normally increases a balance
func (tt TransactionType) IsCredit() bool {
	return tt == TransactionTypeWagerPayout ||
		tt == TransactionTypeWagerVoidRefund ||
		tt == TransactionTypeCashoutCredit ||
		tt == TransactionTypeChargebackRefund ||
		tt == TransactionTypeDeposit
}

// IsWagerRelated returns true if the transaction originates from a wager lifecycle
func (tt TransactionType) IsWagerRelated() bool {
	return tt == TransactionTypeWagerStake ||
		tt == TransactionTypeWagerPayout ||
		tt == TransactionTypeWagerVoidRefund ||
		tt == TransactionTypeCashoutCredit ||
		tt == TransactionTypeChargebackRefund
}

// IsExternal returns true for movements that should appear on a bank statement
func (tt TransactionType) IsExternal() bool {
	return tt == TransactionTypeDeposit || tt == TransactionTypeWithdrawal
}

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}
