package entities

import "time"

// BankStatementLine is one row of an externally supplied bank statement.
// Debit and Credit are non-negative minor currency amounts; exactly one of
// them is expected per line.
type BankStatementLine struct {
	Date        time.Time
	Description string
	Debit       int64
	Credit      int64
	Balance     int64
	Reference   string
}

// ReconciliationReport is the immutable outcome of one reconciliation run.
// Re-running the same period produces a new report; history is never mutated.
type ReconciliationReport struct {
	ID          int64     `db:"id"`
	PeriodStart time.Time `db:"period_start"`
	PeriodEnd   time.Time `db:"period_end"`

	BankCredits       int64 `db:"bank_credits"`
	BankDebits        int64 `db:"bank_debits"`
	LedgerDeposits    int64 `db:"ledger_deposits"`
	LedgerWithdrawals int64 `db:"ledger_withdrawals"`

	// Signed discrepancies: positive means the bank saw more than the ledger
	CreditDiscrepancy int64 `db:"credit_discrepancy"`
	DebitDiscrepancy  int64 `db:"debit_discrepancy"`

	UnmatchedBankLines     []BankStatementLine `db:"-"`
	UnmatchedLedgerEntries []*LedgerEntry      `db:"-"`

	AlertRaised bool      `db:"alert_raised"`
	CreatedAt   time.Time `db:"created_at"`
}

// TotalDiscrepancy returns the combined absolute discrepancy across both sides
func (r *ReconciliationReport) TotalDiscrepancy() int64 {
	return abs(r.CreditDiscrepancy) + abs(r.DebitDiscrepancy)
}

// IsBalanced returns true when bank and ledger totals agree exactly
func (r *ReconciliationReport) IsBalanced() bool {
	return r.CreditDiscrepancy == 0 && r.DebitDiscrepancy == 0
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
