package repository

import (
	"context"
	"fmt"
	"time"

	"bookie/settlement-engine/database"
	"bookie/settlement-engine/domain/entities"
)

// ReconciliationRepository implements reconciliation report storage
type ReconciliationRepository struct {
	q Queryable
}

// NewReconciliationRepository creates a new reconciliation repository
func NewReconciliationRepository(db *database.DB) *ReconciliationRepository {
	return &ReconciliationRepository{q: db.Pool}
}

// Save persists a finished report. Reports are insert-only.
func (r *ReconciliationRepository) Save(ctx context.Context, report *entities.ReconciliationReport) error {
	query := `
		INSERT INTO reconciliation_reports (
			period_start, period_end, bank_credits, bank_debits,
			ledger_deposits, ledger_withdrawals, credit_discrepancy,
			debit_discrepancy, unmatched_bank_count, unmatched_ledger_count,
			alert_raised
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		report.PeriodStart,
		report.PeriodEnd,
		report.BankCredits,
		report.BankDebits,
		report.LedgerDeposits,
		report.LedgerWithdrawals,
		report.CreditDiscrepancy,
		report.DebitDiscrepancy,
		len(report.UnmatchedBankLines),
		len(report.UnmatchedLedgerEntries),
		report.AlertRaised,
	).Scan(&report.ID, &report.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save reconciliation report: %w", err)
	}
	return nil
}

// GetByPeriod returns all reports covering the given period, newest first
func (r *ReconciliationRepository) GetByPeriod(ctx context.Context, periodStart, periodEnd time.Time) ([]*entities.ReconciliationReport, error) {
	query := `
		SELECT id, period_start, period_end, bank_credits, bank_debits,
			ledger_deposits, ledger_withdrawals, credit_discrepancy,
			debit_discrepancy, alert_raised, created_at
		FROM reconciliation_reports
		WHERE period_start = $1 AND period_end = $2
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, query, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query reconciliation reports: %w", err)
	}
	defer rows.Close()

	var reports []*entities.ReconciliationReport
	for rows.Next() {
		var report entities.ReconciliationReport
		err := rows.Scan(
			&report.ID,
			&report.PeriodStart,
			&report.PeriodEnd,
			&report.BankCredits,
			&report.BankDebits,
			&report.LedgerDeposits,
			&report.LedgerWithdrawals,
			&report.CreditDiscrepancy,
			&report.DebitDiscrepancy,
			&report.AlertRaised,
			&report.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation report: %w", err)
		}
		reports = append(reports, &report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reconciliation reports: %w", err)
	}
	return reports, nil
}
