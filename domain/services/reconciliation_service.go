package services

import (
	"context"
	"fmt"
	"time"

	"bookie/settlement-engine/domain/entities"
	"bookie/settlement-engine/domain/events"
	"bookie/settlement-engine/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// reconciliationService compares the ledger's external money movement against
// a bank statement for a closed period. It only ever reads the ledger and
// never corrects anything: discrepancies surface as alerts for human review.
type reconciliationService struct {
	ledgerRepo     interfaces.LedgerRepository
	reconRepo      interfaces.ReconciliationRepository
	eventPublisher interfaces.EventPublisher

	// alertThreshold is the absolute discrepancy (minor currency units)
	// above which an operational alert fires.
	alertThreshold int64
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(ledgerRepo interfaces.LedgerRepository, reconRepo interfaces.ReconciliationRepository, eventPublisher interfaces.EventPublisher, alertThreshold int64) interfaces.ReconciliationService {
	return &reconciliationService{
		ledgerRepo:     ledgerRepo,
		reconRepo:      reconRepo,
		eventPublisher: eventPublisher,
		alertThreshold: alertThreshold,
	}
}

// pairKey matches a bank line to a ledger entry by amount and reference
func pairKey(reference string, amount int64) string {
	return fmt.Sprintf("%s|%d", reference, amount)
}

// Reconcile produces an immutable report for [periodStart, periodEnd).
// Re-running a period inserts a new report; history is never mutated.
func (s *reconciliationService) Reconcile(ctx context.Context, periodStart, periodEnd time.Time, bankLines []entities.BankStatementLine) (*entities.ReconciliationReport, error) {
	if !periodEnd.After(periodStart) {
		return nil, entities.NewValidationError("period", "period end must be after period start")
	}

	ledgerEntries, err := s.ledgerRepo.GetExternalByPeriod(ctx, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries for reconciliation: %w", err)
	}

	report := &entities.ReconciliationReport{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		CreatedAt:   time.Now().UTC(),
	}

	for _, line := range bankLines {
		report.BankCredits += line.Credit
		report.BankDebits += line.Debit
	}
	for _, entry := range ledgerEntries {
		switch entry.Type {
		case entities.TransactionTypeDeposit:
			report.LedgerDeposits += entry.Amount
		case entities.TransactionTypeWithdrawal:
			report.LedgerWithdrawals += -entry.Amount
		}
	}

	// Positive discrepancy: the bank saw more than the ledger recorded.
	report.CreditDiscrepancy = report.BankCredits - report.LedgerDeposits
	report.DebitDiscrepancy = report.BankDebits - report.LedgerWithdrawals

	report.UnmatchedBankLines, report.UnmatchedLedgerEntries = s.pairTransactions(bankLines, ledgerEntries)

	if report.TotalDiscrepancy() > s.alertThreshold {
		report.AlertRaised = true
	}

	if err := s.reconRepo.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save reconciliation report: %w", err)
	}

	if report.AlertRaised {
		if err := s.eventPublisher.Publish(events.ReconciliationAlertEvent{
			ReportID:         report.ID,
			PeriodStart:      periodStart,
			PeriodEnd:        periodEnd,
			TotalDiscrepancy: report.TotalDiscrepancy(),
			Threshold:        s.alertThreshold,
		}); err != nil {
			log.WithFields(log.Fields{"reportId": report.ID, "error": err}).Error("Failed to publish reconciliation alert")
		}
		log.WithFields(log.Fields{
			"reportId":    report.ID,
			"discrepancy": report.TotalDiscrepancy(),
			"threshold":   s.alertThreshold,
		}).Warn("Reconciliation discrepancy above threshold")
	}

	return report, nil
}

// pairTransactions attempts to pair bank lines against ledger entries by
// amount and reference, returning the genuinely unmatched remainder on each
// side. Totals can agree while individual lines still disagree, so pairing
// runs regardless of the aggregate discrepancy.
func (s *reconciliationService) pairTransactions(bankLines []entities.BankStatementLine, ledgerEntries []*entities.LedgerEntry) ([]entities.BankStatementLine, []*entities.LedgerEntry) {
	ledgerByKey := make(map[string][]*entities.LedgerEntry)
	for _, entry := range ledgerEntries {
		amount := entry.Amount
		if amount < 0 {
			amount = -amount
		}
		key := pairKey(entry.Reference, amount)
		ledgerByKey[key] = append(ledgerByKey[key], entry)
	}

	var unmatchedBank []entities.BankStatementLine
	for _, line := range bankLines {
		amount := line.Credit
		if amount == 0 {
			amount = line.Debit
		}
		key := pairKey(line.Reference, amount)
		candidates := ledgerByKey[key]
		if len(candidates) == 0 {
			unmatchedBank = append(unmatchedBank, line)
			continue
		}
		ledgerByKey[key] = candidates[1:]
	}

	var unmatchedLedger []*entities.LedgerEntry
	for _, remaining := range ledgerByKey {
		unmatchedLedger = append(unmatchedLedger, remaining...)
	}
	return unmatchedBank, unmatchedLedger
}
