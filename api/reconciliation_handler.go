package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookie/settlement-engine/application"
	"bookie/settlement-engine/domain/entities"
)

type reconciliationResponse struct {
	ReportID          int64  `json:"reportId"`
	PeriodStart       string `json:"periodStart"`
	PeriodEnd         string `json:"periodEnd"`
	BankCredits       int64  `json:"bankCredits"`
	BankDebits        int64  `json:"bankDebits"`
	LedgerDeposits    int64  `json:"ledgerDeposits"`
	LedgerWithdrawals int64  `json:"ledgerWithdrawals"`
	CreditDiscrepancy int64  `json:"creditDiscrepancy"`
	DebitDiscrepancy  int64  `json:"debitDiscrepancy"`
	UnmatchedBank     int    `json:"unmatchedBankLines"`
	UnmatchedLedger   int    `json:"unmatchedLedgerEntries"`
	Balanced          bool   `json:"balanced"`
	AlertRaised       bool   `json:"alertRaised"`
}

// handleReconciliation accepts a bank statement upload and reconciles it
// against the ledger for the given period. The statement is a multipart file
// field named "statement"; the period bounds are RFC 3339 form fields.
func (s *Server) handleReconciliation(c *gin.Context) {
	periodStart, err := time.Parse(time.RFC3339, c.PostForm("periodStart"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "periodStart must be an RFC 3339 timestamp"})
		return
	}

	periodEnd, err := time.Parse(time.RFC3339, c.PostForm("periodEnd"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "periodEnd must be an RFC 3339 timestamp"})
		return
	}

	fileHeader, err := c.FormFile("statement")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "statement file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read statement file"})
		return
	}
	defer file.Close()

	lines, err := application.ParseBankStatement(file)
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := s.reconciliationService.Reconcile(c.Request.Context(), periodStart, periodEnd, lines)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toReconciliationResponse(report))
}

func toReconciliationResponse(report *entities.ReconciliationReport) reconciliationResponse {
	return reconciliationResponse{
		ReportID:          report.ID,
		PeriodStart:       report.PeriodStart.Format(time.RFC3339),
		PeriodEnd:         report.PeriodEnd.Format(time.RFC3339),
		BankCredits:       report.BankCredits,
		BankDebits:        report.BankDebits,
		LedgerDeposits:    report.LedgerDeposits,
		LedgerWithdrawals: report.LedgerWithdrawals,
		CreditDiscrepancy: report.CreditDiscrepancy,
		DebitDiscrepancy:  report.DebitDiscrepancy,
		UnmatchedBank:     len(report.UnmatchedBankLines),
		UnmatchedLedger:   len(report.UnmatchedLedgerEntries),
		Balanced:          report.IsBalanced(),
		AlertRaised:       report.AlertRaised,
	}
}
