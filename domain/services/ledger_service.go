package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"bookie/settlement-engine/domain/entities"
	"bookie/settlement-engine/domain/events"
	"bookie/settlement-engine/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// ledgerService is the single writer of balance-affecting records. Every
// other component computes intentions; this service converts them into
// immutable hash-chained entries.
type ledgerService struct {
	ledgerRepo     interfaces.LedgerRepository
	eventPublisher interfaces.EventPublisher
	currency       string

	// haltedUsers holds users whose chain failed verification. Writes for
	// them stop until a manual audit clears the flag out of band.
	mu          sync.Mutex
	haltedUsers map[int64]struct{}
}

// NewLedgerService creates a new ledger service
func NewLedgerService(ledgerRepo interfaces.LedgerRepository, eventPublisher interfaces.EventPublisher, currency string) interfaces.LedgerService {
	return &ledgerService{
		ledgerRepo:     ledgerRepo,
		eventPublisher: eventPublisher,
		currency:       currency,
		haltedUsers:    make(map[int64]struct{}),
	}
}

func (s *ledgerService) isHalted(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, halted := s.haltedUsers[userID]
	return halted
}

func (s *ledgerService) halt(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.haltedUsers[userID] = struct{}{}
}

// Append converts a balance-change intention into a ledger entry. Balance
// chaining (balance_before, prev_hash, sequence, hash) is filled by the
// repository under the per-user serialization lock.
func (s *ledgerService) Append(ctx context.Context, userID int64, txType entities.TransactionType, amount int64, reference string, metadata entities.EntryMetadata) (*entities.LedgerEntry, error) {
	if userID == 0 {
		return nil, entities.NewValidationError("userId", "must be set")
	}
	if amount == 0 {
		return nil, entities.NewValidationError("amount", "cannot be zero")
	}
	if s.isHalted(userID) {
		return nil, &entities.IntegrityError{UserID: userID, Detail: "writes halted pending manual audit"}
	}

	entry := &entities.LedgerEntry{
		CreatedAt: time.Now().UTC(),
		UserID:    userID,
		Type:      txType,
		Amount:    amount,
		Reference: reference,
		Metadata:  metadata,
	}

	if err := s.ledgerRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	if err := s.eventPublisher.Publish(events.BalanceChangeEvent{
		UserID:          userID,
		Sequence:        entry.Sequence,
		OldBalance:      entry.BalanceBefore,
		NewBalance:      entry.BalanceAfter,
		ChangeAmount:    amount,
		TransactionType: txType,
	}); err != nil {
		log.WithFields(log.Fields{
			"userId":   userID,
			"sequence": entry.Sequence,
			"error":    err,
		}).Error("Failed to publish balance change event")
	}

	return entry, nil
}

// Balance returns the user's spendable balance: the balance_after of their
// most recent entry, zero for users with no history.
func (s *ledgerService) Balance(ctx context.Context, userID int64) (int64, error) {
	latest, err := s.ledgerRepo.GetLatestByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest ledger entry: %w", err)
	}
	if latest == nil {
		return 0, nil
	}
	return latest.BalanceAfter, nil
}

// VerifyChain recomputes every hash from the user's first entry forward and
// confirms each links to its predecessor. A broken chain halts further
// writes for the user; it is never auto-repaired.
func (s *ledgerService) VerifyChain(ctx context.Context, userID int64) error {
	entries, err := s.ledgerRepo.GetAllByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load ledger entries: %w", err)
	}

	prevHash := entities.GenesisHash()
	prevBalance := int64(0)
	for _, entry := range entries {
		if entry.PrevHash != prevHash {
			s.halt(userID)
			return &entities.IntegrityError{
				UserID:   userID,
				Sequence: entry.Sequence,
				Detail:   "entry does not link to its predecessor",
			}
		}
		if entry.BalanceBefore != prevBalance {
			s.halt(userID)
			return &entities.IntegrityError{
				UserID:   userID,
				Sequence: entry.Sequence,
				Detail:   "balance chain is inconsistent",
			}
		}
		if entry.BalanceAfter != entry.BalanceBefore+entry.Amount {
			s.halt(userID)
			return &entities.IntegrityError{
				UserID:   userID,
				Sequence: entry.Sequence,
				Detail:   "balance arithmetic does not hold",
			}
		}
		if !entry.VerifyHash() {
			s.halt(userID)
			return &entities.IntegrityError{
				UserID:   userID,
				Sequence: entry.Sequence,
				Detail:   "stored hash does not match recomputed hash",
			}
		}
		prevHash = entry.Hash
		prevBalance = entry.BalanceAfter
	}

	return nil
}

// ExportCSV streams ledger entries within [from, to) as CSV
func (s *ledgerService) ExportCSV(ctx context.Context, w io.Writer, from, to time.Time) error {
	entries, err := s.ledgerRepo.GetByPeriod(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to load ledger entries for export: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{"entry_number", "created_at", "user_id", "type", "amount",
		"currency", "balance_before", "balance_after", "description", "hash"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, e := range entries {
		record := []string{
			strconv.FormatInt(e.Sequence, 10),
			e.CreatedAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(e.UserID, 10),
			string(e.Type),
			strconv.FormatInt(e.Amount, 10),
			s.currency,
			strconv.FormatInt(e.BalanceBefore, 10),
			strconv.FormatInt(e.BalanceAfter, 10),
			e.Description(),
			e.Hash,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
