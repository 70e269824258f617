package repository

import (
	"context"
	"fmt"
	"time"

	"bookie/settlement-engine/database"
	"bookie/settlement-engine/domain/entities"
	"bookie/settlement-engine/infrastructure/observability"

	"github.com/jackc/pgx/v5"
)

// advisoryLockNamespace separates ledger locks from any other advisory lock
// users sharing the database.
const advisoryLockNamespace = 0x6C65 // "le"

// LedgerRepository implements the append-only ledger store. Entries are only
// ever inserted; there is no update or delete path.
type LedgerRepository struct {
	db *database.DB
	q  Queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{db: db, q: db.Pool}
}

const ledgerColumns = `
	sequence, created_at, user_id, type, amount,
	balance_before, balance_after, reference, metadata, hash, prev_hash
`

func scanLedgerEntry(row pgx.Row) (*entities.LedgerEntry, error) {
	var entry entities.LedgerEntry
	var metadata []byte
	err := row.Scan(
		&entry.Sequence,
		&entry.CreatedAt,
		&entry.UserID,
		&entry.Type,
		&entry.Amount,
		&entry.BalanceBefore,
		&entry.BalanceAfter,
		&entry.Reference,
		&metadata,
		&entry.Hash,
		&entry.PrevHash,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		m, err := entities.UnmarshalEntryMetadata(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to decode metadata for entry %d: %w", entry.Sequence, err)
		}
		entry.Metadata = m
	}
	return &entry, nil
}

// Append inserts a new entry as a strict append. Chaining fields (sequence,
// balance_before, balance_after, prev_hash, hash) are computed here under a
// per-user advisory lock, so two concurrent writes for one user serialize and
// each links to the true predecessor.
func (r *LedgerRepository) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Held until commit. Serializes appends per user without blocking
	// writes for anyone else.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, advisoryLockNamespace, entry.UserID); err != nil {
		return fmt.Errorf("failed to acquire ledger lock for user %d: %w", entry.UserID, err)
	}

	latest, err := r.latestForUser(ctx, tx, entry.UserID)
	if err != nil {
		return err
	}

	if latest == nil {
		entry.BalanceBefore = 0
		entry.PrevHash = entities.GenesisHash()
	} else {
		entry.BalanceBefore = latest.BalanceAfter
		entry.PrevHash = latest.Hash
	}
	entry.BalanceAfter = entry.BalanceBefore + entry.Amount

	if entry.BalanceAfter < 0 {
		return &entities.InsufficientFundsError{
			UserID:    entry.UserID,
			Balance:   entry.BalanceBefore,
			Requested: -entry.Amount,
		}
	}

	var metadata any
	if entry.Metadata != nil {
		raw, err := entities.MarshalEntryMetadata(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
		metadata = string(raw)
	}

	// The global sequence comes from the insert itself, so the hash is
	// computed against the sequence the row will actually carry.
	err = tx.QueryRow(ctx, `SELECT nextval('ledger_entries_sequence_seq')`).Scan(&entry.Sequence)
	if err != nil {
		return fmt.Errorf("failed to allocate ledger sequence: %w", err)
	}
	entry.Hash = entry.ComputeHash()

	query := `
		INSERT INTO ledger_entries (
			sequence, created_at, user_id, type, amount,
			balance_before, balance_after, reference, metadata, hash, prev_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.Exec(ctx, query,
		entry.Sequence,
		entry.CreatedAt,
		entry.UserID,
		entry.Type,
		entry.Amount,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.Reference,
		metadata,
		entry.Hash,
		entry.PrevHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit ledger append: %w", err)
	}

	if m := observability.GetMetrics(); m != nil {
		m.RecordLedgerAppend(string(entry.Type))
	}
	return nil
}

func (r *LedgerRepository) latestForUser(ctx context.Context, q Queryable, userID int64) (*entities.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY sequence DESC
		LIMIT 1
	`

	entry, err := scanLedgerEntry(q.QueryRow(ctx, query, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest ledger entry for user %d: %w", userID, err)
	}
	return entry, nil
}

// GetLatestByUser returns the user's most recent entry, or nil if the user
// has no entries yet
func (r *LedgerRepository) GetLatestByUser(ctx context.Context, userID int64) (*entities.LedgerEntry, error) {
	return r.latestForUser(ctx, r.q, userID)
}

// GetAllByUser returns every entry for a user in sequence order
func (r *LedgerRepository) GetAllByUser(ctx context.Context, userID int64) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY sequence
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries for user %d: %w", userID, err)
	}
	defer rows.Close()

	return r.collectEntries(rows)
}

// GetByPeriod returns entries created within [from, to) in sequence order
func (r *LedgerRepository) GetByPeriod(ctx context.Context, from, to time.Time) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY sequence
	`

	rows, err := r.q.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries by period: %w", err)
	}
	defer rows.Close()

	return r.collectEntries(rows)
}

// GetExternalByPeriod returns deposit and withdrawal entries within [from, to)
func (r *LedgerRepository) GetExternalByPeriod(ctx context.Context, from, to time.Time) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE created_at >= $1 AND created_at < $2
		  AND type IN ($3, $4)
		ORDER BY sequence
	`

	rows, err := r.q.Query(ctx, query, from, to,
		entities.TransactionTypeDeposit, entities.TransactionTypeWithdrawal)
	if err != nil {
		return nil, fmt.Errorf("failed to query external ledger entries: %w", err)
	}
	defer rows.Close()

	return r.collectEntries(rows)
}

func (r *LedgerRepository) collectEntries(rows pgx.Rows) ([]*entities.LedgerEntry, error) {
	var entries []*entities.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}
