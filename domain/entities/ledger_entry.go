package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// GenesisHashSeed seeds the hash chain before a user's first entry
const GenesisHashSeed = "settlement-engine:ledger:genesis:v1"

// GenesisHash returns the chain anchor used as prev_hash for first entries
func GenesisHash() string {
	sum := sha256.Sum256([]byte(GenesisHashSeed))
	return hex.EncodeToString(sum[:])
}

// LedgerEntry is one immutable, hash-linked record of a balance-affecting
// event. Entries are strictly append-only; there is no update or delete path.
// A user's spendable balance is the BalanceAfter of their most recent entry.
type LedgerEntry struct {
	Sequence      int64           `db:"sequence"`
	CreatedAt     time.Time       `db:"created_at"`
	UserID        int64           `db:"user_id"`
	Type          TransactionType `db:"transaction_type"`
	Amount        int64           `db:"amount"`
	BalanceBefore int64           `db:"balance_before"`
	BalanceAfter  int64           `db:"balance_after"`
	Reference     string          `db:"reference"`
	Metadata      EntryMetadata   `db:"metadata"`
	Hash          string          `db:"hash"`
	PrevHash      string          `db:"prev_hash"`
}

// canonical returns the deterministic serialization of the hashed field tuple.
// Timestamps enter as UnixNano so the representation never depends on locale
// or formatting. Metadata enters through its tagged envelope, whose key order
// follows struct declaration and is therefore stable across round trips.
func (e *LedgerEntry) canonical() string {
	meta, _ := MarshalEntryMetadata(e.Metadata)
	return fmt.Sprintf("%d|%d|%d|%s|%d|%d|%d|%s|%s",
		e.Sequence,
		e.CreatedAt.UTC().UnixNano(),
		e.UserID,
		e.Type,
		e.Amount,
		e.BalanceBefore,
		e.BalanceAfter,
		e.Reference,
		meta,
	)
}

// ComputeHash calculates hash = SHA-256(prev_hash || canonical fields)
func (e *LedgerEntry) ComputeHash() string {
	h := sha256.New()
	h.Write([]byte(e.PrevHash))
	h.Write([]byte(e.canonical()))
	return hex.EncodeToString(h.Sum(nil))
}

// Validate performs basic consistency validation on the entry
func (e *LedgerEntry) Validate() error {
	if e.UserID == 0 {
		return errors.New("ledger entry must belong to a user")
	}
	if e.Amount == 0 {
		return errors.New("amount cannot be zero")
	}
	if e.BalanceAfter != e.BalanceBefore+e.Amount {
		return errors.New("balance calculation is inconsistent")
	}
	return nil
}

// VerifyHash recomputes the content hash and compares it to the stored one
func (e *LedgerEntry) VerifyHash() bool {
	return e.Hash == e.ComputeHash()
}

// Description returns a human-readable description of the entry
func (e *LedgerEntry) Description() string {
	switch e.Type {
	case TransactionTypeWagerStake:
		return "Wager stake"
	case TransactionTypeWagerPayout:
		return "Wager payout"
	case TransactionTypeWagerVoidRefund:
		return "Void wager refund"
	case TransactionTypeCashoutCredit:
		return "Cashout credit"
	case TransactionTypeChargebackRefund:
		return "Chargeback refund"
	case TransactionTypeDeposit:
		return "Deposit"
	case TransactionTypeWithdrawal:
		return "Withdrawal"
	case TransactionTypeManualAdjustment:
		return "Manual adjustment"
	default:
		return string(e.Type)
	}
}
