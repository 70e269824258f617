package entities

import "time"

// NotarizationStatus tracks the outcome of forwarding an event externally
type NotarizationStatus string

const (
	NotarizationStatusSubmitted NotarizationStatus = "submitted"
	NotarizationStatusFailed    NotarizationStatus = "failed"
)

// NotarizationRecord is the local side record for a qualifying settlement
// event forwarded to the external notary. A failed forward is recorded here
// so the event is never silently lost; it never blocks settlement.
type NotarizationRecord struct {
	ID           int64              `db:"id"`
	SubmissionID string             `db:"submission_id"`
	WagerID      int64              `db:"wager_id"`
	UserID       int64              `db:"user_id"`
	Payout       int64              `db:"payout"`
	Status       NotarizationStatus `db:"status"`
	Attempts     int                `db:"attempts"`
	LastError    string             `db:"last_error"`
	CreatedAt    time.Time          `db:"created_at"`
}

// IsFailed returns true once retries are exhausted
func (r *NotarizationRecord) IsFailed() bool {
	return r.Status == NotarizationStatusFailed
}
