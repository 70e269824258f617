package events

import (
	"time"

	"bookie/settlement-engine/domain/entities"
)

// EventType represents different types of events emitted by the engine
type EventType string

const (
	EventTypeBalanceChange       EventType = "balance_change"
	EventTypeWagerSettled        EventType = "wager_settled"
	EventTypeFraudAlert          EventType = "fraud_alert"
	EventTypeReconciliationAlert EventType = "reconciliation_alert"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          int64
	Sequence        int64
	OldBalance      int64
	NewBalance      int64
	ChangeAmount    int64
	TransactionType entities.TransactionType
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// WagerSettledEvent represents a wager leaving the pending state. The
// notarization forwarder consumes these to decide which outcomes qualify
// for external recording.
type WagerSettledEvent struct {
	WagerID   int64
	UserID    int64
	Result    entities.WagerStatus
	Stake     int64
	Payout    int64
	SettledAt time.Time
}

func (e WagerSettledEvent) Type() EventType {
	return EventTypeWagerSettled
}

// FraudAlertEvent is raised when a chargeback cancels a wager. Actioning it
// is out of scope for the engine; it only guarantees emission.
type FraudAlertEvent struct {
	WagerID   int64
	UserID    int64
	DisputeID string
	Amount    int64
	Reason    string
}

func (e FraudAlertEvent) Type() EventType {
	return EventTypeFraudAlert
}

// ReconciliationAlertEvent is raised when a reconciliation run finds a
// discrepancy above the operational threshold. Corrections stay manual.
type ReconciliationAlertEvent struct {
	ReportID         int64
	PeriodStart      time.Time
	PeriodEnd        time.Time
	TotalDiscrepancy int64
	Threshold        int64
}

func (e ReconciliationAlertEvent) Type() EventType {
	return EventTypeReconciliationAlert
}
